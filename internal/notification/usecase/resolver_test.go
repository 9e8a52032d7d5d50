package usecase

import (
	"context"
	"testing"

	schooldomain "fled-backend/internal/school/domain"
	schoolrepo "fled-backend/internal/school/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryResolver(store *schoolrepo.MemoryStore) *TokenResolver {
	return NewTokenResolver(
		schoolrepo.NewMemoryStudentRepository(store),
		schoolrepo.NewMemoryParentRepository(store),
		zerolog.Nop(),
	)
}

func TestResolveTokensPrefersTokenCollection(t *testing.T) {
	store := schoolrepo.NewMemoryStore()
	parent := canonicalParent("ana@school.org", "c1", "c2")
	parent.FCMToken = "legacy"
	store.PutParent(parent)
	store.PutStudent(schooldomain.Student{ID: "s1", ParentEmail: " Ana@School.org "})

	tokens := newMemoryResolver(store).ResolveTokens(context.Background(), []string{"s1"})

	assert.Equal(t, []string{"c1", "c2"}, tokens)
}

func TestResolveTokensDeduplicatesSharedParent(t *testing.T) {
	store := schoolrepo.NewMemoryStore()
	store.PutParent(canonicalParent("ana@school.org", "c1", "c2"))
	store.PutStudent(schooldomain.Student{ID: "s1", ParentEmail: "ana@school.org"})
	store.PutStudent(schooldomain.Student{ID: "s2", ParentEmail: "ANA@school.org"})

	tokens := newMemoryResolver(store).ResolveTokens(context.Background(), []string{"s1", "s2", "s1"})

	assert.Equal(t, []string{"c1", "c2"}, tokens)
}

func TestResolveTokensFallbacks(t *testing.T) {
	store := schoolrepo.NewMemoryStore()
	store.PutParent(schooldomain.Parent{ID: "p-opaque", FCMToken: "L1"})
	store.PutParent(schooldomain.Parent{ID: "p5", Phone: "555-0100", FCMToken: "P1"})
	store.PutParent(schooldomain.Parent{ID: "p6", Phone: "555-0100", FCMTokens: []schooldomain.TokenRecord{{Token: "P2"}}})
	store.PutStudent(schooldomain.Student{ID: "by-id", ParentID: "p-opaque"})
	store.PutStudent(schooldomain.Student{ID: "by-phone", ParentEmail: "nobody@school.org", ParentPhone: "555-0100"})
	store.PutStudent(schooldomain.Student{ID: "no-contact"})

	tests := []struct {
		name    string
		student string
		want    []string
	}{
		{name: "parent id", student: "by-id", want: []string{"L1"}},
		{name: "phone after email miss", student: "by-phone", want: []string{"P1", "P2"}},
		{name: "no contact fields", student: "no-contact", want: nil},
		{name: "missing student", student: "ghost", want: nil},
	}

	r := newMemoryResolver(store)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ResolveTokens(context.Background(), []string{tt.student})
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestResolveSectionTokens(t *testing.T) {
	store := schoolrepo.NewMemoryStore()
	store.PutParent(canonicalParent("ana@school.org", "a1"))
	store.PutParent(schooldomain.Parent{ID: "p2", FCMTokens: []schooldomain.TokenRecord{{Token: "b1"}, {Token: "a1"}}})
	store.PutParent(schooldomain.Parent{ID: "p3", FCMToken: "other-section"})
	store.PutStudent(schooldomain.Student{ID: "s1", SectionID: "sec-A", ParentEmail: "ana@school.org"})
	store.PutStudent(schooldomain.Student{ID: "s2", SectionID: "sec-A", ParentID: "p2"})
	store.PutStudent(schooldomain.Student{ID: "s3", SectionID: "sec-A"})
	store.PutStudent(schooldomain.Student{ID: "s4", SectionID: "sec-B", ParentID: "p3"})

	r := newMemoryResolver(store)

	tokens, err := r.ResolveSectionTokens(context.Background(), "sec-A")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a1", "b1"}, tokens)

	tokens, err = r.ResolveSectionTokens(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestResolveSectionTokensAfterParentMerge(t *testing.T) {
	store := schoolrepo.NewMemoryStore()
	// legacy-1 was merged into the canonical doc and deleted
	store.PutParent(canonicalParent("Cara@School.org", "c1"))
	store.PutStudent(schooldomain.Student{ID: "s1", SectionID: "sec-A", ParentID: "legacy-1", ParentEmail: "cara@school.org"})

	tokens, err := newMemoryResolver(store).ResolveSectionTokens(context.Background(), "sec-A")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, tokens)
}

func TestResolveParentTokens(t *testing.T) {
	store := schoolrepo.NewMemoryStore()
	store.PutParent(schooldomain.Parent{ID: "p1", FCMToken: "L1"})
	r := newMemoryResolver(store)

	tokens, err := r.ResolveParentTokens(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, tokens)

	tokens, err = r.ResolveParentTokens(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
