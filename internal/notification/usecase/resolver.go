package usecase

import (
	"context"
	"fmt"
	"strings"

	schooldomain "fled-backend/internal/school/domain"
	schoolrepo "fled-backend/internal/school/repository"
	"fled-backend/pkg/identity"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// defaultLookupConcurrency bounds parallel student lookups in ResolveTokens
const defaultLookupConcurrency = 8

// TokenResolver walks student -> parent links to collect delivery tokens
type TokenResolver struct {
	students    schoolrepo.StudentRepository
	parents     schoolrepo.ParentRepository
	logger      zerolog.Logger
	concurrency int
}

// NewTokenResolver creates a TokenResolver
func NewTokenResolver(students schoolrepo.StudentRepository, parents schoolrepo.ParentRepository, logger zerolog.Logger) *TokenResolver {
	return &TokenResolver{
		students:    students,
		parents:     parents,
		logger:      logger.With().Str("component", "resolver").Logger(),
		concurrency: defaultLookupConcurrency,
	}
}

// ResolveTokens returns the deduplicated tokens of every parent reachable
// from studentIDs. Resolution is best effort per student: a missing student,
// parent or contact field contributes nothing and never fails the call.
func (r *TokenResolver) ResolveTokens(ctx context.Context, studentIDs []string) []string {
	ids := uniqueNonEmpty(studentIDs)
	if len(ids) == 0 {
		return nil
	}

	perStudent := make([][]string, len(ids))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			perStudent[i] = r.tokensForStudent(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return unionTokens(perStudent...)
}

func (r *TokenResolver) tokensForStudent(ctx context.Context, studentID string) []string {
	log := r.logger.With().Str("student_id", studentID).Logger()

	student, err := r.students.FindByID(ctx, studentID)
	if err != nil {
		log.Warn().Err(err).Msg("error loading student")
		return nil
	}
	if student == nil {
		log.Warn().Msg("student not found")
		return nil
	}

	email := strings.TrimSpace(student.ParentEmail)
	phone := strings.TrimSpace(student.ParentPhone)

	var tokens []string
	canonicalKey := ""
	if email != "" {
		key, err := identity.NormalizeEmail(email)
		if err == nil {
			canonicalKey = key
			tokens = r.parentTokens(ctx, log, key)
		}
	}

	// Students created before parent reconciliation point at an opaque parent id.
	if len(tokens) == 0 && student.ParentID != "" && student.ParentID != canonicalKey {
		tokens = r.parentTokens(ctx, log, student.ParentID)
	}

	// Legacy phone-keyed lookup, only when the direct paths found nothing.
	if len(tokens) == 0 && phone != "" {
		parents, err := r.parents.FindByPhone(ctx, phone)
		if err != nil {
			log.Warn().Err(err).Msg("error querying parents by phone")
		}
		for _, p := range parents {
			tokens = append(tokens, p.DeliveryTokens()...)
		}
	}

	if email == "" && phone == "" && student.ParentID == "" {
		log.Info().Msg("no parent contact for student")
	}
	log.Debug().Int("tokens", len(tokens)).Msg("resolved student tokens")
	return tokens
}

func (r *TokenResolver) parentTokens(ctx context.Context, log zerolog.Logger, parentID string) []string {
	parent, err := r.parents.FindByID(ctx, parentID)
	if err != nil {
		log.Warn().Err(err).Str("parent_id", parentID).Msg("error loading parent")
		return nil
	}
	if parent == nil {
		log.Debug().Str("parent_id", parentID).Msg("parent not found")
		return nil
	}
	return parent.DeliveryTokens()
}

// ResolveSectionTokens returns the tokens of every parent linked to a student
// of sectionID. Parents are fetched in a single batch read.
func (r *TokenResolver) ResolveSectionTokens(ctx context.Context, sectionID string) ([]string, error) {
	if sectionID == "" {
		return nil, nil
	}

	students, err := r.students.FindBySection(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load students for section %s: %w", sectionID, err)
	}

	parentIDs := make([]string, 0, len(students))
	for _, st := range students {
		parentIDs = append(parentIDs, guardianIDs(st)...)
	}
	parentIDs = uniqueNonEmpty(parentIDs)
	if len(parentIDs) == 0 {
		r.logger.Info().Str("section_id", sectionID).Int("students", len(students)).Msg("no parents linked to section")
		return nil, nil
	}

	parents, err := r.parents.FindByIDs(ctx, parentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load parents for section %s: %w", sectionID, err)
	}

	lists := make([][]string, 0, len(parents))
	for _, p := range parents {
		lists = append(lists, p.DeliveryTokens())
	}
	tokens := unionTokens(lists...)
	r.logger.Debug().Str("section_id", sectionID).Int("parents", len(parents)).Int("tokens", len(tokens)).Msg("resolved section tokens")
	return tokens, nil
}

// ResolveParentTokens returns the tokens of a single parent document.
func (r *TokenResolver) ResolveParentTokens(ctx context.Context, parentID string) ([]string, error) {
	if parentID == "" {
		return nil, nil
	}
	parent, err := r.parents.FindByID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load parent %s: %w", parentID, err)
	}
	return parent.DeliveryTokens(), nil
}

// guardianIDs returns the parent documents a student may be linked to: the
// explicit parent reference and the canonical key of the parent email. The
// reference can outlive its document once duplicates are merged.
func guardianIDs(st *schooldomain.Student) []string {
	ids := make([]string, 0, 2)
	if st.ParentID != "" {
		ids = append(ids, st.ParentID)
	}
	if key, err := identity.NormalizeEmail(st.ParentEmail); err == nil && key != st.ParentID {
		ids = append(ids, key)
	}
	return ids
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// unionTokens merges token lists keeping first-seen order.
func unionTokens(lists ...[]string) []string {
	var all []string
	for _, l := range lists {
		all = append(all, l...)
	}
	out := uniqueNonEmpty(all)
	if len(out) == 0 {
		return nil
	}
	return out
}
