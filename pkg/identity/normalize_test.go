package identity

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmailCanonicalizes(t *testing.T) {
	a, err := NormalizeEmail(" Foo@Bar.com ")
	require.NoError(t, err)
	b, err := NormalizeEmail("foo@bar.com")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestNormalizeEmailIsURLSafe(t *testing.T) {
	// Inputs chosen so the standard encoding produces '+', '/' and '=' padding.
	inputs := []string{
		"a>>>@x.io",
		"???@x.io",
		"ab@c.de",
		"parent.name+school@example.org",
		"ÜBER@EXAMPLE.COM",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			key, err := NormalizeEmail(in)
			require.NoError(t, err)
			assert.False(t, strings.ContainsAny(key, "+/="), "key %q", key)
		})
	}
}

func TestNormalizeEmailMatchesManualSubstitution(t *testing.T) {
	in := "???>>>@school.test"
	std := base64.StdEncoding.EncodeToString([]byte(in))
	want := strings.TrimRight(strings.NewReplacer("+", "-", "/", "_").Replace(std), "=")

	got, err := NormalizeEmail(in)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNormalizeEmailStable(t *testing.T) {
	first, err := NormalizeEmail("teacher@fled.school")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := NormalizeEmail("teacher@fled.school")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNormalizeEmailRejectsBlank(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		_, err := NormalizeEmail(in)
		assert.ErrorIs(t, err, ErrEmptyEmail)
	}
}

func TestCanonicalEmail(t *testing.T) {
	assert.Equal(t, "foo@bar.com", CanonicalEmail("  FOO@Bar.COM\n"))
}
