package verifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"fled-backend/internal/auth/domain"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifierRoundTrip(t *testing.T) {
	v, err := NewJWTVerifier("s3cret")
	require.NoError(t, err)

	raw, err := v.Sign(&domain.Identity{UID: "u1", Email: "t@school.org", Role: "teacher"}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, &domain.Identity{UID: "u1", Email: "t@school.org", Role: "teacher"}, id)
}

func TestJWTVerifierRejects(t *testing.T) {
	v, _ := NewJWTVerifier("s3cret")
	other, _ := NewJWTVerifier("other")

	expired, _ := v.Sign(&domain.Identity{UID: "u1"}, -time.Minute)
	foreign, _ := other.Sign(&domain.Identity{UID: "u1"}, time.Hour)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "x@y.z"}).SignedString([]byte("s3cret"))
	wrongAlg, _ := jwt.NewWithClaims(jwt.SigningMethodHS384, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("s3cret"))

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "expired", token: expired},
		{name: "wrong secret", token: foreign},
		{name: "no subject", token: noSubject},
		{name: "wrong algorithm", token: wrongAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewJWTVerifierRequiresSecret(t *testing.T) {
	_, err := NewJWTVerifier("")
	assert.Error(t, err)
}

type fakeIDTokens struct {
	token *auth.Token
	err   error
}

func (f fakeIDTokens) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return f.token, f.err
}

func TestFirebaseVerifier(t *testing.T) {
	v := &FirebaseVerifier{client: fakeIDTokens{token: &auth.Token{
		UID:    "fb-uid",
		Claims: map[string]interface{}{"email": "t@school.org", "role": "teacher"},
	}}}

	id, err := v.Verify(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "fb-uid", id.UID)
	assert.Equal(t, "t@school.org", id.Email)
	assert.Equal(t, "teacher", id.Role)

	v = &FirebaseVerifier{client: fakeIDTokens{err: errors.New("token expired")}}
	_, err = v.Verify(context.Background(), "id-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
