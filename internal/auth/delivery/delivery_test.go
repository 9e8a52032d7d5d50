package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authdomain "fled-backend/internal/auth/domain"
	"fled-backend/internal/auth/usecase"
	"fled-backend/internal/auth/verifier"
	schooldomain "fled-backend/internal/school/domain"
	schoolrepo "fled-backend/internal/school/repository"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopRemover struct{}

func (nopRemover) RemoveToken(context.Context, string) {}

type testServer struct {
	router *gin.Engine
	store  *schoolrepo.MemoryStore
	jwt    *verifier.JWTVerifier
}

func setupTestServer(t *testing.T, requiredRole string) *testServer {
	t.Helper()

	v, err := verifier.NewJWTVerifier("test-secret")
	require.NoError(t, err)
	store := schoolrepo.NewMemoryStore()
	authUc := usecase.NewAuthUsecase(v, schoolrepo.NewMemoryUserRepository(store), nopRemover{}, requiredRole, zerolog.Nop())
	handler := NewAuthHandler(authUc)

	router := gin.New()
	api := router.Group("/api")
	api.GET("/auth/me", AuthMiddleware(authUc), handler.Me)
	fcm := api.Group("/fcm")
	fcm.Use(AuthMiddleware(authUc))
	{
		fcm.POST("/register", handler.RegisterFCMToken)
		fcm.DELETE("/:token", handler.UnregisterFCMToken)
	}

	return &testServer{router: router, store: store, jwt: v}
}

func (s *testServer) token(t *testing.T, id *authdomain.Identity) string {
	t.Helper()
	raw, err := s.jwt.Sign(id, time.Hour)
	require.NoError(t, err)
	return raw
}

func (s *testServer) doRequest(method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareStatusCodes(t *testing.T) {
	s := setupTestServer(t, "teacher")
	s.store.PutUser(schooldomain.User{ID: "teacher-1", Role: "teacher"})
	s.store.PutUser(schooldomain.User{ID: "parent-1", Role: "parent"})

	tests := []struct {
		name       string
		auth       string
		wantStatus int
	}{
		{name: "no header", auth: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", auth: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "empty bearer", auth: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", auth: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "wrong role", auth: "Bearer " + s.token(t, &authdomain.Identity{UID: "parent-1"}), wantStatus: http.StatusForbidden},
		{name: "teacher", auth: "Bearer " + s.token(t, &authdomain.Identity{UID: "teacher-1"}), wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.doRequest(http.MethodGet, "/api/auth/me", tt.auth, nil)
			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.wantStatus != http.StatusOK {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestRegisterAndUnregisterFCMToken(t *testing.T) {
	s := setupTestServer(t, "")
	auth := "Bearer " + s.token(t, &authdomain.Identity{UID: "u1"})

	w := s.doRequest(http.MethodPost, "/api/fcm/register", auth, map[string]string{"token": "tok-1", "device": "ios"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.doRequest(http.MethodPost, "/api/fcm/register", auth, map[string]string{"device": "ios"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	u, ok := s.store.User("u1")
	require.True(t, ok)
	assert.Equal(t, []string{"tok-1"}, u.DeliveryTokens())

	w = s.doRequest(http.MethodGet, "/api/auth/me", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		User   authdomain.Identity `json:"user"`
		Tokens int                 `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "u1", me.User.UID)
	assert.Equal(t, 1, me.Tokens)

	w = s.doRequest(http.MethodDelete, "/api/fcm/tok-1", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	u, _ = s.store.User("u1")
	assert.Empty(t, u.DeliveryTokens())
}
