package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/furnish-backend/internal/modules/auth"
	"github.com/georgemunganga/furnish-backend/internal/modules/user"
	"github.com/georgemunganga/furnish-backend/internal/storage/memory"
)

const secret = "test-secret"

func newAuth(t *testing.T) auth.Service {
	t.Helper()
	repo := memory.New().Users()
	users := user.NewServiceWithCost(repo, bcrypt.MinCost)
	_, err := users.CreateUser(context.Background(), user.CreateUserRequest{Email: "admin@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	return auth.NewService(repo, secret, time.Hour)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc := newAuth(t)

	token, err := svc.Login(context.Background(), "Admin@Example.com", "s3cret-pass")
	require.NoError(t, err)

	userID, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.NotEmpty(t, userID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newAuth(t)

	_, err := svc.Login(context.Background(), "admin@example.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAuthenticateRejectsForeignTokens(t *testing.T) {
	svc := newAuth(t)

	sign := func(claims jwt.StandardClaims, key string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
		require.NoError(t, err)
		return s
	}
	now := time.Now()
	tests := map[string]string{
		"garbage":      "not.a.token",
		"wrong key":    sign(jwt.StandardClaims{Subject: "u", Issuer: "furnish-backend", ExpiresAt: now.Add(time.Hour).Unix()}, "other"),
		"wrong issuer": sign(jwt.StandardClaims{Subject: "u", Issuer: "someone-else", ExpiresAt: now.Add(time.Hour).Unix()}, secret),
		"expired":      sign(jwt.StandardClaims{Subject: "u", Issuer: "furnish-backend", ExpiresAt: now.Add(-time.Minute).Unix()}, secret),
		"no subject":   sign(jwt.StandardClaims{Issuer: "furnish-backend", ExpiresAt: now.Add(time.Hour).Unix()}, secret),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestRequireAdminMiddleware(t *testing.T) {
	svc := newAuth(t)
	token, err := svc.Login(context.Background(), "admin@example.com", "s3cret-pass")
	require.NoError(t, err)

	r := chi.NewRouter()
	auth.NewHandler(svc).RegisterRoutes(r)
	r.With(auth.RequireAdmin(svc)).Get("/admin/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(auth.UserID(r.Context())))
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}

func TestLoginEndpoint(t *testing.T) {
	svc := newAuth(t)
	r := chi.NewRouter()
	auth.NewHandler(svc).RegisterRoutes(r)

	login := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, login(`{"email":"admin@example.com","password":"s3cret-pass"}`))
	assert.Equal(t, http.StatusUnauthorized, login(`{"email":"admin@example.com","password":"nope"}`))
	assert.Equal(t, http.StatusBadRequest, login(`{`))
}
