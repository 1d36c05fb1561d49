package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "hirelane/pkg/domain"
	"hirelane/pkg/requestcontext"
)

const testSigningKey = "unit-test-signing-key"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	return signed
}

func authChain(t *testing.T) (http.Handler, *id.AccountRef, *[]string) {
	t.Helper()
	var gotActor id.AccountRef
	var gotRoles []string

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor = requestcontext.ActorRef(r.Context())
		gotRoles = requestcontext.ActorRoles(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	validator := NewHMACValidator(testSigningKey)
	logger := slog.New(slog.DiscardHandler)
	return RequireAuth(validator, logger)(inner), &gotActor, &gotRoles
}

func TestRequireAuth_ValidToken(t *testing.T) {
	handler, gotActor, gotRoles := authChain(t)
	account := uuid.New()

	token := signToken(t, jwt.MapClaims{
		"sub":   account.String(),
		"roles": []any{"APPLICANT"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id.AccountRef(account), *gotActor)
	assert.Equal(t, []string{"APPLICANT"}, *gotRoles)
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	handler, _, _ := authChain(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	handler, _, _ := authChain(t)

	token := signToken(t, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_TokenWithoutExpiry(t *testing.T) {
	handler, _, _ := authChain(t)

	token := signToken(t, jwt.MapClaims{"sub": uuid.NewString()})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_MalformedSubject(t *testing.T) {
	handler, _, _ := authChain(t)

	token := signToken(t, jwt.MapClaims{
		"sub": "not-a-uuid",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClientMetadata_ParsesUserAgent(t *testing.T) {
	var gotInfo, gotIP string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotInfo = requestcontext.ClientInfo(r.Context())
		gotIP = requestcontext.ClientIP(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()

	ClientMetadata(inner).ServeHTTP(rec, req)

	assert.Equal(t, "203.0.113.7", gotIP)
	assert.Contains(t, gotInfo, "Chrome")
	assert.Contains(t, gotInfo, "Linux")
}
