package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/hiinen/internal/logging"
	"github.com/dmitrijs2005/hiinen/internal/server/auth"
	"github.com/dmitrijs2005/hiinen/internal/server/cofounder"
	"github.com/dmitrijs2005/hiinen/internal/server/http/middleware"
	"github.com/dmitrijs2005/hiinen/internal/server/llm"
	"github.com/dmitrijs2005/hiinen/internal/server/metrics"
	"github.com/dmitrijs2005/hiinen/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hiinen/internal/server/services"
	"github.com/dmitrijs2005/hiinen/internal/server/sessions"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type noAvatars struct{}

func (noAvatars) PresignUpload(context.Context, string, string) (string, string, error) {
	return "http://s3/upload", "http://s3/avatars/a.png", nil
}

func newTestRouter(t *testing.T, requireAuthForAI bool) *gin.Engine {
	t.Helper()

	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"test-model","choices":[{"message":{"role":"assistant","content":"Focus on customers."},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`))
	}))
	t.Cleanup(model.Close)

	logger := logging.Nop()
	repos := repomanager.NewMemoryRepositoryManager()
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	authenticator := services.NewLocalAuthenticator(repos, hasher,
		auth.NewTokenIssuer([]byte("secret"), 15*time.Minute), sessions.NewMemoryDenylist(), time.Hour)
	accounts := services.NewUserService(repos.Users(), authenticator, hasher, noAvatars{}, "http://localhost:3000", logger)

	m := metrics.New(prometheus.NewRegistry())
	client := llm.NewClient(model.URL, "test-model", "key", time.Second, llm.WithRecorder(m))

	return NewRouter(RouterConfig{
		Accounts:         accounts,
		Authenticator:    accounts,
		CoFounder:        cofounder.NewService(client, client.Model(), logger),
		Metrics:          m,
		Logger:           logger,
		RateLimiter:      middleware.NewRateLimiter(0),
		RequestTimeout:   5 * time.Second,
		RequireAuthForAI: requireAuthForAI,
	})
}

func call(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_AccountFlow(t *testing.T) {
	r := newTestRouter(t, false)

	w := call(r, http.MethodPost, "/api/auth/signup", "", gin.H{
		"email": "ada@example.com", "password": "secret1", "fullName": "Ada Lovelace", "userType": "entrepreneur",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = call(r, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"ada@example.com"`)
	assert.NotContains(t, w.Body.String(), "password")

	w = call(r, http.MethodPatch, "/api/users/me", login.Token, gin.H{"bio": "Building HiiNen", "location": "Lagos"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"bio":"Building HiiNen"`)

	w = call(r, http.MethodPost, "/api/users/me/avatar", login.Token, gin.H{"contentType": "image/png"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(r, http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": login.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(r, http.MethodPost, "/api/auth/refresh", "", gin.H{"refreshToken": login.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(r, http.MethodPost, "/api/auth/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(r, http.MethodGet, "/api/auth/me", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid token"}`, w.Body.String())
}

func TestRouter_ProtectedRoutesNeedToken(t *testing.T) {
	r := newTestRouter(t, false)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/auth/logout"},
		{http.MethodPatch, "/api/users/me"},
		{http.MethodPost, "/api/users/me/password"},
		{http.MethodPost, "/api/users/me/avatar"},
	} {
		w := call(r, route.method, route.path, "", gin.H{})
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
		assert.JSONEq(t, `{"error":"Access denied. No token provided."}`, w.Body.String())
	}
}

func TestRouter_LocalModeHasNoOAuth(t *testing.T) {
	w := call(newTestRouter(t, false), http.MethodPost, "/api/auth/google", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"OAuth is not available"}`, w.Body.String())
}

func TestRouter_AIRoutes(t *testing.T) {
	r := newTestRouter(t, false)

	w := call(r, http.MethodPost, "/api/ai/chat", "", gin.H{"message": "How do I find customers?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"response":"Focus on customers.","usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`, w.Body.String())

	w = call(r, http.MethodGet, "/api/ai/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"model":"test-model"`)

	w = call(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `hiinen_http_requests_total{method="POST",route="/api/ai/chat",status="200"} 1`)
	assert.Contains(t, w.Body.String(), `hiinen_llm_completions_total{outcome="ok"} 2`)
}

func TestRouter_AIBehindAuth(t *testing.T) {
	r := newTestRouter(t, true)

	w := call(r, http.MethodPost, "/api/ai/chat", "", gin.H{"message": "hi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Healthz(t *testing.T) {
	w := call(newTestRouter(t, false), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServer_ShutsDownOnCancel(t *testing.T) {
	listen, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(listen.Addr().String(), newTestRouter(t, false), logging.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, listen) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listen.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
