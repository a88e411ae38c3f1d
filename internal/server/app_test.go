package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/hiinen/internal/server/config"
	"github.com/dmitrijs2005/hiinen/internal/server/services"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func testConfig(t *testing.T) *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDSN = "memory://"
	c.EndpointAddrHTTP = freeAddr(t)
	c.EndpointAddrGRPC = freeAddr(t)
	c.LogLevel = "error"
	return c
}

func TestNewApp_LocalMode(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	assert.Nil(t, app.redis)

	_, ok := app.newAuthenticator(nil, nil).(*services.LocalAuthenticator)
	assert.True(t, ok)
}

func TestNewApp_SupabaseMode(t *testing.T) {
	c := testConfig(t)
	c.AuthMode = config.AuthModeSupabase
	c.SupabaseURL = "http://127.0.0.1:54321"
	c.SupabaseAnonKey = "anon"

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	_, ok := app.newAuthenticator(nil, nil).(*services.SupabaseAuthenticator)
	assert.True(t, ok)
}

func TestNewApp_Errors(t *testing.T) {
	c := testConfig(t)
	c.LogFormat = "logrus"
	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "logger init error")

	c = testConfig(t)
	c.DatabaseDSN = "mysql://localhost/hiinen"
	_, err = NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "db init error")

	c = testConfig(t)
	c.RedisAddr = "127.0.0.1:1"
	_, err = NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "redis init error")
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	c := testConfig(t)
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + c.EndpointAddrHTTP + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		t.Fatal("app did not stop")
	}
}
