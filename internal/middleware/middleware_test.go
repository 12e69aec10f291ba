package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/advocate-booking/internal/config"
	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/repository"
	"github.com/iliyamo/advocate-booking/internal/utils"
)

const secret = "test-secret"

type resolver map[uint64]model.Actor

func (r resolver) ResolveActor(_ context.Context, id uint64) (model.Actor, error) {
	if id == 666 {
		return model.Actor{}, errors.New("db down")
	}
	a, ok := r[id]
	if !ok {
		return model.Actor{}, repository.ErrNotFound
	}
	return a, nil
}

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	clientID := uint64(3)
	e := echo.New()
	g := e.Group("", JWTAuth(secret), LoadActor(resolver{
		7: {UserID: 7, Role: model.RoleClient, ClientID: &clientID},
		8: {UserID: 8, Role: model.RoleAdmin},
	}))
	g.GET("/me", func(c echo.Context) error {
		a, ok := ActorFrom(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, echo.Map{"user": a.UserID, "role": a.Role})
	})
	g.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole(model.RoleAdmin))
	return e
}

func call(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, uid uint64, role model.Role, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, uid, role, ttl)
	require.NoError(t, err)
	return tok.Token
}

func TestAuthChain(t *testing.T) {
	e := newServer(t)

	assert.Equal(t, http.StatusUnauthorized, call(e, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(e, "/me", "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, call(e, "/me", token(t, 7, model.RoleClient, -time.Minute)).Code, "expired")

	other, err := utils.NewAccessToken("other-secret", 7, model.RoleClient, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(e, "/me", other.Token).Code)

	rec := call(e, "/me", token(t, 7, model.RoleClient, time.Minute))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":7,"role":"CLIENT"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call(e, "/me", token(t, 99, model.RoleClient, time.Minute)).Code, "unknown user")
	assert.Equal(t, http.StatusInternalServerError, call(e, "/me", token(t, 666, model.RoleClient, time.Minute)).Code)
}

func TestRequireRoleUsesStoredRole(t *testing.T) {
	e := newServer(t)
	assert.Equal(t, http.StatusNoContent, call(e, "/admin", token(t, 8, model.RoleAdmin, time.Minute)).Code)
	assert.Equal(t, http.StatusForbidden, call(e, "/admin", token(t, 7, model.RoleClient, time.Minute)).Code)
	// a forged admin claim for a client account is overridden by the stored role
	assert.Equal(t, http.StatusForbidden, call(e, "/admin", token(t, 7, model.RoleAdmin, time.Minute)).Code)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)
	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 0xff, 0xff})
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/advocates?page=2", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/advocates")

	cfg := config.CacheConfig{Prefix: "directory", KeyStrategy: "route_query"}
	k1 := cacheKeyFrom(cfg, c)
	assert.Contains(t, k1, "directory:")
	c.Request().URL.RawQuery = "page=3"
	assert.NotEqual(t, k1, cacheKeyFrom(cfg, c))

	rl := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}
	assert.Equal(t, "rl:ip:10.0.0.1:route:GET /v1/advocates", buildRateKey(rl, c))
	rl.KeyStrategy = "user"
	assert.Equal(t, "rl:user:anon", buildRateKey(rl, c))
	SetActor(c, model.Actor{UserID: 42, Role: model.RoleClient})
	assert.Equal(t, "rl:user:42", buildRateKey(rl, c))
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	called := false
	h := NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil)(func(echo.Context) error {
		called = true
		return nil
	})
	e := echo.New()
	require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())))
	assert.True(t, called)

	NewCachePurger(config.CacheConfig{}, nil)(context.Background())
}
