package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStorage(client, "limiter")
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStorageRoundTrip(t *testing.T) {
	s, mr := newRedisStorage(t)

	val, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, s.Set("k", []byte("v"), time.Minute))
	val, err = s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
	assert.True(t, mr.Exists("limiter:k"))

	mr.FastForward(2 * time.Minute)
	val, err = s.Get("k")
	require.NoError(t, err)
	assert.Nil(t, val, "expired")

	require.NoError(t, s.Set("a", []byte("1"), 0))
	require.NoError(t, s.Delete("a"))
	assert.False(t, mr.Exists("limiter:a"))
}

func TestRedisStorageResetKeepsOtherNamespaces(t *testing.T) {
	s, mr := newRedisStorage(t)
	require.NoError(t, mr.Set("other:key", "x"))
	require.NoError(t, s.Set("a", []byte("1"), 0))
	require.NoError(t, s.Set("b", []byte("2"), 0))

	require.NoError(t, s.Reset())
	assert.False(t, mr.Exists("limiter:a"))
	assert.False(t, mr.Exists("limiter:b"))
	assert.True(t, mr.Exists("other:key"))
}

func TestRateLimiterWithRedis(t *testing.T) {
	s, _ := newRedisStorage(t)

	app := fiber.New()
	app.Get("/", RateLimiter("test", 2, time.Minute, ByIP, s), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}
