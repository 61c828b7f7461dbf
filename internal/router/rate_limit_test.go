package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func newPingEngine(client *redis.Client, rule RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(client, rule, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func ping(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":5678"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	r := newPingEngine(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1})
	w := ping(r, "1.2.3.4")
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected handler response body, got %s", w.Body.String())
	}
}

func TestRateLimitMiddlewareBlocksAfterLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := newPingEngine(client, RateLimitRule{Prefix: "test:rate:join", WindowSeconds: 60, MaxRequests: 2})
	for i := 0; i < 2; i++ {
		if w := ping(r, "1.2.3.4"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status want 200 got %d", i, w.Code)
		}
	}
	w := ping(r, "1.2.3.4")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status want 429 got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if w := ping(r, "5.6.7.8"); w.Code != http.StatusOK {
		t.Fatalf("other ip should not be limited, got %d", w.Code)
	}
	if !mr.Exists("test:rate:join:1.2.3.4") {
		t.Fatalf("expected prefixed counter key")
	}

	mr.FastForward(61 * time.Second)
	if w := ping(r, "1.2.3.4"); w.Code != http.StatusOK {
		t.Fatalf("window should reset, got %d", w.Code)
	}
}

func TestRateLimitMiddlewareRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	r := newPingEngine(client, RateLimitRule{WindowSeconds: 60, MaxRequests: 1})
	if w := ping(r, "1.2.3.4"); w.Code != http.StatusInternalServerError {
		t.Fatalf("status want 500 got %d", w.Code)
	}
}

func TestToInt64(t *testing.T) {
	cases := []struct {
		name  string
		input interface{}
		want  int64
		ok    bool
	}{
		{name: "int64", input: int64(10), want: 10, ok: true},
		{name: "int", input: int(11), want: 11, ok: true},
		{name: "float64", input: float64(13.9), want: 13, ok: true},
		{name: "string", input: "bad", want: 0, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := toInt64(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok want %v got %v", tc.ok, ok)
			}
			if got != tc.want {
				t.Fatalf("value want %d got %d", tc.want, got)
			}
		})
	}
}
