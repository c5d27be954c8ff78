package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/bucket-probe/internal/probe"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHello(t *testing.T) {
	s := New(Options{ServiceName: "orders", Owner: "team-a"}, nil, nil)

	rec := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello World! My name is orders and my owner is team-a", rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := New(Options{}, nil, nil)

	rec := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIterations(t *testing.T) {
	rec := probe.NewMemoryRecorder()
	_, err := rec.Create("abc", 1, "abc")
	require.NoError(t, err)
	require.NoError(t, rec.MarkComplete("abc", 3))

	s := New(Options{}, rec, nil)

	t.Run("list", func(t *testing.T) {
		res := get(t, s.Handler(), "/iterations")
		require.Equal(t, http.StatusOK, res.Code)

		var its []probe.Iteration
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &its))
		require.Len(t, its, 1)
		assert.Equal(t, "abc", its[0].ID)
		assert.Equal(t, probe.StatusComplete, its[0].Status)
		assert.Equal(t, 3, its[0].Listed)
	})

	t.Run("get", func(t *testing.T) {
		res := get(t, s.Handler(), "/iterations/abc")
		require.Equal(t, http.StatusOK, res.Code)

		var it probe.Iteration
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &it))
		assert.Equal(t, 1, it.Sequence)
	})

	t.Run("not found", func(t *testing.T) {
		res := get(t, s.Handler(), "/iterations/missing")
		assert.Equal(t, http.StatusNotFound, res.Code)
		assert.JSONEq(t, `{"error":"iteration \"missing\" not found"}`, res.Body.String())
	})
}

func TestOptionalRoutes(t *testing.T) {
	s := New(Options{}, nil, nil)

	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/iterations").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/metrics").Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	s := New(Options{}, nil, reg)

	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_total 1")
}

func TestListenAndServe_ShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := New(Options{ServiceName: "svc", Owner: "me"}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, addr) }()

	var res *http.Response
	require.Eventually(t, func() bool {
		res, err = http.Get("http://" + addr + "/")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, "Hello World! My name is svc and my owner is me", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
