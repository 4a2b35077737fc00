package coordinator

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/wordshard/internal/cluster"
	"github.com/dreamware/wordshard/internal/transport/transporttest"
)

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

// TestHandleHome tests the welcome endpoint
func TestHandleHome(t *testing.T) {
	c, _ := newTestCoordinator(t, nil)

	rr := serve(t, c.Handler(), http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Welcome to the Coordinator Node!", decode[cluster.MessageResponse](t, rr).Message)

	rr = serve(t, c.Handler(), http.MethodGet, "/unknown", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// TestHandleRegister tests the registration endpoint
func TestHandleRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{name: "worker", body: `{"type":"worker","url":"http://w1"}`, wantStatus: http.StatusOK, wantBody: "Registered"},
		{name: "legacy alias", body: `{"type":"learner","url":"http://agg"}`, wantStatus: http.StatusOK, wantBody: "Registered"},
		{name: "missing url", body: `{"type":"worker"}`, wantStatus: http.StatusBadRequest, wantBody: "missing type or url"},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest, wantBody: "missing type or url"},
		{name: "unknown type", body: `{"type":"observer","url":"http://o"}`, wantStatus: http.StatusBadRequest, wantBody: "invalid node type"},
		{name: "malformed json", body: `{"type":`, wantStatus: http.StatusBadRequest, wantBody: "bad json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCoordinator(t, nil)

			rr := serve(t, c.Handler(), http.MethodPost, "/register", tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
		})
	}
}

// TestHandleStart tests document dispatch over HTTP
func TestHandleStart(t *testing.T) {
	c, rec := newTestCoordinator(t, mapSource{
		"doc.txt":       {"Cat dog", "eagle"},
		DefaultDocument: {"sample"},
	})
	mustRegister(t, c, "worker", "http://w1")
	rec.Reset()

	rr := serve(t, c.Handler(), http.MethodPost, "/start", `{"filename":"doc.txt"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[StartResponse](t, rr)
	assert.Equal(t, "Document processed", resp.Status)
	assert.Equal(t, 2, resp.Lines)
	assert.Equal(t, 2, resp.Sends)
	assert.Len(t, rec.To("http://w1/line"), 2)

	rr = serve(t, c.Handler(), http.MethodPost, "/start", `{}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[StartResponse](t, rr).Lines)

	rr = serve(t, c.Handler(), http.MethodPost, "/start", `{"filename":"missing.txt"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, decode[cluster.ErrorResponse](t, rr).Error, "source unavailable")
}

// TestHandleNodes tests the topology endpoint
func TestHandleNodes(t *testing.T) {
	c, _ := newTestCoordinator(t, nil)
	mustRegister(t, c, "worker", "http://w1")
	mustRegister(t, c, "validator", "http://v1")

	rr := serve(t, c.Handler(), http.MethodGet, "/nodes", "")

	require.Equal(t, http.StatusOK, rr.Code)
	snap := decode[cluster.Snapshot](t, rr)
	require.Len(t, snap.Workers, 1)
	assert.Equal(t, "A-Z", snap.Workers[0].Range.String())
	assert.Equal(t, []cluster.NodeRef{{URL: "http://v1"}}, snap.Validators)
	assert.Nil(t, snap.Aggregator)
	assert.Equal(t, uint64(2), snap.Version)
}

// TestHandleHealth tests liveness and per-node health reporting
func TestHandleHealth(t *testing.T) {
	t.Run("liveness", func(t *testing.T) {
		c, _ := newTestCoordinator(t, nil)
		rr := serve(t, c.Handler(), http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("no monitor", func(t *testing.T) {
		c, _ := newTestCoordinator(t, nil)
		rr := serve(t, c.Handler(), http.MethodGet, "/health/nodes", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"nodes":[]}`, rr.Body.String())
	})

	t.Run("with monitor", func(t *testing.T) {
		monitor := NewHealthMonitor(time.Hour, nil)
		monitor.SetCheckFunction(func(url string) error {
			if url == "http://v1" {
				return errors.New("down")
			}
			return nil
		})
		c := New(Options{Sender: transporttest.NewRecorder(), Source: mapSource{}, Monitor: monitor})
		mustRegister(t, c, "worker", "http://w1")
		mustRegister(t, c, "validator", "http://v1")
		monitor.checkAllNodes(c.Members())

		rr := serve(t, c.Handler(), http.MethodGet, "/health/nodes", "")

		require.Equal(t, http.StatusOK, rr.Code)
		health := decode[NodeHealthResponse](t, rr).Nodes
		require.Len(t, health, 2)
		assert.Equal(t, "http://v1", health[0].URL)
		assert.Equal(t, 1, health[0].ConsecutiveFails)
		assert.Equal(t, StatusUnknown, health[0].Status)
		assert.Equal(t, "http://w1", health[1].URL)
		assert.Equal(t, StatusHealthy, health[1].Status)
		assert.Equal(t, "worker", health[1].Type)
	})
}
