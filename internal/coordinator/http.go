package coordinator

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/dreamware/wordshard/internal/cluster"
)

// StartResponse is returned by POST /start.
type StartResponse struct {
	Status string `json:"status"`
	DispatchReport
}

// NodeHealthResponse is returned by GET /health/nodes, sorted by URL.
type NodeHealthResponse struct {
	Nodes []NodeHealth `json:"nodes"`
}

// Handler returns the coordinator's HTTP API.
//
//	GET  /              welcome message
//	POST /register      {"type", "url"}
//	POST /start         {"filename"}
//	GET  /nodes         current topology snapshot
//	GET  /health        liveness
//	GET  /health/nodes  last health check per node (when monitoring is on)
func (c *Coordinator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", c.handleHome)
	mux.HandleFunc("POST /register", c.handleRegister)
	mux.HandleFunc("POST /start", c.handleStart)
	mux.HandleFunc("GET /nodes", c.handleNodes)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /health/nodes", c.handleNodeHealth)
	return mux
}

func (c *Coordinator) handleHome(w http.ResponseWriter, _ *http.Request) {
	cluster.WriteJSON(w, http.StatusOK, cluster.MessageResponse{Message: "Welcome to the Coordinator Node!"})
}

func (c *Coordinator) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req cluster.RegisterRequest
	if err := cluster.DecodeJSON(r, &req); err != nil {
		cluster.WriteError(w, err)
		return
	}
	// Fan-out continues even if the registering node hangs up.
	ctx := context.WithoutCancel(r.Context())
	if err := c.RegisterNode(ctx, req.Type, req.URL); err != nil {
		c.log.Warn("registration rejected", "type", req.Type, "url", req.URL, "error", err)
		cluster.WriteError(w, err)
		return
	}
	cluster.WriteStatus(w, "Registered")
}

func (c *Coordinator) handleStart(w http.ResponseWriter, r *http.Request) {
	var req cluster.StartRequest
	if err := cluster.DecodeJSON(r, &req); err != nil {
		cluster.WriteError(w, err)
		return
	}
	report, err := c.DispatchDocument(context.WithoutCancel(r.Context()), req.Filename)
	if err != nil {
		c.log.Error("dispatch failed", "filename", req.Filename, "error", err)
		cluster.WriteError(w, err)
		return
	}
	cluster.WriteJSON(w, http.StatusOK, StartResponse{Status: "Document processed", DispatchReport: report})
}

func (c *Coordinator) handleNodes(w http.ResponseWriter, _ *http.Request) {
	cluster.WriteJSON(w, http.StatusOK, c.Snapshot())
}

func (c *Coordinator) handleNodeHealth(w http.ResponseWriter, _ *http.Request) {
	resp := NodeHealthResponse{Nodes: []NodeHealth{}}
	if c.monitor != nil {
		for _, h := range c.monitor.GetAllNodeHealth() {
			resp.Nodes = append(resp.Nodes, *h)
		}
		slices.SortFunc(resp.Nodes, func(a, b NodeHealth) int { return strings.Compare(a.URL, b.URL) })
	}
	cluster.WriteJSON(w, http.StatusOK, resp)
}
