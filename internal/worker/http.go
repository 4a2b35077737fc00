package worker

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dreamware/wordshard/internal/cluster"
)

// Handler returns the worker's HTTP API.
//
//	POST /line       {"text"}
//	POST /set_range  {"range"}
//	POST /nodes      topology snapshot
//	GET  /info       current range and batch
//	GET  /health     liveness
func (w *Worker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /line", w.handleLine)
	mux.HandleFunc("POST /set_range", w.handleSetRange)
	mux.HandleFunc("POST /nodes", w.handleNodes)
	mux.HandleFunc("GET /info", func(rw http.ResponseWriter, _ *http.Request) {
		cluster.WriteJSON(rw, http.StatusOK, w.Info())
	})
	mux.HandleFunc("GET /health", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})
	return mux
}

func (w *Worker) handleLine(rw http.ResponseWriter, r *http.Request) {
	var req cluster.LineRequest
	if err := cluster.DecodeJSON(r, &req); err != nil {
		cluster.WriteError(rw, err)
		return
	}
	res, err := w.OnLine(context.WithoutCancel(r.Context()), req.Text)
	if err != nil {
		w.log.Warn("line rejected", "error", err)
		cluster.WriteError(rw, err)
		return
	}
	cluster.WriteStatus(rw, fmt.Sprintf("Processed line for range %s", res.Range))
}

func (w *Worker) handleSetRange(rw http.ResponseWriter, r *http.Request) {
	var req cluster.RangeRequest
	if err := cluster.DecodeJSON(r, &req); err != nil {
		cluster.WriteError(rw, err)
		return
	}
	rng, err := w.SetRange(req.Range)
	if err != nil {
		w.log.Warn("range rejected", "range", req.Range, "error", err)
		cluster.WriteError(rw, err)
		return
	}
	cluster.WriteStatus(rw, fmt.Sprintf("Range set to %s", rng))
}

func (w *Worker) handleNodes(rw http.ResponseWriter, r *http.Request) {
	var snap cluster.Snapshot
	if err := cluster.DecodeJSON(r, &snap); err != nil {
		cluster.WriteError(rw, err)
		return
	}
	w.OnTopologyUpdate(snap)
	cluster.WriteStatus(rw, "Nodes updated")
}
