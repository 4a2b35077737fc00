package validator

import (
	"context"
	"net/http"

	"github.com/dreamware/wordshard/internal/cluster"
)

// Handler returns the validator's HTTP API: POST /accept, POST /nodes and
// GET /health.
func (v *Validator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /accept", v.handleAccept)
	mux.HandleFunc("POST /nodes", v.handleNodes)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (v *Validator) handleAccept(w http.ResponseWriter, r *http.Request) {
	var b cluster.Batch
	if err := cluster.DecodeJSON(r, &b); err != nil {
		cluster.WriteError(w, err)
		return
	}
	if _, err := v.OnBatch(context.WithoutCancel(r.Context()), b); err != nil {
		cluster.WriteError(w, err)
		return
	}
	cluster.WriteStatus(w, "Accepted")
}

func (v *Validator) handleNodes(w http.ResponseWriter, r *http.Request) {
	var snap cluster.Snapshot
	if err := cluster.DecodeJSON(r, &snap); err != nil {
		cluster.WriteError(w, err)
		return
	}
	v.OnTopologyUpdate(snap)
	cluster.WriteStatus(w, "Nodes updated")
}
