package aggregator

import (
	"net/http"

	"github.com/dreamware/wordshard/internal/cluster"
)

// Handler returns the aggregator's HTTP API.
//
//	POST /learn    {"letter_range", "count", "words"}
//	GET  /results  {"results": [{"letter", "count", "words"}]}
//	GET  /stats    store counters
//	POST /nodes    topology snapshot (ignored)
//	GET  /health   liveness
func (a *Aggregator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /learn", a.handleLearn)
	mux.HandleFunc("GET /results", func(w http.ResponseWriter, _ *http.Request) {
		cluster.WriteJSON(w, http.StatusOK, ResultsResponse{Results: a.Results()})
	})
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, _ *http.Request) {
		cluster.WriteJSON(w, http.StatusOK, a.Stats())
	})
	mux.HandleFunc("POST /nodes", a.handleNodes)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (a *Aggregator) handleLearn(w http.ResponseWriter, r *http.Request) {
	var b cluster.Batch
	if err := cluster.DecodeJSON(r, &b); err != nil {
		cluster.WriteError(w, err)
		return
	}
	a.OnBatch(r.Context(), b)
	cluster.WriteStatus(w, "Learned")
}

func (a *Aggregator) handleNodes(w http.ResponseWriter, r *http.Request) {
	var snap cluster.Snapshot
	if err := cluster.DecodeJSON(r, &snap); err != nil {
		cluster.WriteError(w, err)
		return
	}
	a.OnTopologyUpdate(snap)
	cluster.WriteStatus(w, "Nodes updated")
}
