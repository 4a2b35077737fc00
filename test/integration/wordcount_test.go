package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/wordshard/internal/aggregator"
	"github.com/dreamware/wordshard/internal/cluster"
	"github.com/dreamware/wordshard/internal/coordinator"
	"github.com/dreamware/wordshard/internal/logger"
	"github.com/dreamware/wordshard/internal/node"
	"github.com/dreamware/wordshard/internal/storage"
	"github.com/dreamware/wordshard/internal/transport"
	"github.com/dreamware/wordshard/internal/validator"
	"github.com/dreamware/wordshard/internal/worker"
)

func newSender() *transport.HTTPSender {
	return transport.NewHTTPSender(transport.RetryPolicy{MaxAttempts: 3, Delay: 10 * time.Millisecond})
}

func writeDoc(t *testing.T, content string) (dir, name string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"), []byte(content), 0o644))
	return dir, "doc.txt"
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func results(t *testing.T, aggURL string) map[string]storage.Row {
	t.Helper()
	var resp aggregator.ResultsResponse
	require.NoError(t, cluster.GetJSON(context.Background(), aggURL+"/results", &resp))
	out := make(map[string]storage.Row, len(resp.Results))
	for _, r := range resp.Results {
		out[r.Letter] = r
	}
	return out
}

// testCluster runs every role in process behind httptest servers.
type testCluster struct {
	coord      *coordinator.Coordinator
	coordURL   string
	aggregator *aggregator.Aggregator
	aggURL     string
	workers    []string
	validators []string
}

func startCluster(t *testing.T, dir string, workers, validators int) *testCluster {
	t.Helper()
	sender := newSender()
	tc := &testCluster{}

	tc.coord = coordinator.New(coordinator.Options{Sender: sender, Source: coordinator.FileSource{Dir: dir}})
	coordSrv := httptest.NewServer(tc.coord.Handler())
	t.Cleanup(coordSrv.Close)
	tc.coordURL = coordSrv.URL

	tc.aggregator = aggregator.New(aggregator.Options{Store: storage.NewMemoryStore()})
	aggSrv := httptest.NewServer(tc.aggregator.Handler())
	t.Cleanup(aggSrv.Close)
	tc.aggURL = aggSrv.URL

	for i := 0; i < validators; i++ {
		srv := httptest.NewServer(validator.New(validator.Options{Sender: sender}).Handler())
		t.Cleanup(srv.Close)
		tc.validators = append(tc.validators, srv.URL)
	}
	for i := 0; i < workers; i++ {
		srv := httptest.NewServer(worker.New(worker.Options{Sender: sender}).Handler())
		t.Cleanup(srv.Close)
		tc.workers = append(tc.workers, srv.URL)
	}

	register := func(typ cluster.NodeType, url string) {
		reg := node.Registration{CoordinatorURL: tc.coordURL, PublicURL: url, Type: typ}
		require.NoError(t, node.Register(context.Background(), sender, reg, logger.NewNop()))
	}
	register(cluster.NodeAggregator, tc.aggURL)
	for _, url := range tc.validators {
		register(cluster.NodeValidator, url)
	}
	for _, url := range tc.workers {
		register(cluster.NodeWorker, url)
	}
	return tc
}

// TestWordCount runs a document through every role over real HTTP
func TestWordCount(t *testing.T) {
	dir, name := writeDoc(t, "Cat dog\neagle Cat\n\n  Zebra apple!  \n")
	tc := startCluster(t, dir, 2, 3)

	var snap cluster.Snapshot
	require.NoError(t, cluster.GetJSON(context.Background(), tc.coordURL+"/nodes", &snap))
	require.Len(t, snap.Workers, 2)
	assert.Equal(t, "A-M", snap.Workers[0].Range.String())
	assert.Equal(t, "N-Z", snap.Workers[1].Range.String())
	assert.Len(t, snap.Validators, 3)

	resp := postJSON(t, tc.coordURL+"/start", cluster.StartRequest{Filename: name})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report coordinator.StartResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, "Document processed", report.Status)
	assert.Equal(t, 3, report.Lines)
	assert.Equal(t, 6, report.Sends)
	assert.Zero(t, report.Failed)

	got := results(t, tc.aggURL)
	assert.Equal(t, map[string]storage.Row{
		"A": {Letter: "A", Words: "apple", Count: 1},
		"C": {Letter: "C", Words: "cat", Count: 1},
		"D": {Letter: "D", Words: "dog", Count: 1},
		"E": {Letter: "E", Words: "eagle", Count: 1},
		"Z": {Letter: "Z", Words: "zebra", Count: 1},
	}, got)

	stats := tc.aggregator.Stats()
	assert.Equal(t, 5, stats.Words)
	assert.Positive(t, stats.Duplicates, "cumulative batches from two validators overlap")

	var info worker.Info
	require.NoError(t, cluster.GetJSON(context.Background(), tc.workers[0]+"/info", &info))
	assert.Equal(t, []string{"cat", "dog", "eagle", "cat", "apple"}, info.Words)
	assert.Equal(t, tc.validators[:2], info.Validators)
}

// TestWordCountReplay tests that processing a document twice changes nothing
func TestWordCountReplay(t *testing.T) {
	dir, name := writeDoc(t, "alpha beta\nbeta gamma\n")
	tc := startCluster(t, dir, 1, 1)

	postJSON(t, tc.coordURL+"/start", cluster.StartRequest{Filename: name})
	first := results(t, tc.aggURL)
	postJSON(t, tc.coordURL+"/start", cluster.StartRequest{Filename: name})

	assert.Equal(t, first, results(t, tc.aggURL))
	assert.Equal(t, 1, first["B"].Count)
}

// TestInconsistentBatchRejected tests that validators stop bad batches
func TestInconsistentBatchRejected(t *testing.T) {
	dir, _ := writeDoc(t, "")
	tc := startCluster(t, dir, 1, 1)

	resp := postJSON(t, tc.validators[0]+"/accept", cluster.Batch{LetterRange: "A-M", Count: 1, Words: []string{"zebra"}})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, results(t, tc.aggURL))
}

// TestMissingDocument tests the error surfaced by POST /start
func TestMissingDocument(t *testing.T) {
	dir, _ := writeDoc(t, "")
	tc := startCluster(t, dir, 1, 1)

	resp := postJSON(t, tc.coordURL+"/start", cluster.StartRequest{Filename: "nope.txt"})

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body cluster.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "source unavailable")
}

func listen(t *testing.T) (net.Listener, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln, "http://" + ln.Addr().String()
}

// TestSelfRegistration starts every role with node.Run and lets them
// register on their own
func TestSelfRegistration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sender := newSender()
	dir, name := writeDoc(t, "Cat dog\neagle Cat\n")

	coordLn, coordURL := listen(t)
	coord := coordinator.New(coordinator.Options{Sender: sender, Source: coordinator.FileSource{Dir: dir}})

	done := make(chan error, 4)
	go func() {
		done <- node.Run(ctx, node.Options{Handler: coord.Handler(), Listener: coordLn})
	}()

	aggLn, aggURL := listen(t)
	agg := aggregator.New(aggregator.Options{Store: storage.NewMemoryStore()})
	valLn, valURL := listen(t)
	val := validator.New(validator.Options{Sender: sender})
	wrkLn, wrkURL := listen(t)
	wrk := worker.New(worker.Options{Sender: sender})

	roles := []struct {
		ln      net.Listener
		url     string
		typ     cluster.NodeType
		handler http.Handler
	}{
		{aggLn, aggURL, cluster.NodeAggregator, agg.Handler()},
		{valLn, valURL, cluster.NodeValidator, val.Handler()},
		{wrkLn, wrkURL, cluster.NodeWorker, wrk.Handler()},
	}
	for _, r := range roles {
		opts := node.Options{
			Handler:  r.handler,
			Listener: r.ln,
			Sender:   sender,
			Register: &node.Registration{CoordinatorURL: coordURL, PublicURL: r.url, Type: r.typ},
		}
		go func() { done <- node.Run(ctx, opts) }()
	}

	require.Eventually(t, func() bool {
		reg := coord.Registry()
		_, hasAgg := coord.Snapshot().AggregatorURL()
		return reg.WorkerCount() == 1 && reg.ValidatorCount() == 1 && hasAgg
	}, 5*time.Second, 20*time.Millisecond)

	// Registrations race; push the settled topology once more.
	coord.BroadcastTopology(ctx)
	require.Eventually(t, func() bool {
		_, hasRange := wrk.Range()
		_, hasAgg := val.Topology().AggregatorURL()
		return hasRange && hasAgg && len(wrk.Topology().Validators) == 1
	}, 5*time.Second, 20*time.Millisecond)

	report, err := coord.DispatchDocument(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Lines)

	assert.Equal(t, []storage.Row{
		{Letter: "C", Words: "cat", Count: 1},
		{Letter: "D", Words: "dog", Count: 1},
		{Letter: "E", Words: "eagle", Count: 1},
	}, agg.Results())
	assert.Equal(t, map[string]storage.Row{
		"C": {Letter: "C", Words: "cat", Count: 1},
		"D": {Letter: "D", Words: "dog", Count: 1},
		"E": {Letter: "E", Words: "eagle", Count: 1},
	}, results(t, aggURL), "GET /results serves the same rows")

	cancel()
	for i := 0; i < 4; i++ {
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Fatal("node did not shut down")
		}
	}
}
