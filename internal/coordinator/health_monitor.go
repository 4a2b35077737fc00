package coordinator

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dreamware/wordshard/internal/cluster"
	"github.com/dreamware/wordshard/internal/logger"
)

// Health states reported by GET /health/nodes.
const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// NodeHealth tracks the health status of a single registered node.
// Thread-safe: Protected by HealthMonitor's mutex when accessed.
type NodeHealth struct {
	LastCheck        time.Time `json:"last_check"`   // Timestamp of the last health check attempt
	LastHealthy      time.Time `json:"last_healthy"` // Timestamp of the last successful health check
	URL              string    `json:"url"`          // Base URL the node registered with
	Type             string    `json:"type"`         // worker, validator or aggregator
	Status           string    `json:"status"`       // unknown, healthy or unhealthy
	ConsecutiveFails int       `json:"consecutive_fails"`
}

// HealthMonitor periodically probes every registered node's /health
// endpoint. It only reports: an unhealthy node is never removed from the
// registry and its range is not reassigned.
//
// Thread-safe: All methods are safe for concurrent access.
type HealthMonitor struct {
	nodes       map[string]*NodeHealth // Current health status per URL
	httpClient  *http.Client           // HTTP client for health checks
	checkFunc   func(url string) error // Function to perform health check
	onUnhealthy func(m cluster.Member) // Callback when a node becomes unhealthy
	log         *logger.Logger         // Structured logger
	ctx         context.Context        // Context for cancellation
	cancel      context.CancelFunc     // Cancel function for shutdown
	interval    time.Duration          // How often to check node health
	mu          sync.RWMutex           // Protects nodes map
	wg          sync.WaitGroup         // Wait group for graceful shutdown
	maxFailures int                    // Failures before marking unhealthy
}

// NewHealthMonitor creates a monitor that checks each node every interval
// and marks it unhealthy after 3 consecutive failures.
//
// Example:
//
//	monitor := NewHealthMonitor(5*time.Second, log)
//	go monitor.Start(ctx, coord.Members)
func NewHealthMonitor(interval time.Duration, log *logger.Logger) *HealthMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	if log == nil {
		log = logger.NewNop()
	}

	return &HealthMonitor{
		interval:    interval,
		maxFailures: 3,
		nodes:       make(map[string]*NodeHealth),
		httpClient: &http.Client{
			Timeout: 2 * time.Second,
		},
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetOnUnhealthy sets the callback invoked when a node crosses the failure
// threshold. It runs on its own goroutine.
func (h *HealthMonitor) SetOnUnhealthy(callback func(m cluster.Member)) {
	h.onUnhealthy = callback
}

// SetCheckFunction overrides the HTTP probe. Tests use it to script
// failures without a network.
func (h *HealthMonitor) SetCheckFunction(checkFunc func(url string) error) {
	h.checkFunc = checkFunc
}

// Start checks every node returned by members immediately and then every
// interval. It blocks until ctx is canceled or Stop is called.
func (h *HealthMonitor) Start(ctx context.Context, members func() []cluster.Member) {
	h.wg.Add(1)
	defer h.wg.Done()

	if h.checkFunc == nil {
		h.checkFunc = h.defaultHealthCheck
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.log.Info("health monitor started", "interval", h.interval)
	h.checkAllNodes(members())

	for {
		select {
		case <-ticker.C:
			h.checkAllNodes(members())
		case <-ctx.Done():
			h.log.Debug("health monitor stopping", "reason", "context canceled")
			return
		case <-h.ctx.Done():
			h.log.Debug("health monitor stopping", "reason", "stopped")
			return
		}
	}
}

// Stop cancels the monitoring loop and waits for it to return.
func (h *HealthMonitor) Stop() {
	h.cancel()
	h.wg.Wait()
}

func (h *HealthMonitor) checkAllNodes(members []cluster.Member) {
	current := make(map[string]bool, len(members))
	for _, m := range members {
		current[m.URL] = true
		h.checkNode(m)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for url := range h.nodes {
		if !current[url] {
			delete(h.nodes, url)
		}
	}
}

func (h *HealthMonitor) checkNode(m cluster.Member) {
	h.mu.Lock()
	health, exists := h.nodes[m.URL]
	if !exists {
		health = &NodeHealth{URL: m.URL, Type: m.Type.String(), Status: StatusUnknown}
		h.nodes[m.URL] = health
	}
	h.mu.Unlock()

	err := h.checkFunc(m.URL)

	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	health.LastCheck = now
	if err != nil {
		health.ConsecutiveFails++
		h.log.Warn("health check failed",
			"url", m.URL, "attempt", health.ConsecutiveFails, "max", h.maxFailures, "error", err)

		if health.ConsecutiveFails >= h.maxFailures && health.Status != StatusUnhealthy {
			health.Status = StatusUnhealthy
			h.log.Error("node unhealthy", "url", m.URL, "type", health.Type, "failures", health.ConsecutiveFails)
			if h.onUnhealthy != nil {
				go h.onUnhealthy(m)
			}
		}
		return
	}

	if health.Status == StatusUnhealthy {
		h.log.Info("node recovered", "url", m.URL)
	}
	health.Status = StatusHealthy
	health.ConsecutiveFails = 0
	health.LastHealthy = now
}

func (h *HealthMonitor) defaultHealthCheck(url string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	url = strings.TrimRight(url, "/") + "/health"

	resp, err := h.httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// GetAllNodeHealth returns a copy of every record keyed by URL.
func (h *HealthMonitor) GetAllNodeHealth() map[string]*NodeHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]*NodeHealth, len(h.nodes))
	for url, health := range h.nodes {
		cp := *health
		result[url] = &cp
	}
	return result
}
