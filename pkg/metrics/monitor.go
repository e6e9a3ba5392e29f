package metrics

import (
	"sync"
	"time"
)

// Snapshot is a read-only copy of the monitor's counters.
type Snapshot struct {
	TotalQueries int64 `json:"total_queries"`

	// CostSavings accumulates (baseline - actual) per recorded query,
	// where baseline is the configured cost of always using the most
	// expensive backend.
	CostSavings float64 `json:"cost_savings"`

	// QualityRetention is reserved for a future quality/cost tradeoff
	// measurement.
	QualityRetention float64 `json:"quality_retention"`

	AverageLatency time.Duration    `json:"average_latency"`
	ModelUsage     map[string]int64 `json:"model_usage"`

	// Dropped counts samples discarded because the queue was full.
	Dropped int64 `json:"dropped,omitempty"`
}

type sample struct {
	model   string
	cost    float64
	latency time.Duration

	// flush requests are acknowledged once every earlier sample has
	// been applied.
	flush chan struct{}
}

// Monitor accumulates process-wide query metrics. Samples flow through a
// buffered queue into a single writer goroutine, so Record never blocks
// the request path: when the queue is full the sample is dropped.
type Monitor struct {
	baselineCost float64
	queue        chan sample
	stop         chan struct{}
	stopped      sync.WaitGroup

	mu           sync.RWMutex
	totalQueries int64
	costSavings  float64
	avgLatencyNs float64
	modelUsage   map[string]int64
	dropped      int64
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithQueueSize sets the sample queue capacity.
func WithQueueSize(n int) Option {
	return func(m *Monitor) {
		m.queue = make(chan sample, n)
	}
}

// NewMonitor creates a monitor and starts its writer goroutine.
func NewMonitor(baselineCost float64, opts ...Option) *Monitor {
	m := &Monitor{
		baselineCost: baselineCost,
		queue:        make(chan sample, 1024),
		stop:         make(chan struct{}),
		modelUsage:   make(map[string]int64),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.stopped.Add(1)
	go m.run()
	return m
}

// Record registers one completed query. Fire and forget: it never blocks
// and never fails the caller.
func (m *Monitor) Record(model string, cost float64, latency time.Duration) {
	select {
	case m.queue <- sample{model: model, cost: cost, latency: latency}:
	default:
		m.mu.Lock()
		m.dropped++
		m.mu.Unlock()
	}
}

// Flush blocks until every sample recorded before the call is applied.
// Intended for tests and shutdown paths.
func (m *Monitor) Flush() {
	ack := make(chan struct{})
	select {
	case m.queue <- sample{flush: ack}:
		<-ack
	case <-m.stop:
	}
}

// Close stops the writer goroutine after draining queued samples.
func (m *Monitor) Close() {
	close(m.stop)
	m.stopped.Wait()
}

// Snapshot returns a copy of the current counters.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	usage := make(map[string]int64, len(m.modelUsage))
	for k, v := range m.modelUsage {
		usage[k] = v
	}
	return Snapshot{
		TotalQueries:   m.totalQueries,
		CostSavings:    m.costSavings,
		AverageLatency: time.Duration(m.avgLatencyNs),
		ModelUsage:     usage,
		Dropped:        m.dropped,
	}
}

func (m *Monitor) run() {
	defer m.stopped.Done()
	for {
		select {
		case s := <-m.queue:
			m.apply(s)
		case <-m.stop:
			// Drain whatever is still queued.
			for {
				select {
				case s := <-m.queue:
					m.apply(s)
				default:
					return
				}
			}
		}
	}
}

func (m *Monitor) apply(s sample) {
	if s.flush != nil {
		close(s.flush)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries++
	// Incremental mean; order of arrival does not change the result.
	m.avgLatencyNs += (float64(s.latency) - m.avgLatencyNs) / float64(m.totalQueries)
	m.modelUsage[s.model]++
	m.costSavings += m.baselineCost - s.cost
}
