package optmonitor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Event statuses.
const (
	StatusOptimized   = "optimized"
	StatusSkipped     = "skipped"     // gate refused or nothing registered
	StatusFallback    = "fallback"    // rewrite failed, origin body served
	StatusIntercepted = "intercepted" // answered without reaching the origin
)

type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	TraceID    string    `json:"trace_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Reason     string    `json:"reason"` // gate reason
	Status     string    `json:"status"`
	Modules    []string  `json:"modules,omitempty"`
	Hooks      int       `json:"hooks"`
	BytesIn    int       `json:"bytes_in"`
	BytesOut   int       `json:"bytes_out"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// Saved is the number of bytes the rewrite removed. Rewrites that grow
// the page report zero.
func (e Event) Saved() int64 {
	if e.Status != StatusOptimized || e.BytesOut >= e.BytesIn {
		return 0
	}
	return int64(e.BytesIn - e.BytesOut)
}

type Stats struct {
	TotalRequests    int64   `json:"total_requests"`
	TotalOptimized   int64   `json:"total_optimized"`
	TotalSkipped     int64   `json:"total_skipped"`
	TotalFallbacks   int64   `json:"total_fallbacks"`
	TotalIntercepted int64   `json:"total_intercepted"`
	BytesSaved       int64   `json:"bytes_saved"`
	BytesSavedHuman  string  `json:"bytes_saved_human"`
	RecentEvents     []Event `json:"recent_events"`
}

// Monitor keeps the last events in a ring buffer plus running totals.
type Monitor struct {
	ttl time.Duration
	now func() time.Time

	eventsMu sync.Mutex
	events   []Event
	idx      int
	count    int

	totalRequests    int64
	totalOptimized   int64
	totalSkipped     int64
	totalFallbacks   int64
	totalIntercepted int64
	bytesSaved       int64

	subsMu sync.RWMutex
	subs   []func(Event)
}

// New creates a monitor holding size events. Events older than ttl are
// hidden from GetStats; zero keeps them until overwritten.
func New(size int, ttl time.Duration) *Monitor {
	if size <= 0 {
		size = 200
	}
	return &Monitor{events: make([]Event, size), ttl: ttl, now: time.Now}
}

func (m *Monitor) Record(e Event) {
	e.Timestamp = m.now().UTC()
	if e.TraceID == "" {
		e.TraceID = uuid.NewString()
	}

	atomic.AddInt64(&m.totalRequests, 1)
	switch e.Status {
	case StatusOptimized:
		atomic.AddInt64(&m.totalOptimized, 1)
		atomic.AddInt64(&m.bytesSaved, e.Saved())
	case StatusSkipped:
		atomic.AddInt64(&m.totalSkipped, 1)
	case StatusFallback:
		atomic.AddInt64(&m.totalFallbacks, 1)
	case StatusIntercepted:
		atomic.AddInt64(&m.totalIntercepted, 1)
	}

	m.eventsMu.Lock()
	m.events[m.idx] = e
	m.idx = (m.idx + 1) % len(m.events)
	if m.count < len(m.events) {
		m.count++
	}
	m.eventsMu.Unlock()

	m.subsMu.RLock()
	for _, fn := range m.subs {
		fn(e)
	}
	m.subsMu.RUnlock()
}

// Subscribe registers fn to receive every recorded event. fn runs on the
// recording goroutine and must not block.
func (m *Monitor) Subscribe(fn func(Event)) {
	m.subsMu.Lock()
	m.subs = append(m.subs, fn)
	m.subsMu.Unlock()
}

// GetStats returns the totals and the retained events, oldest first.
func (m *Monitor) GetStats() Stats {
	m.eventsMu.Lock()
	res := make([]Event, 0, m.count)
	var cutoff time.Time
	if m.ttl > 0 {
		cutoff = m.now().UTC().Add(-m.ttl)
	}
	start := (m.idx - m.count) % len(m.events)
	if start < 0 {
		start += len(m.events)
	}
	for i := 0; i < m.count; i++ {
		e := m.events[(start+i)%len(m.events)]
		if !cutoff.IsZero() && e.Timestamp.Before(cutoff) {
			continue
		}
		res = append(res, e)
	}
	m.eventsMu.Unlock()

	saved := atomic.LoadInt64(&m.bytesSaved)
	return Stats{
		TotalRequests:    atomic.LoadInt64(&m.totalRequests),
		TotalOptimized:   atomic.LoadInt64(&m.totalOptimized),
		TotalSkipped:     atomic.LoadInt64(&m.totalSkipped),
		TotalFallbacks:   atomic.LoadInt64(&m.totalFallbacks),
		TotalIntercepted: atomic.LoadInt64(&m.totalIntercepted),
		BytesSaved:       saved,
		BytesSavedHuman:  humanize.Bytes(uint64(saved)),
		RecentEvents:     res,
	}
}
