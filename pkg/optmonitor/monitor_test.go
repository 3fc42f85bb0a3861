package optmonitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_TotalsAndRing(t *testing.T) {
	m := New(3, 0)

	m.Record(Event{Path: "/a", Status: StatusOptimized, BytesIn: 5000, BytesOut: 3000})
	m.Record(Event{Path: "/b", Status: StatusSkipped, Reason: "admin"})
	m.Record(Event{Path: "/c", Status: StatusFallback, Error: "boom"})
	m.Record(Event{Path: "/d", Status: StatusOptimized, BytesIn: 100, BytesOut: 400})
	m.Record(Event{Path: "/xmlrpc.php", Status: StatusIntercepted})

	stats := m.GetStats()
	assert.EqualValues(t, 5, stats.TotalRequests)
	assert.EqualValues(t, 2, stats.TotalOptimized)
	assert.EqualValues(t, 1, stats.TotalSkipped)
	assert.EqualValues(t, 1, stats.TotalFallbacks)
	assert.EqualValues(t, 1, stats.TotalIntercepted)
	assert.EqualValues(t, 2000, stats.BytesSaved)
	assert.Equal(t, "2.0 kB", stats.BytesSavedHuman)

	require.Len(t, stats.RecentEvents, 3)
	assert.Equal(t, "/c", stats.RecentEvents[0].Path)
	assert.Equal(t, "/xmlrpc.php", stats.RecentEvents[2].Path)
	for _, e := range stats.RecentEvents {
		assert.NotEmpty(t, e.TraceID)
		assert.False(t, e.Timestamp.IsZero())
	}
}

func TestMonitor_KeepsTraceID(t *testing.T) {
	m := New(2, 0)
	m.Record(Event{TraceID: "req-1", Status: StatusSkipped})
	assert.Equal(t, "req-1", m.GetStats().RecentEvents[0].TraceID)
}

func TestMonitor_TTLHidesOldEvents(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := New(10, time.Hour)
	m.now = func() time.Time { return now }

	m.Record(Event{Path: "/old", Status: StatusSkipped})
	now = now.Add(2 * time.Hour)
	m.Record(Event{Path: "/new", Status: StatusSkipped})

	stats := m.GetStats()
	require.Len(t, stats.RecentEvents, 1)
	assert.Equal(t, "/new", stats.RecentEvents[0].Path)
	assert.EqualValues(t, 2, stats.TotalRequests)
}

func TestMonitor_Subscribe(t *testing.T) {
	m := New(2, 0)

	var got []Event
	m.Subscribe(func(e Event) { got = append(got, e) })

	m.Record(Event{Path: "/a", Status: StatusOptimized})
	m.Record(Event{Path: "/b", Status: StatusSkipped, Reason: "emergency"})

	require.Len(t, got, 2)
	assert.Equal(t, "/a", got[0].Path)
	assert.NotEmpty(t, got[0].TraceID)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Equal(t, "emergency", got[1].Reason)
}
