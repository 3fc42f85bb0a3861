package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AzielCF/az-speed/core/transient/repository"
	"github.com/AzielCF/az-speed/domains/health"
	"github.com/AzielCF/az-speed/optimizer/safety"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func statusByComponent(records []health.HealthRecord) map[health.Component]health.Status {
	out := map[health.Component]health.Status{}
	for _, r := range records {
		out[r.Component] = r.Status
	}
	return out
}

func TestHealthService_AllHealthy(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer origin.Close()

	cache := repository.NewMemoryStore()
	throttle := safety.NewThrottle(cache, safety.DefaultThrottleConfig())
	svc := NewHealthService(fakePinger{}, cache, throttle, origin.URL, time.Second)

	records, err := svc.GetStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, map[health.Component]health.Status{
		health.ComponentDatabase:  health.StatusOk,
		health.ComponentTransient: health.StatusOk,
		health.ComponentOrigin:    health.StatusOk,
		health.ComponentOptimizer: health.StatusOk,
	}, statusByComponent(records))
}

func TestHealthService_Failures(t *testing.T) {
	ctx := context.Background()
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer origin.Close()

	cache := repository.NewMemoryStore()
	throttle := safety.NewThrottle(cache, safety.ThrottleConfig{Threshold: 1, Window: time.Hour, Emergency: time.Hour})
	require.NoError(t, throttle.RecordError(ctx, "boom"))
	require.NoError(t, throttle.RecordError(ctx, "boom"))

	svc := NewHealthService(fakePinger{err: errors.New("database is locked")}, cache, throttle, origin.URL, time.Second)

	records, err := svc.GetStatus(ctx)
	require.NoError(t, err)
	got := statusByComponent(records)
	assert.Equal(t, health.StatusError, got[health.ComponentDatabase])
	assert.Equal(t, health.StatusDegraded, got[health.ComponentOrigin])
	assert.Equal(t, health.StatusDegraded, got[health.ComponentOptimizer])
	assert.Equal(t, health.StatusOk, got[health.ComponentTransient])
}

func TestHealthService_NoOrigin(t *testing.T) {
	cache := repository.NewMemoryStore()
	svc := NewHealthService(nil, cache, safety.NewThrottle(cache, safety.DefaultThrottleConfig()), "", 0)

	records, err := svc.GetStatus(context.Background())
	require.NoError(t, err)
	got := statusByComponent(records)
	assert.Equal(t, health.StatusError, got[health.ComponentDatabase])
	assert.Equal(t, health.StatusError, got[health.ComponentOrigin])
}
