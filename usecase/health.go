package usecase

import (
	"context"
	"fmt"
	"time"

	transient "github.com/AzielCF/az-speed/core/transient/domain"
	"github.com/AzielCF/az-speed/domains/health"
	"github.com/AzielCF/az-speed/optimizer/safety"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ThrottleReader exposes the emergency throttle state.
type ThrottleReader interface {
	Status(ctx context.Context) (safety.ThrottleStatus, error)
}

const healthProbeKey = "sso_health_probe"

type healthService struct {
	db        Pinger
	cache     transient.Store
	throttle  ThrottleReader
	originURL string
	client    *fasthttp.Client
	timeout   time.Duration
	now       func() time.Time
}

func NewHealthService(db Pinger, cache transient.Store, throttle ThrottleReader, originURL string, timeout time.Duration) health.IHealthUsecase {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &healthService{
		db:        db,
		cache:     cache,
		throttle:  throttle,
		originURL: originURL,
		client:    &fasthttp.Client{Name: "az-speed-health"},
		timeout:   timeout,
		now:       time.Now,
	}
}

func (s *healthService) GetStatus(ctx context.Context) ([]health.HealthRecord, error) {
	records := []health.HealthRecord{
		s.check(health.ComponentDatabase, func() (health.Status, string) { return s.checkDatabase(ctx) }),
		s.check(health.ComponentTransient, func() (health.Status, string) { return s.checkTransient(ctx) }),
		s.check(health.ComponentOrigin, func() (health.Status, string) { return s.checkOrigin(ctx) }),
		s.check(health.ComponentOptimizer, func() (health.Status, string) { return s.checkOptimizer(ctx) }),
	}
	for _, r := range records {
		if r.Status != health.StatusOk {
			logrus.Warnf("[Health] %s is %s: %s", r.Component, r.Status, r.LastMessage)
		}
	}
	return records, nil
}

func (s *healthService) check(c health.Component, fn func() (health.Status, string)) health.HealthRecord {
	start := s.now()
	status, msg := fn()
	return health.HealthRecord{
		Component:   c,
		Status:      status,
		LastMessage: msg,
		LastChecked: start.UTC(),
		LatencyMs:   s.now().Sub(start).Milliseconds(),
	}
}

func (s *healthService) checkDatabase(ctx context.Context) (health.Status, string) {
	if s.db == nil {
		return health.StatusError, "settings database not initialized"
	}
	if err := s.db.PingContext(ctx); err != nil {
		return health.StatusError, err.Error()
	}
	return health.StatusOk, "Connection successful"
}

func (s *healthService) checkTransient(ctx context.Context) (health.Status, string) {
	stamp := fmt.Sprint(s.now().UnixNano())
	if err := s.cache.Set(ctx, healthProbeKey, stamp, time.Minute); err != nil {
		return health.StatusError, err.Error()
	}
	got, found, err := s.cache.Get(ctx, healthProbeKey)
	if err != nil {
		return health.StatusError, err.Error()
	}
	if !found || got != stamp {
		return health.StatusDegraded, "probe value was not read back"
	}
	return health.StatusOk, "Read and write successful"
}

func (s *healthService) checkOrigin(ctx context.Context) (health.Status, string) {
	if s.originURL == "" {
		return health.StatusError, "origin URL is not configured"
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.originURL)
	req.Header.SetMethod(fasthttp.MethodHead)

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.client.DoDeadline(req, resp, deadline); err != nil {
		return health.StatusError, err.Error()
	}
	if code := resp.StatusCode(); code >= 500 {
		return health.StatusDegraded, fmt.Sprintf("origin answered %d", code)
	}
	return health.StatusOk, fmt.Sprintf("origin answered %d", resp.StatusCode())
}

func (s *healthService) checkOptimizer(ctx context.Context) (health.Status, string) {
	st, err := s.throttle.Status(ctx)
	if err != nil {
		return health.StatusError, err.Error()
	}
	if st.EmergencyDisabled {
		return health.StatusDegraded, fmt.Sprintf("emergency disable active after %d errors", st.ErrorCount)
	}
	return health.StatusOk, fmt.Sprintf("%d of %d errors in window", st.ErrorCount, st.Threshold)
}
