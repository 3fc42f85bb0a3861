package safety

import (
	"context"
	"fmt"
	"strconv"
	"time"

	transient "github.com/AzielCF/az-speed/core/transient/domain"
	"github.com/AzielCF/az-speed/pkg/metrics"
	"github.com/sirupsen/logrus"
)

type ThrottleConfig struct {
	// Threshold is the number of errors tolerated inside Window.
	Threshold int
	Window    time.Duration
	// Emergency is how long optimizations stay off once tripped.
	Emergency time.Duration
}

func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{Threshold: 10, Window: 24 * time.Hour, Emergency: time.Hour}
}

// Throttle counts rewrite failures and switches the optimizer off for a
// while when too many happen.
type Throttle struct {
	store  transient.Store
	cfg    ThrottleConfig
	onTrip []func(errors int64, until time.Time)
}

func NewThrottle(store transient.Store, cfg ThrottleConfig) *Throttle {
	def := DefaultThrottleConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Emergency <= 0 {
		cfg.Emergency = def.Emergency
	}
	return &Throttle{store: store, cfg: cfg}
}

// ThrottleStatus is the current state of the counter and flag.
type ThrottleStatus struct {
	ErrorCount        int64 `json:"error_count"`
	Threshold         int   `json:"threshold"`
	EmergencyDisabled bool  `json:"emergency_disabled"`
}

// RecordError counts one failure and raises the emergency flag when the
// count goes over the threshold.
func (t *Throttle) RecordError(ctx context.Context, reason string) error {
	metrics.SafetyErrors.Inc()

	n, err := t.store.Incr(ctx, transient.KeyErrorCount, t.cfg.Window)
	if err != nil {
		return fmt.Errorf("failed to count safety error: %w", err)
	}
	logrus.WithField("count", n).Warnf("[SAFETY] %s", reason)

	if n <= int64(t.cfg.Threshold) {
		return nil
	}

	_, active, err := t.store.Get(ctx, transient.KeyEmergencyDisable)
	if err != nil {
		return fmt.Errorf("failed to read emergency flag: %w", err)
	}
	if active {
		return nil
	}
	if err := t.store.Set(ctx, transient.KeyEmergencyDisable, "1", t.cfg.Emergency); err != nil {
		return fmt.Errorf("failed to raise emergency flag: %w", err)
	}
	metrics.EmergencyTrips.Inc()
	logrus.Errorf("[SAFETY] %d errors in %s, optimizations disabled for %s", n, t.cfg.Window, t.cfg.Emergency)

	until := time.Now().Add(t.cfg.Emergency).UTC()
	for _, fn := range t.onTrip {
		fn(n, until)
	}
	return nil
}

// OnTrip registers fn to run each time the emergency flag is raised.
// Register before serving traffic.
func (t *Throttle) OnTrip(fn func(errors int64, until time.Time)) {
	t.onTrip = append(t.onTrip, fn)
}

// IsEmergencyDisabled reports the flag. A store failure counts as disabled.
func (t *Throttle) IsEmergencyDisabled(ctx context.Context) bool {
	_, active, err := t.store.Get(ctx, transient.KeyEmergencyDisable)
	if err != nil {
		logrus.WithError(err).Warn("[SAFETY] cannot read emergency flag, skipping optimizations")
		return true
	}
	return active
}

func (t *Throttle) Status(ctx context.Context) (ThrottleStatus, error) {
	st := ThrottleStatus{Threshold: t.cfg.Threshold}

	raw, found, err := t.store.Get(ctx, transient.KeyErrorCount)
	if err != nil {
		return st, err
	}
	if found {
		st.ErrorCount, _ = strconv.ParseInt(raw, 10, 64)
	}

	_, st.EmergencyDisabled, err = t.store.Get(ctx, transient.KeyEmergencyDisable)
	return st, err
}

// Reset clears both the counter and the flag.
func (t *Throttle) Reset(ctx context.Context) error {
	if err := t.store.Delete(ctx, transient.KeyErrorCount); err != nil {
		return err
	}
	if err := t.store.Delete(ctx, transient.KeyEmergencyDisable); err != nil {
		return err
	}
	logrus.Info("[SAFETY] error counter and emergency flag cleared")
	return nil
}
