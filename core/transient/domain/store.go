package domain

import (
	"context"
	"time"
)

// Store holds short-lived values that expire on their own: the update
// metadata cache, the rolling error counter and the emergency flag.
type Store interface {
	// Get reports found=false for missing or expired keys.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value for ttl. A zero ttl keeps the value until deleted.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Incr adds one to the counter at key and restarts its ttl.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Keys shared by the optimizer and the update checker.
const (
	KeyErrorCount       = "sso_error_count"
	KeyEmergencyDisable = "sso_emergency_disable"
	KeyLastUpdateCheck  = "sso_last_update_check"
	KeyUpdateInfoPrefix = "sso_update_info_"
)
