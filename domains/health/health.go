package health

import (
	"context"
	"time"
)

type Component string

const (
	ComponentDatabase  Component = "database"
	ComponentTransient Component = "transient_store"
	ComponentOrigin    Component = "origin"
	ComponentOptimizer Component = "optimizer"
)

type Status string

const (
	StatusOk       Status = "OK"
	StatusError    Status = "ERROR"
	StatusDegraded Status = "DEGRADED"
)

type HealthRecord struct {
	Component   Component `json:"component"`
	Status      Status    `json:"status"`
	LastMessage string    `json:"last_message"`
	LastChecked time.Time `json:"last_checked"`
	LatencyMs   int64     `json:"latency_ms"`
}

type IHealthUsecase interface {
	GetStatus(ctx context.Context) ([]HealthRecord, error)
}
