package connection

import (
	"context"
)

type HealthChecker struct {
	factory *Factory
}

func NewHealthChecker(factory *Factory) *HealthChecker {
	return &HealthChecker{
		factory: factory,
	}
}

// Healthy reports whether a session can be opened, pinged and closed.
func (hc *HealthChecker) Healthy(ctx context.Context) bool {
	if hc.factory == nil {
		return false
	}

	err := hc.factory.Ping(ctx)
	if err != nil {
		return false
	}

	return true
}
