// Package server holds HTTP server pieces shared between commands.
package server

import "context"

// HealthChecker is satisfied by connection.HealthChecker.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

type HealthCheckerFunc func(ctx context.Context) bool

func (f HealthCheckerFunc) Healthy(ctx context.Context) bool {
	return f(ctx)
}

// Always reports a fixed status. Servers with no backend use Always(true).
func Always(healthy bool) HealthChecker {
	return HealthCheckerFunc(func(context.Context) bool { return healthy })
}

// All is healthy when every non-nil checker is, stopping at the first
// failure. With no checkers it is healthy.
func All(checkers ...HealthChecker) HealthChecker {
	active := make([]HealthChecker, 0, len(checkers))
	for _, c := range checkers {
		if c != nil {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return Always(true)
	}
	if len(active) == 1 {
		return active[0]
	}
	return HealthCheckerFunc(func(ctx context.Context) bool {
		for _, c := range active {
			if !c.Healthy(ctx) {
				return false
			}
		}
		return true
	})
}
