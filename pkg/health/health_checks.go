package health

import "time"

// Common health check functions

// SimpleCheck creates a simple health check that always returns healthy
func SimpleCheck(name string) Check {
	return Check{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: time.Now(),
	}
}

// EngineCheck creates a health check that exercises the compute pipeline.
// The probe should run a small layout end to end and return any error.
func EngineCheck(probe func() error) CheckFunc {
	return func() Check {
		check := Check{
			Name: "engine",
		}

		if err := probe(); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Compute pipeline responsive"
		}

		return check
	}
}

// SessionCapacityCheck creates a health check for session slot usage
func SessionCapacityCheck(getUsage func() (active, limit int)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "session_capacity",
			Details: make(map[string]any),
		}

		active, limit := getUsage()

		check.Details["active_sessions"] = active
		check.Details["session_limit"] = limit

		if limit <= 0 {
			check.Status = StatusHealthy
			check.Message = "No session limit"
			return check
		}

		usagePercent := float64(active) / float64(limit) * 100
		check.Details["usage_percent"] = usagePercent

		if active >= limit {
			check.Status = StatusUnhealthy
			check.Message = "Session limit reached"
		} else if usagePercent > 80 {
			check.Status = StatusDegraded
			check.Message = "Approaching session limit"
		} else {
			check.Status = StatusHealthy
			check.Message = "Capacity available"
		}

		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		// Consider degraded if allocated memory > 90% of system memory
		usagePercent := float64(alloc) / float64(sys) * 100

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
