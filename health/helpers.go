package health

import "time"

func newStatus(component, status, message string) Status {
	return Status{
		Component: component,
		Healthy:   status == StatusHealthy,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewHealthy creates a new healthy status
func NewHealthy(component, message string) Status {
	return newStatus(component, StatusHealthy, message)
}

// NewUnhealthy creates a new unhealthy status
func NewUnhealthy(component, message string) Status {
	return newStatus(component, StatusUnhealthy, message)
}

// NewDegraded creates a new degraded status
func NewDegraded(component, message string) Status {
	return newStatus(component, StatusDegraded, message)
}

// Aggregate folds sub-statuses into one: unhealthy wins over degraded,
// degraded wins over healthy. The input slice is copied.
func Aggregate(component string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(component, "No sub-components to aggregate")
	}

	hasUnhealthy := false
	hasDegraded := false
	for _, sub := range subStatuses {
		switch {
		case sub.IsUnhealthy():
			hasUnhealthy = true
		case sub.IsDegraded():
			hasDegraded = true
		}
	}

	var status Status
	switch {
	case hasUnhealthy:
		status = NewUnhealthy(component, "One or more sub-components are unhealthy")
	case hasDegraded:
		status = NewDegraded(component, "One or more sub-components are degraded")
	default:
		status = NewHealthy(component, "All sub-components are healthy")
	}

	status.SubStatuses = make([]Status, len(subStatuses))
	copy(status.SubStatuses, subStatuses)
	return status
}
