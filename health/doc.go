// Package health reports whether moodlink's components are working.
//
// Components publish a Status (healthy, degraded or unhealthy) into a Monitor;
// AggregateHealth folds them into one system status, unhealthy if any part is
// unhealthy and degraded if any part is degraded.
package health
