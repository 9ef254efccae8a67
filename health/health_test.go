package health

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		healthy bool
		value   string
	}{
		{"healthy", NewHealthy("link", "connected"), true, StatusHealthy},
		{"degraded", NewDegraded("link", "retrying"), false, StatusDegraded},
		{"unhealthy", NewUnhealthy("link", "failed"), false, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "link", tt.status.Component)
			assert.Equal(t, tt.healthy, tt.status.Healthy)
			assert.Equal(t, tt.value, tt.status.Status)
			assert.False(t, tt.status.Timestamp.IsZero())
		})
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		subs     []Status
		expected string
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, StatusHealthy},
		{"one degraded", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, StatusDegraded},
		{"unhealthy wins", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := Aggregate("system", tt.subs)
			assert.Equal(t, tt.expected, agg.Status)
			assert.Len(t, agg.SubStatuses, len(tt.subs))
		})
	}
}

func TestAggregate_DoesNotShareInput(t *testing.T) {
	subs := []Status{NewHealthy("a", "")}
	agg := Aggregate("system", subs)
	subs[0].Message = "changed"
	assert.Empty(t, agg.SubStatuses[0].Message)
}

func TestStatus_WithSubStatus(t *testing.T) {
	base := NewHealthy("system", "")
	first := base.WithSubStatus(NewHealthy("a", ""))
	second := first.WithSubStatus(NewHealthy("b", ""))

	assert.Empty(t, base.SubStatuses)
	assert.Len(t, first.SubStatuses, 1)
	assert.Len(t, second.SubStatuses, 2)

	withMetrics := base.WithMetrics(&Metrics{ErrorCount: 2})
	require.NotNil(t, withMetrics.Metrics)
	assert.Nil(t, base.Metrics)
}

func TestMonitor_UpdateAndGet(t *testing.T) {
	monitor := NewMonitor()
	monitor.Update("link", Status{Component: "wrong", Status: StatusHealthy})

	got, ok := monitor.Get("link")
	require.True(t, ok)
	assert.Equal(t, "link", got.Component)
	assert.False(t, got.Timestamp.IsZero())

	monitor.Remove("link")
	_, ok = monitor.Get("link")
	assert.False(t, ok)
}

func TestMonitor_AggregateHealth(t *testing.T) {
	monitor := NewMonitor()
	monitor.UpdateHealthy("ui", "ok")
	monitor.UpdateDegraded("link", "retrying(1)")

	agg := monitor.AggregateHealth("moodlink")
	assert.Equal(t, StatusDegraded, agg.Status)
	require.Len(t, agg.SubStatuses, 2)
	assert.Equal(t, "link", agg.SubStatuses[0].Component)

	monitor.UpdateUnhealthy("link", "failed")
	assert.True(t, monitor.AggregateHealth("moodlink").IsUnhealthy())
}

func TestMonitor_ConcurrentAccess(t *testing.T) {
	monitor := NewMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("c%d", i)
			for j := 0; j < 100; j++ {
				monitor.UpdateHealthy(name, "ok")
				_ = monitor.AggregateHealth("system")
			}
		}(i)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent access deadlocked")
	}
	assert.Len(t, monitor.AggregateHealth("system").SubStatuses, 10)
}
