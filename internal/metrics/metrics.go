package metrics

import (
	"sync"
	"time"
)

// Counter metrics
const (
	CounterHTTPRequests          = "http_requests_total"
	CounterHTTPRequestsError     = "http_requests_error_total"
	CounterBookingsCreated       = "bookings_created_total"
	CounterBookingsRejected      = "bookings_rejected_total"
	CounterAppointmentsConfirmed = "appointments_confirmed_total"
	CounterTasksFailed           = "tasks_failed_total"
	CounterTasksReconciled       = "tasks_reconciled_total"
	CounterMessagesSent          = "messages_sent_total"
	CounterMessagesProcessed     = "messages_processed_total"
	CounterMessagesError         = "messages_error_total"
)

// Gauge metrics
const (
	GaugePendingMessages = "pending_messages"
	GaugeQueuedTasks     = "queued_tasks"
)

// Collector accumulates process-local counters and gauges.
type Collector struct {
	mutex     sync.RWMutex
	counters  map[string]int64
	gauges    map[string]float64
	startTime time.Time
}

var (
	collector     *Collector
	collectorOnce sync.Once
)

// GetCollector returns the process-wide collector.
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = &Collector{
			counters:  make(map[string]int64),
			gauges:    make(map[string]float64),
			startTime: time.Now(),
		}
	})
	return collector
}

// IncrementCounter increments a counter by the given value
func (c *Collector) IncrementCounter(name string, value int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.counters[name] += value
}

// SetGauge sets a gauge to the given value
func (c *Collector) SetGauge(name string, value float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.gauges[name] = value
}

// Snapshot holds a point-in-time copy of all metrics.
type Snapshot struct {
	Counters      map[string]int64   `json:"counters"`
	Gauges        map[string]float64 `json:"gauges"`
	UptimeSeconds float64            `json:"uptime_seconds"`
}

// GetSnapshot returns a copy of the current metrics.
func (c *Collector) GetSnapshot() Snapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	snap := Snapshot{
		Counters:      make(map[string]int64, len(c.counters)),
		Gauges:        make(map[string]float64, len(c.gauges)),
		UptimeSeconds: time.Since(c.startTime).Seconds(),
	}
	for k, v := range c.counters {
		snap.Counters[k] = v
	}
	for k, v := range c.gauges {
		snap.Gauges[k] = v
	}

	return snap
}
