package metrics

import "sync"

// Counter names used across the signaling server.
const (
	AuthFailure        = "auth_failure"
	ValidationError    = "validation_error"
	DeliveryMiss       = "delivery_miss"
	RateLimited        = "rate_limited"
	ConnectionsOpened  = "connections_opened"
	ConnectionsClosed  = "connections_closed"
	MessagesDispatched = "messages_dispatched"
	SendQueueFull      = "send_queue_full"
	RoomsSwept         = "rooms_swept"
)

// Metrics is a minimal, concurrency-safe counter registry, exposed for
// scraping through the Prometheus text handler.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, n uint64) {
	m.mu.Lock()
	m.m[name] += n
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
