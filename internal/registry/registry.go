// Package registry owns room membership state: which connections belong to
// which rooms. It is the single source of truth for membership; the transport
// layer is only used for final delivery.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/meetly/signal-server/internal/ratelimit"
)

type room struct {
	members map[string]struct{}

	// emptySince is set when the last member leaves and cleared on join. The
	// sweeper evicts rooms that stay empty past the configured TTL; leave
	// itself never deletes a room.
	emptySince time.Time
}

type connEntry struct {
	rooms map[string]struct{}
	order []string // room keys in join order
}

// Registry maps rooms to member connections and keeps a reverse index from
// connection to rooms. Both indices mutate behind a single mutex, so a
// connection's membership set is always consistent with the room side.
type Registry struct {
	clock ratelimit.Clock

	mu    sync.RWMutex
	rooms map[string]*room
	conns map[string]*connEntry
}

func New(clock ratelimit.Clock) *Registry {
	if clock == nil {
		clock = ratelimit.RealClock{}
	}
	return &Registry{
		clock: clock,
		rooms: make(map[string]*room),
		conns: make(map[string]*connEntry),
	}
}

// Join adds connID to the room, creating the room on first join. Rejoining an
// already-joined room is a no-op, not an error.
func (r *Registry) Join(roomKey, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomKey]
	if !ok {
		rm = &room{members: make(map[string]struct{})}
		r.rooms[roomKey] = rm
	}
	if _, ok := rm.members[connID]; ok {
		return
	}
	rm.members[connID] = struct{}{}
	rm.emptySince = time.Time{}

	ce, ok := r.conns[connID]
	if !ok {
		ce = &connEntry{rooms: make(map[string]struct{})}
		r.conns[connID] = ce
	}
	ce.rooms[roomKey] = struct{}{}
	ce.order = append(ce.order, roomKey)
}

// Leave removes connID from the room. The room entry persists even when its
// member set becomes empty.
func (r *Registry) Leave(roomKey, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(roomKey, connID)
}

func (r *Registry) leaveLocked(roomKey, connID string) {
	rm, ok := r.rooms[roomKey]
	if !ok {
		return
	}
	if _, ok := rm.members[connID]; !ok {
		return
	}
	delete(rm.members, connID)
	if len(rm.members) == 0 {
		rm.emptySince = r.clock.Now()
	}

	if ce, ok := r.conns[connID]; ok {
		delete(ce.rooms, roomKey)
		for i, k := range ce.order {
			if k == roomKey {
				ce.order = append(ce.order[:i], ce.order[i+1:]...)
				break
			}
		}
		if len(ce.rooms) == 0 {
			delete(r.conns, connID)
		}
	}
}

// Members returns a copy of the room's member set. Unknown rooms yield nil.
func (r *Registry) Members(roomKey string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomKey]
	if !ok || len(rm.members) == 0 {
		return nil
	}
	out := make([]string, 0, len(rm.members))
	for id := range rm.members {
		out = append(out, id)
	}
	return out
}

// Rooms returns the rooms connID currently belongs to, in join order.
func (r *Registry) Rooms(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ce, ok := r.conns[connID]
	if !ok {
		return nil
	}
	out := make([]string, len(ce.order))
	copy(out, ce.order)
	return out
}

// RemoveConnectionEverywhere removes connID from every room it belongs to,
// atomically with respect to concurrent join/leave, and returns the rooms it
// was removed from in join order. Invoked on disconnect.
func (r *Registry) RemoveConnectionEverywhere(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ce, ok := r.conns[connID]
	if !ok {
		return nil
	}
	removed := make([]string, len(ce.order))
	copy(removed, ce.order)
	for _, roomKey := range removed {
		r.leaveLocked(roomKey, connID)
	}
	return removed
}

// RoomCount reports the number of room entries, including empty ones awaiting
// eviction.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Sweep evicts rooms that have been empty for at least ttl and returns how
// many it removed. A ttl <= 0 disables eviction.
func (r *Registry) Sweep(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	removed := 0
	for key, rm := range r.rooms {
		if len(rm.members) != 0 || rm.emptySince.IsZero() {
			continue
		}
		if now.Sub(rm.emptySince) >= ttl {
			delete(r.rooms, key)
			removed++
		}
	}
	return removed
}

// RunSweeper periodically evicts stale empty rooms until ctx is cancelled.
// onSwept, when non-nil, is called with each non-zero eviction count.
func (r *Registry) RunSweeper(ctx context.Context, interval, ttl time.Duration, logger *slog.Logger, onSwept func(int)) {
	if ttl <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(ttl); n > 0 {
				if logger != nil {
					logger.Debug("swept stale empty rooms", "count", n)
				}
				if onSwept != nil {
					onSwept(n)
				}
			}
		}
	}
}
