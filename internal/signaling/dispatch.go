package signaling

import (
	"github.com/meetly/signal-server/internal/metrics"
	"github.com/meetly/signal-server/internal/protocol"
)

// Delivery primitives. Each marshals the payload once and hands frames to the
// per-connection send queues. Delivery to a connection that no longer exists
// is a silent no-op; directed relay has no delivery confirmation.

// reply sends an event to the originating connection only.
func (s *Server) reply(c *client, kind protocol.Kind, payload any) {
	frame, err := protocol.Marshal(kind, payload)
	if err != nil {
		s.log.Error("marshal reply", "kind", kind, "err", err)
		return
	}
	if c.trySend(frame) {
		s.metrics.Inc(metrics.MessagesDispatched)
	}
}

// sendToConnection delivers an event to exactly one connection by identifier.
func (s *Server) sendToConnection(connID string, kind protocol.Kind, payload any) {
	target, ok := s.lookupClient(connID)
	if !ok {
		s.metrics.Inc(metrics.DeliveryMiss)
		return
	}
	frame, err := protocol.Marshal(kind, payload)
	if err != nil {
		s.log.Error("marshal relay", "kind", kind, "err", err)
		return
	}
	if target.trySend(frame) {
		s.metrics.Inc(metrics.MessagesDispatched)
	}
}

// broadcastToRoom delivers an event to every member of the room, optionally
// excluding one connection (the sender). A room with no members is a silent
// no-op.
func (s *Server) broadcastToRoom(roomKey string, kind protocol.Kind, payload any, exclude string) {
	members := s.rooms.Members(roomKey)
	if len(members) == 0 {
		s.metrics.Inc(metrics.DeliveryMiss)
		return
	}

	frame, err := protocol.Marshal(kind, payload)
	if err != nil {
		s.log.Error("marshal broadcast", "kind", kind, "err", err)
		return
	}

	for _, connID := range members {
		if connID == exclude {
			continue
		}
		target, ok := s.lookupClient(connID)
		if !ok {
			// Member disconnected between snapshot and delivery.
			s.metrics.Inc(metrics.DeliveryMiss)
			continue
		}
		if target.trySend(frame) {
			s.metrics.Inc(metrics.MessagesDispatched)
		}
	}
}

func (s *Server) replyError(c *client, reason string) {
	s.reply(c, protocol.KindError, protocol.ErrorEvent{Message: reason})
}
