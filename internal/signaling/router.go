package signaling

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/meetly/signal-server/internal/metrics"
	"github.com/meetly/signal-server/internal/protocol"
)

// handleFrame validates one inbound frame and routes it. A validation failure
// is answered to the sender only; a handler panic is converted to a generic
// error event. Nothing here is ever fatal to the connection.
func (s *Server) handleFrame(c *client, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("panic in event handler", "conn_id", c.id, "recover", rec)
			s.replyError(c, "internal error")
		}
	}()

	payload, err := protocol.Parse(data)
	if err != nil {
		s.metrics.Inc(metrics.ValidationError)
		var verr *protocol.ValidationError
		if errors.As(err, &verr) {
			s.replyError(c, verr.Reason)
		} else {
			s.replyError(c, "invalid message")
		}
		return
	}
	if payload == nil {
		// Unrecognized kind: ignored silently.
		return
	}

	switch p := payload.(type) {
	case protocol.JoinMeeting:
		s.handleJoinMeeting(c, p)
	case protocol.LeaveMeeting:
		s.handleLeaveMeeting(c, p)
	case protocol.ChatMessage:
		s.handleChatMessage(c, p)
	case protocol.VideoStream:
		s.handleVideoStream(c, p)
	case protocol.CameraToggle:
		s.handleCameraToggle(c, p)
	case protocol.Offer:
		s.sendToConnection(p.To, protocol.KindOffer, protocol.OfferEvent{From: c.id, Offer: p.Offer})
	case protocol.Answer:
		s.sendToConnection(p.To, protocol.KindAnswer, protocol.AnswerEvent{From: c.id, Answer: p.Answer})
	case protocol.ICECandidate:
		s.sendToConnection(p.To, protocol.KindICECandidate, protocol.ICECandidateEvent{From: c.id, Candidate: p.Candidate})
	case protocol.EndMeeting:
		s.handleEndMeeting(c, p)
	}
}

func (s *Server) handleJoinMeeting(c *client, p protocol.JoinMeeting) {
	s.rooms.Join(p.MeetingID, c.id)
	s.log.Debug("participant joined meeting", "meeting_id", p.MeetingID, "user_id", p.UserID, "conn_id", c.id)

	// Peers first learn about the newcomer; the joiner gets an acknowledgment.
	s.broadcastToRoom(p.MeetingID, protocol.KindParticipantJoined, protocol.ParticipantJoinedEvent{
		RoomName: p.MeetingID,
		Participant: protocol.Participant{
			Identity: p.UserID,
			SID:      c.id,
		},
	}, c.id)
	s.reply(c, protocol.KindJoinedMeeting, protocol.JoinedMeetingEvent{
		MeetingID: p.MeetingID,
		UserID:    p.UserID,
	})
}

// handleLeaveMeeting removes the membership without notifying remaining
// members. The join/leave notification asymmetry is deliberate.
func (s *Server) handleLeaveMeeting(c *client, p protocol.LeaveMeeting) {
	s.rooms.Leave(p.MeetingID, c.id)
	s.log.Debug("participant left meeting", "meeting_id", p.MeetingID, "user_id", p.UserID, "conn_id", c.id)
}

func (s *Server) handleChatMessage(c *client, p protocol.ChatMessage) {
	ts := p.Timestamp
	if ts == nil {
		ts = json.RawMessage(strconv.FormatInt(time.Now().UnixMilli(), 10))
	}
	// Chat goes to the whole room, sender included, so every client renders
	// the same history.
	s.broadcastToRoom(p.RoomName, protocol.KindChatMessage, protocol.ChatEvent{
		RoomName:  p.RoomName,
		Message:   p.Message,
		Sender:    p.Sender,
		Timestamp: ts,
	}, "")
}

func (s *Server) handleVideoStream(c *client, p protocol.VideoStream) {
	s.broadcastToRoom(p.RoomName, protocol.KindVideoStream, protocol.VideoStreamEvent{
		RoomName:        p.RoomName,
		ParticipantName: p.ParticipantName,
		HasVideo:        p.HasVideo,
	}, c.id)
}

func (s *Server) handleCameraToggle(c *client, p protocol.CameraToggle) {
	s.broadcastToRoom(p.RoomName, protocol.KindCameraToggle, protocol.CameraToggleEvent{
		RoomName:        p.RoomName,
		ParticipantName: p.ParticipantName,
		IsCameraOff:     p.IsCameraOff,
	}, c.id)
}

// handleEndMeeting notifies every member but leaves the membership sets
// untouched; ending a meeting does not imply teardown.
func (s *Server) handleEndMeeting(c *client, p protocol.EndMeeting) {
	s.log.Info("meeting ended", "meeting_id", p.MeetingID, "conn_id", c.id)
	s.broadcastToRoom(p.MeetingID, protocol.KindMeetingEnded, protocol.MeetingEndedEvent{
		MeetingID: p.MeetingID,
	}, "")
}
