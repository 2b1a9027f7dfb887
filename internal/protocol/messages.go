// Package protocol defines the signaling wire vocabulary: the envelope every
// frame travels in, one typed payload per message kind, and the validation
// rules applied before any payload is acted upon.
package protocol

import (
	"encoding/json"
	"fmt"
)

type Kind string

// Client-to-server kinds.
const (
	KindJoinMeeting  Kind = "join-meeting"
	KindLeaveMeeting Kind = "leave-meeting"
	KindChatMessage  Kind = "chat-message"
	KindVideoStream  Kind = "video-stream"
	KindCameraToggle Kind = "camera-toggle"
	KindOffer        Kind = "offer"
	KindAnswer       Kind = "answer"
	KindICECandidate Kind = "ice-candidate"
	KindEndMeeting   Kind = "end-meeting"
)

// Server-to-client kinds. chat-message, video-stream, camera-toggle, offer,
// answer and ice-candidate are reused in both directions.
const (
	KindJoinedMeeting     Kind = "joined-meeting"
	KindParticipantJoined Kind = "participant-joined"
	KindMeetingEnded      Kind = "meeting-ended"
	KindError             Kind = "error"
)

// Payload is the closed set of inbound message payloads. The router switches
// over the concrete types so every kind is handled explicitly.
type Payload interface {
	Kind() Kind
}

type JoinMeeting struct {
	MeetingID string `json:"meetingId"`
	UserID    string `json:"userId"`
}

type LeaveMeeting struct {
	MeetingID string `json:"meetingId"`
	UserID    string `json:"userId"`
}

type ChatMessage struct {
	RoomName string `json:"roomName"`
	Message  string `json:"message"`
	Sender   string `json:"sender"`

	// Timestamp is forwarded exactly as the client sent it; the router fills
	// in a server-side value only when it is absent.
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

type VideoStream struct {
	RoomName        string `json:"roomName"`
	ParticipantName string `json:"participantName"`
	HasVideo        bool   `json:"hasVideo"`
}

type CameraToggle struct {
	RoomName        string `json:"roomName"`
	ParticipantName string `json:"participantName"`
	IsCameraOff     bool   `json:"isCameraOff"`
}

type Offer struct {
	To    string          `json:"to"`
	Offer json.RawMessage `json:"offer"`
}

type Answer struct {
	To     string          `json:"to"`
	Answer json.RawMessage `json:"answer"`
}

type ICECandidate struct {
	To        string          `json:"to"`
	Candidate json.RawMessage `json:"candidate"`
}

type EndMeeting struct {
	MeetingID string `json:"meetingId"`
}

func (JoinMeeting) Kind() Kind  { return KindJoinMeeting }
func (LeaveMeeting) Kind() Kind { return KindLeaveMeeting }
func (ChatMessage) Kind() Kind  { return KindChatMessage }
func (VideoStream) Kind() Kind  { return KindVideoStream }
func (CameraToggle) Kind() Kind { return KindCameraToggle }
func (Offer) Kind() Kind        { return KindOffer }
func (Answer) Kind() Kind       { return KindAnswer }
func (ICECandidate) Kind() Kind { return KindICECandidate }
func (EndMeeting) Kind() Kind   { return KindEndMeeting }

// Outbound payloads.

type Participant struct {
	Identity string `json:"identity"`
	SID      string `json:"sid"`
}

type JoinedMeetingEvent struct {
	MeetingID string `json:"meetingId"`
	UserID    string `json:"userId"`
}

type ParticipantJoinedEvent struct {
	RoomName    string      `json:"roomName"`
	Participant Participant `json:"participant"`
}

type ChatEvent struct {
	RoomName  string          `json:"roomName"`
	Message   string          `json:"message"`
	Sender    string          `json:"sender"`
	Timestamp json.RawMessage `json:"timestamp"`
}

type VideoStreamEvent struct {
	RoomName        string `json:"roomName"`
	ParticipantName string `json:"participantName"`
	HasVideo        bool   `json:"hasVideo"`
}

type CameraToggleEvent struct {
	RoomName        string `json:"roomName"`
	ParticipantName string `json:"participantName"`
	IsCameraOff     bool   `json:"isCameraOff"`
}

type OfferEvent struct {
	From  string          `json:"from"`
	Offer json.RawMessage `json:"offer"`
}

type AnswerEvent struct {
	From   string          `json:"from"`
	Answer json.RawMessage `json:"answer"`
}

type ICECandidateEvent struct {
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

type MeetingEndedEvent struct {
	MeetingID string `json:"meetingId"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

type envelope struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Marshal wraps an outbound payload in the wire envelope.
func Marshal(kind Kind, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return json.Marshal(envelope{Type: kind, Data: data})
}
