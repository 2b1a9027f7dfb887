package protocol

import (
	"encoding/json"
	"regexp"

	"github.com/tidwall/gjson"
)

// ValidationError reports a malformed or out-of-range field in an otherwise
// recognized message. It is message-level and recoverable: the router replies
// to the offending connection and takes no further action on that frame.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

var meetingIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Parse decodes an inbound frame into its typed payload, applying the
// per-kind validation rules. Unknown kinds return (nil, nil) and are ignored
// silently. A *ValidationError is never fatal to the connection.
func Parse(raw []byte) (Payload, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, invalid("invalid message envelope")
	}
	if env.Type == "" {
		return nil, invalid("Message type is required")
	}

	switch env.Type {
	case KindJoinMeeting:
		return parseJoinMeeting(env.Data)
	case KindLeaveMeeting:
		return parseLeaveMeeting(env.Data)
	case KindChatMessage:
		return parseChatMessage(env.Data)
	case KindVideoStream:
		return parseVideoStream(env.Data)
	case KindCameraToggle:
		return parseCameraToggle(env.Data)
	case KindOffer:
		return parseOffer(env.Data)
	case KindAnswer:
		return parseAnswer(env.Data)
	case KindICECandidate:
		return parseICECandidate(env.Data)
	case KindEndMeeting:
		return parseEndMeeting(env.Data)
	default:
		return nil, nil
	}
}

func parseJoinMeeting(data []byte) (Payload, error) {
	meetingID, err := meetingIDField(data)
	if err != nil {
		return nil, err
	}
	userID, err := userIDField(data, "userId", "User ID")
	if err != nil {
		return nil, err
	}
	return JoinMeeting{MeetingID: meetingID, UserID: userID}, nil
}

func parseLeaveMeeting(data []byte) (Payload, error) {
	meetingID, err := meetingIDField(data)
	if err != nil {
		return nil, err
	}
	userID, err := userIDField(data, "userId", "User ID")
	if err != nil {
		return nil, err
	}
	return LeaveMeeting{MeetingID: meetingID, UserID: userID}, nil
}

func parseChatMessage(data []byte) (Payload, error) {
	roomName, err := stringField(data, "roomName", "Room name")
	if err != nil {
		return nil, err
	}
	message, err := stringField(data, "message", "Message")
	if err != nil {
		return nil, err
	}
	if len(message) > 1000 {
		return nil, invalid("Message cannot exceed 1000 characters")
	}
	sender, err := stringField(data, "sender", "Sender")
	if err != nil {
		return nil, err
	}
	if len(sender) > 50 {
		return nil, invalid("Sender name cannot exceed 50 characters")
	}

	msg := ChatMessage{RoomName: roomName, Message: message, Sender: sender}
	if ts := gjson.GetBytes(data, "timestamp"); ts.Exists() && ts.Type != gjson.Null {
		msg.Timestamp = json.RawMessage(ts.Raw)
	}
	return msg, nil
}

func parseVideoStream(data []byte) (Payload, error) {
	roomName, err := stringField(data, "roomName", "Room name")
	if err != nil {
		return nil, err
	}
	participantName, err := userIDField(data, "participantName", "Participant name")
	if err != nil {
		return nil, err
	}
	hasVideo, err := boolField(data, "hasVideo", "hasVideo")
	if err != nil {
		return nil, err
	}
	return VideoStream{RoomName: roomName, ParticipantName: participantName, HasVideo: hasVideo}, nil
}

func parseCameraToggle(data []byte) (Payload, error) {
	roomName, err := stringField(data, "roomName", "Room name")
	if err != nil {
		return nil, err
	}
	participantName, err := userIDField(data, "participantName", "Participant name")
	if err != nil {
		return nil, err
	}
	isCameraOff, err := boolField(data, "isCameraOff", "isCameraOff")
	if err != nil {
		return nil, err
	}
	return CameraToggle{RoomName: roomName, ParticipantName: participantName, IsCameraOff: isCameraOff}, nil
}

func parseOffer(data []byte) (Payload, error) {
	to, err := stringField(data, "to", "Target")
	if err != nil {
		return nil, err
	}
	body, err := objectField(data, "offer", "Offer")
	if err != nil {
		return nil, err
	}
	return Offer{To: to, Offer: body}, nil
}

func parseAnswer(data []byte) (Payload, error) {
	to, err := stringField(data, "to", "Target")
	if err != nil {
		return nil, err
	}
	body, err := objectField(data, "answer", "Answer")
	if err != nil {
		return nil, err
	}
	return Answer{To: to, Answer: body}, nil
}

func parseICECandidate(data []byte) (Payload, error) {
	to, err := stringField(data, "to", "Target")
	if err != nil {
		return nil, err
	}
	body, err := objectField(data, "candidate", "Candidate")
	if err != nil {
		return nil, err
	}
	return ICECandidate{To: to, Candidate: body}, nil
}

func parseEndMeeting(data []byte) (Payload, error) {
	meetingID, err := meetingIDField(data)
	if err != nil {
		return nil, err
	}
	return EndMeeting{MeetingID: meetingID}, nil
}

// meetingIDField validates the join/leave/end-context meeting identifier:
// any non-empty length, restricted character set. The stricter 3-50 length
// bound applies only to meeting creation (ValidateMeetingCreation).
func meetingIDField(data []byte) (string, error) {
	id, err := stringField(data, "meetingId", "Meeting ID")
	if err != nil {
		return "", err
	}
	if !meetingIDPattern.MatchString(id) {
		return "", invalid("Meeting ID can only contain letters, numbers, hyphens, and underscores")
	}
	return id, nil
}

func userIDField(data []byte, field, label string) (string, error) {
	id, err := stringField(data, field, label)
	if err != nil {
		return "", err
	}
	if len(id) > 50 {
		return "", invalid(label + " must be between 1 and 50 characters")
	}
	return id, nil
}

func stringField(data []byte, field, label string) (string, error) {
	res := gjson.GetBytes(data, field)
	if !res.Exists() || res.Type == gjson.Null {
		return "", invalid(label + " is required")
	}
	if res.Type != gjson.String {
		return "", invalid(label + " must be a string")
	}
	if res.Str == "" {
		return "", invalid(label + " is required")
	}
	return res.Str, nil
}

// boolField accepts exactly JSON true/false; other types are errors, never
// coerced.
func boolField(data []byte, field, label string) (bool, error) {
	res := gjson.GetBytes(data, field)
	if !res.Exists() || res.Type == gjson.Null {
		return false, invalid(label + " is required")
	}
	switch res.Type {
	case gjson.True, gjson.False:
		return res.Bool(), nil
	default:
		return false, invalid(label + " must be a boolean")
	}
}

// objectField requires a structured JSON object. The contents are relayed
// opaquely and never otherwise inspected.
func objectField(data []byte, field, label string) (json.RawMessage, error) {
	res := gjson.GetBytes(data, field)
	if !res.Exists() || res.Type == gjson.Null {
		return nil, invalid(label + " is required")
	}
	if !res.IsObject() {
		return nil, invalid(label + " must be an object")
	}
	return json.RawMessage(res.Raw), nil
}

// ValidateMeetingCreation applies the meeting-creation rules (3-50 character
// identifier) and returns every failed rule rather than stopping at the first.
func ValidateMeetingCreation(meetingID, userID string) []string {
	var errs []string

	if meetingID == "" {
		errs = append(errs, "Meeting ID is required")
	} else if len(meetingID) < 3 || len(meetingID) > 50 {
		errs = append(errs, "Meeting ID must be between 3 and 50 characters")
	} else if !meetingIDPattern.MatchString(meetingID) {
		errs = append(errs, "Meeting ID can only contain letters, numbers, hyphens, and underscores")
	}

	if userID == "" {
		errs = append(errs, "User ID is required")
	} else if len(userID) > 50 {
		errs = append(errs, "User ID must be between 1 and 50 characters")
	}

	return errs
}
