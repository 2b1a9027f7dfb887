package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/meetly/signal-server/internal/protocol"
)

const maxCreateMeetingBodyBytes = 4 * 1024

type createMeetingRequest struct {
	MeetingID string `json:"meetingId"`
	UserID    string `json:"userId"`
}

type meetingResource struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meetingId"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// handleCreateMeeting validates a proposed meeting and hands back a resource
// the caller can use as the join target. Rooms themselves are created lazily
// on the first join over the signaling socket, so there is nothing to persist
// here.
func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req createMeetingRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateMeetingBodyBytes))
	if err := dec.Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}

	if errs := protocol.ValidateMeetingCreation(req.MeetingID, req.UserID); len(errs) > 0 {
		WriteJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Validation failed",
			"errors":  errs,
		})
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"data": meetingResource{
			ID:        uuid.NewString(),
			MeetingID: req.MeetingID,
			CreatedBy: req.UserID,
			CreatedAt: time.Now().UTC(),
		},
	})
}
