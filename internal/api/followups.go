// ABOUTME: Share recording and follow-up reminder handlers
// ABOUTME: Unknown profile IDs on writes surface as a 400 from the foreign key

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/2389/horoscope-desk/internal/auth"
	"github.com/2389/horoscope-desk/internal/store"
)

type listFollowUpsResponse struct {
	FollowUps []store.FollowUp `json:"followUps"`
}

// handleRecordShare handles POST /api/shares.
func (h *Handler) handleRecordShare(w http.ResponseWriter, r *http.Request) {
	var req store.NewShare
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SenderRegistrationID = strings.TrimSpace(req.SenderRegistrationID)
	req.RecipientRegistrationID = strings.TrimSpace(req.RecipientRegistrationID)

	if req.SenderRegistrationID == "" || req.RecipientRegistrationID == "" {
		sendJSONError(w, http.StatusBadRequest, "From profile ID and To profile ID are required")
		return
	}
	if req.SenderRegistrationID == req.RecipientRegistrationID {
		sendJSONError(w, http.StatusBadRequest, "Sender and recipient must be different")
		return
	}
	if req.SharedVia != nil && *req.SharedVia != "" && !store.ValidSharedVia(*req.SharedVia) {
		sendJSONError(w, http.StatusBadRequest, "Shared via must be whatsapp, manual or other")
		return
	}

	if err := h.store.RecordShare(r.Context(), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w)
}

// handleListFollowUps handles GET /api/follow-ups[?due=today].
func (h *Handler) handleListFollowUps(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListFollowUps(r.Context(), r.URL.Query().Get("due") == "today")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listFollowUpsResponse{FollowUps: list})
}

func validDate(v string) bool {
	_, err := time.Parse(time.DateOnly, v)
	return err == nil
}

// handleCreateFollowUp handles POST /api/follow-ups.
func (h *Handler) handleCreateFollowUp(w http.ResponseWriter, r *http.Request) {
	s := auth.MustFromContext(r.Context())

	var req store.NewFollowUp
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RegistrationID) == "" || req.DueDate == "" || strings.TrimSpace(req.Note) == "" {
		sendJSONError(w, http.StatusBadRequest, "Profile ID, due date and note are required")
		return
	}
	if !validDate(req.DueDate) {
		sendJSONError(w, http.StatusBadRequest, "Due date must be YYYY-MM-DD")
		return
	}
	req.CreatedBy = s.UserID

	id, err := h.store.CreateFollowUp(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, createdResponse{ID: id, OK: true})
}

// handleUpdateFollowUp handles PATCH /api/follow-ups/{id}.
func (h *Handler) handleUpdateFollowUp(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		sendJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}

	var patch store.FollowUpPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Status.Set && !store.ValidFollowUpStatus(patch.Status.Value) {
		sendJSONError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	if patch.DueDate.Set && !validDate(patch.DueDate.Value) {
		sendJSONError(w, http.StatusBadRequest, "Due date must be YYYY-MM-DD")
		return
	}
	if patch.Note.Set && patch.Note.Null {
		sendJSONError(w, http.StatusBadRequest, "Note cannot be empty")
		return
	}

	if err := h.store.UpdateFollowUp(r.Context(), id, patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w)
}
