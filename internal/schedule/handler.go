package schedule

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coachd-platform/coachd/internal/api"
)

type Handler struct {
	svc           *Service
	currentUserID func(r *http.Request) (uuid.UUID, bool)
}

func NewHandler(svc *Service, currentUserID func(r *http.Request) (uuid.UUID, bool)) *Handler {
	return &Handler{svc: svc, currentUserID: currentUserID}
}

// GetSchedule returns the day's schedule with its items. The date query
// parameter defaults to today in UTC when absent.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.currentUserID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, date); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid date, expected YYYY-MM-DD"))
		return
	}

	sched, items, err := h.svc.GetForDate(r.Context(), ownerID, date)
	if err != nil {
		slog.Error("getting daily schedule", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if sched == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	api.JSON(w, http.StatusOK, map[string]any{
		"schedule": sched,
		"items":    items,
	})
}

func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.currentUserID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	messages, err := h.svc.ListUpcomingMessages(r.Context(), ownerID, 50)
	if err != nil {
		slog.Error("listing reminders", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, messages)
}

func (h *Handler) SnoozeReminder(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.currentUserID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "reminderID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid reminder id"))
		return
	}

	var req struct {
		Minutes int `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if req.Minutes < 1 || req.Minutes > 1440 {
		api.HandleError(w, api.NewBadRequestError("minutes must be between 1 and 1440"))
		return
	}

	until := time.Now().Add(time.Duration(req.Minutes) * time.Minute)
	if err := h.svc.SnoozeMessage(r.Context(), ownerID, messageID, until); err != nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	api.JSONMessage(w, http.StatusOK, "reminder snoozed")
}

func (h *Handler) CancelReminder(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.currentUserID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "reminderID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid reminder id"))
		return
	}

	if err := h.svc.CancelMessage(r.Context(), ownerID, messageID); err != nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	api.JSONMessage(w, http.StatusOK, "reminder cancelled")
}
