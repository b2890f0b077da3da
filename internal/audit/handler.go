package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/coachd-platform/coachd/internal/api"
)

type Handler struct {
	repo *Repository
	// currentUserID extracts the authenticated user's ID from the request
	// context; injected to avoid an import cycle with the auth package.
	currentUserID func(r *http.Request) (uuid.UUID, bool)
}

func NewHandler(repo *Repository, currentUserID func(r *http.Request) (uuid.UUID, bool)) *Handler {
	return &Handler{
		repo:          repo,
		currentUserID: currentUserID,
	}
}

// ListLogs returns paginated audit logs for the authenticated user.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params := parseListParams(r)

	logs, total, err := h.repo.ListByOwner(r.Context(), userID, params)
	if err != nil {
		slog.Error("listing audit logs", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, logs, total, params.Page, params.PageSize)
}

func parseListParams(r *http.Request) ListParams {
	params := DefaultListParams()

	if et := r.URL.Query().Get("event_type"); et != "" {
		params.EventType = et
	}
	if sev := r.URL.Query().Get("severity"); sev != "" {
		params.Severity = sev
	}
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}

	return params
}
