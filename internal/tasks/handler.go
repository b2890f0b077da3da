package tasks

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/coachd-platform/coachd/internal/api"
)

type Handler struct {
	svc           *Service
	validate      *validator.Validate
	currentUserID func(r *http.Request) (uuid.UUID, bool)
}

func NewHandler(svc *Service, currentUserID func(r *http.Request) (uuid.UUID, bool)) *Handler {
	return &Handler{
		svc:           svc,
		validate:      validator.New(),
		currentUserID: currentUserID,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.currentUserID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	task, err := h.svc.Create(r.Context(), ownerID, &req)
	if err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	api.JSON(w, http.StatusCreated, task)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.currentUserID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params := DefaultListParams()
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && page > 0 {
		params.Page = page
	}
	if size, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && size > 0 && size <= 100 {
		params.PageSize = size
	}
	params.Status = r.URL.Query().Get("status")

	rows, count, err := h.svc.ListByOwner(r.Context(), ownerID, params)
	if err != nil {
		slog.Error("listing tasks", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, rows, count, params.Page, params.PageSize)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	task := h.ownedTask(w, r)
	if task == nil {
		return
	}
	api.JSON(w, http.StatusOK, task)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	task := h.ownedTask(w, r)
	if task == nil {
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	updated, err := h.svc.Update(r.Context(), task, &req)
	if err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	api.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	task := h.ownedTask(w, r)
	if task == nil {
		return
	}

	if err := h.svc.Delete(r.Context(), task.ID); err != nil {
		slog.Error("deleting task", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "task deleted")
}

func (h *Handler) CreateSubtask(w http.ResponseWriter, r *http.Request) {
	task := h.ownedTask(w, r)
	if task == nil {
		return
	}

	var req struct {
		Title         string `json:"title" validate:"required,min=1,max=500"`
		ScheduledTime string `json:"scheduled_time" validate:"omitempty,len=5"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	sub, err := h.svc.CreateSubtask(r.Context(), task, req.Title, req.ScheduledTime)
	if err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	api.JSON(w, http.StatusCreated, sub)
}

func (h *Handler) ListSubtasks(w http.ResponseWriter, r *http.Request) {
	task := h.ownedTask(w, r)
	if task == nil {
		return
	}

	subs, err := h.svc.repo.ListSubtasks(r.Context(), task.ID)
	if err != nil {
		slog.Error("listing subtasks", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, subs)
}

// ownedTask loads the task from the URL and checks ownership. It writes the
// error response and returns nil when the task is unavailable.
func (h *Handler) ownedTask(w http.ResponseWriter, r *http.Request) *Task {
	ownerID, ok := h.currentUserID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return nil
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid task id"))
		return nil
	}

	task, err := h.svc.GetOwned(r.Context(), ownerID, taskID)
	if err != nil {
		slog.Error("getting task", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return nil
	}
	if task == nil {
		api.HandleError(w, api.ErrNotFound)
		return nil
	}
	return task
}
