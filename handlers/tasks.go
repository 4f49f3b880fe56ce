package handlers

import (
	"net/http"

	"teamclock/services"
)

type TaskHandler struct {
	tasks *services.TaskEngine
}

func NewTaskHandler(tasks *services.TaskEngine) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type createTaskRequest struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Priority          string   `json:"priority"`
	EstimatedDuration *float64 `json:"estimated_duration"`
	Progress          *int     `json:"progress"`
	DueDate           *string  `json:"due_date"`
	AssignedTo        *uint    `json:"assigned_to"`
}

type updateTaskRequest struct {
	Title             *string  `json:"title"`
	Description       *string  `json:"description"`
	Priority          *string  `json:"priority"`
	EstimatedDuration *float64 `json:"estimated_duration"`
	Progress          *int     `json:"progress"`
	DueDate           *string  `json:"due_date"`
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	params := services.CreateTaskParams{
		Title:             req.Title,
		Description:       req.Description,
		Priority:          req.Priority,
		EstimatedDuration: req.EstimatedDuration,
		Progress:          req.Progress,
		AssignedTo:        req.AssignedTo,
	}
	if req.DueDate != nil {
		params.DueDate = *req.DueDate
	}

	task, err := h.tasks.Create(r.Context(), currentUser(r), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "taskID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	task, err := h.tasks.Get(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "taskID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	task, err := h.tasks.Update(r.Context(), currentUser(r), id, services.UpdateTaskParams{
		Title:             req.Title,
		Description:       req.Description,
		Priority:          req.Priority,
		EstimatedDuration: req.EstimatedDuration,
		Progress:          req.Progress,
		DueDate:           req.DueDate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "taskID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.tasks.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Task deleted.")
}
