package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"teamclock/database"
	"teamclock/models"

	"gorm.io/gorm"
)

const defaultEstimatedDuration = 1.0

// TaskView is a task together with the display names of the people on it.
type TaskView struct {
	models.Task
	AssignedToName *string `json:"assigned_to_name"`
	CreatedByName  *string `json:"created_by_name"`
}

func newTaskView(task models.Task) TaskView {
	view := TaskView{Task: task}
	if task.AssignedTo != nil {
		name := task.AssignedTo.FullName()
		view.AssignedToName = &name
	}
	if task.CreatedBy != nil {
		name := task.CreatedBy.FullName()
		view.CreatedByName = &name
	}
	return view
}

type CreateTaskParams struct {
	Title             string
	Description       string
	Priority          string
	EstimatedDuration *float64
	Progress          *int
	DueDate           string
	// AssignedTo defaults to the actor.
	AssignedTo *uint
}

// UpdateTaskParams holds a partial update. Nil fields are left alone and an
// empty DueDate clears the deadline.
type UpdateTaskParams struct {
	Title             *string
	Description       *string
	Priority          *string
	EstimatedDuration *float64
	Progress          *int
	DueDate           *string
}

// TaskEngine creates tasks and resolves who may see and change them.
type TaskEngine struct {
	Deps
}

func NewTaskEngine(deps Deps) *TaskEngine {
	return &TaskEngine{Deps: deps.withDefaults("tasks")}
}

func (e *TaskEngine) Create(ctx context.Context, actor *models.User, params CreateTaskParams) (*TaskView, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, invalid("title is required.")
	}
	priority := models.PriorityMedium
	if params.Priority != "" {
		priority = models.Priority(params.Priority)
		if !priority.Valid() {
			return nil, invalid("Invalid priority %q.", params.Priority)
		}
	}
	dueDate, err := parseDueDate(params.DueDate)
	if err != nil {
		return nil, err
	}

	assigneeID := actor.ID
	// Plain users can only ever work for themselves.
	if params.AssignedTo != nil && !actor.IsPlainUser() {
		assigneeID = *params.AssignedTo
	}
	assignee := actor
	if assigneeID != actor.ID {
		assignee, err = loadUser(ctx, e.DB, assigneeID)
		if err != nil {
			return nil, err
		}
	}
	if !e.Policy.CanAssignTask(actor, assignee) {
		if actor.SameTeam(assignee) {
			return nil, forbidden("You cannot assign tasks to managers or admins.")
		}
		return nil, forbidden("You can only assign tasks to your team members.")
	}

	task := models.Task{
		Title:             title,
		Description:       params.Description,
		Priority:          priority,
		EstimatedDuration: defaultEstimatedDuration,
		DueDate:           dueDate,
		CreatedByID:       actor.ID,
		AssignedToID:      assignee.ID,
	}
	if params.EstimatedDuration != nil {
		task.EstimatedDuration = *params.EstimatedDuration
	}
	if params.Progress != nil {
		task.Progress = *params.Progress
	}
	if err := e.DB.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	task.CreatedBy = actor
	task.AssignedTo = assignee

	e.Logger.Info("task created", "task_id", task.ID, "created_by", actor.ID, "assigned_to", assignee.ID)
	view := newTaskView(task)
	return &view, nil
}

func (e *TaskEngine) Get(ctx context.Context, actor *models.User, taskID uint) (*TaskView, error) {
	task, err := e.accessible(ctx, e.DB, actor, taskID)
	if err != nil {
		return nil, err
	}
	view := newTaskView(*task)
	return &view, nil
}

func (e *TaskEngine) Update(ctx context.Context, actor *models.User, taskID uint, params UpdateTaskParams) (*TaskView, error) {
	task, err := e.accessible(ctx, e.DB, actor, taskID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if title == "" {
			return nil, invalid("title may not be blank.")
		}
		updates["title"] = title
	}
	if params.Description != nil {
		updates["description"] = *params.Description
	}
	if params.Priority != nil {
		priority := models.Priority(*params.Priority)
		if !priority.Valid() {
			return nil, invalid("Invalid priority %q.", *params.Priority)
		}
		updates["priority"] = priority
	}
	if params.EstimatedDuration != nil {
		updates["estimated_duration"] = *params.EstimatedDuration
	}
	if params.Progress != nil {
		updates["progress"] = *params.Progress
	}
	if params.DueDate != nil {
		dueDate, err := parseDueDate(*params.DueDate)
		if err != nil {
			return nil, err
		}
		updates["due_date"] = dueDate
	}

	if len(updates) > 0 {
		if err := e.DB.WithContext(ctx).Model(&models.Task{ID: task.ID}).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update task %d: %w", task.ID, err)
		}
	}
	if task, err = e.load(ctx, e.DB, taskID); err != nil {
		return nil, err
	}

	e.Logger.Info("task updated", "task_id", task.ID, "actor_id", actor.ID, "fields", len(updates))
	view := newTaskView(*task)
	return &view, nil
}

func (e *TaskEngine) Delete(ctx context.Context, actor *models.User, taskID uint) error {
	task, err := e.accessible(ctx, e.DB, actor, taskID)
	if err != nil {
		return err
	}
	if err := e.DB.WithContext(ctx).Delete(&models.Task{}, task.ID).Error; err != nil {
		return fmt.Errorf("delete task %d: %w", task.ID, err)
	}
	e.Logger.Info("task deleted", "task_id", task.ID, "actor_id", actor.ID)
	return nil
}

// List returns the tasks visible to actor, newest first.
func (e *TaskEngine) List(ctx context.Context, actor *models.User) ([]TaskView, error) {
	query := e.DB.WithContext(ctx).Preload("CreatedBy").Preload("AssignedTo").Order("created_at desc, id desc")
	switch {
	case actor.IsAdmin():
	case actor.IsManager():
		ids, err := teamMemberIDs(ctx, e.DB, actor.TeamID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, actor.ID)
		query = query.Where("created_by IN ? OR assigned_to IN ?", ids, ids)
	default:
		query = query.Where("created_by = ? OR assigned_to = ?", actor.ID, actor.ID)
	}

	var tasks []models.Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, newTaskView(t))
	}
	return views, nil
}

func (e *TaskEngine) load(ctx context.Context, db *gorm.DB, taskID uint) (*models.Task, error) {
	var task models.Task
	err := db.WithContext(ctx).Preload("CreatedBy").Preload("AssignedTo").First(&task, taskID).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("Task")
		}
		return nil, fmt.Errorf("load task %d: %w", taskID, err)
	}
	return &task, nil
}

func (e *TaskEngine) accessible(ctx context.Context, db *gorm.DB, actor *models.User, taskID uint) (*models.Task, error) {
	task, err := e.load(ctx, db, taskID)
	if err != nil {
		return nil, err
	}
	if !e.Policy.CanAccessTask(actor, task, task.CreatedBy, task.AssignedTo) {
		return nil, ErrForbidden
	}
	return task, nil
}

func parseDueDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return nil, newError(ErrInvalidTimestamp, "Invalid due_date format (ISO datetime).")
	}
	t = normalize(t)
	return &t, nil
}
