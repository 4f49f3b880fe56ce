package services

import (
	"errors"
	"testing"
	"time"

	"teamclock/models"
)

func ptr[T any](v T) *T {
	return &v
}

func TestTaskEngine_Create(t *testing.T) {
	env := newTestEnv(t)
	engine := NewTaskEngine(env.deps)
	team := env.team("Ops")
	manager := env.user(models.RoleManager, team)
	peerManager := env.user(models.RoleManager, team)
	member := env.user(models.RoleUser, team)
	outsider := env.user(models.RoleUser, nil)
	admin := env.user(models.RoleAdmin, nil)

	t.Run("defaults", func(t *testing.T) {
		task, err := engine.Create(env.ctx, member, CreateTaskParams{Title: "Write report"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if task.Priority != models.PriorityMedium || task.EstimatedDuration != 1.0 || task.Progress != 0 {
			t.Fatalf("unexpected defaults: %+v", task.Task)
		}
		if task.CreatedByID != member.ID || task.AssignedToID != member.ID {
			t.Fatalf("creator/assignee = %d/%d", task.CreatedByID, task.AssignedToID)
		}
		if task.AssignedToName == nil || *task.AssignedToName != member.FullName() {
			t.Fatalf("assigned_to_name = %v", task.AssignedToName)
		}
	})

	t.Run("plain user assignee is overridden", func(t *testing.T) {
		task, err := engine.Create(env.ctx, member, CreateTaskParams{Title: "Mine", AssignedTo: &outsider.ID})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if task.AssignedToID != member.ID {
			t.Fatalf("assignee = %d, want %d", task.AssignedToID, member.ID)
		}
	})

	t.Run("manager assigns to team member", func(t *testing.T) {
		task, err := engine.Create(env.ctx, manager, CreateTaskParams{
			Title:      "Audit",
			Priority:   "high",
			DueDate:    "2024-05-20T17:00:00Z",
			AssignedTo: &member.ID,
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if task.AssignedToID != member.ID || task.CreatedByID != manager.ID {
			t.Fatalf("creator/assignee = %d/%d", task.CreatedByID, task.AssignedToID)
		}
		if task.DueDate == nil || !task.DueDate.Equal(time.Date(2024, 5, 20, 17, 0, 0, 0, time.UTC)) {
			t.Fatalf("due date = %v", task.DueDate)
		}
	})

	t.Run("admin assigns anywhere", func(t *testing.T) {
		if _, err := engine.Create(env.ctx, admin, CreateTaskParams{Title: "Any", AssignedTo: &peerManager.ID}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	})

	tests := []struct {
		name   string
		actor  *models.User
		params CreateTaskParams
		want   error
	}{
		{"manager to self", manager, CreateTaskParams{Title: "x", AssignedTo: &manager.ID}, ErrForbidden},
		{"manager defaults to self", manager, CreateTaskParams{Title: "x"}, ErrForbidden},
		{"manager to outsider", manager, CreateTaskParams{Title: "x", AssignedTo: &outsider.ID}, ErrForbidden},
		{"manager to manager", manager, CreateTaskParams{Title: "x", AssignedTo: &peerManager.ID}, ErrForbidden},
		{"manager to admin", manager, CreateTaskParams{Title: "x", AssignedTo: &admin.ID}, ErrForbidden},
		{"unknown assignee", admin, CreateTaskParams{Title: "x", AssignedTo: ptr[uint](9999)}, ErrNotFound},
		{"missing title", member, CreateTaskParams{Title: "  "}, ErrValidation},
		{"bad priority", member, CreateTaskParams{Title: "x", Priority: "urgent"}, ErrValidation},
		{"bad due date", member, CreateTaskParams{Title: "x", DueDate: "soon"}, ErrInvalidTimestamp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := engine.Create(env.ctx, tt.actor, tt.params); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTaskEngine_Visibility(t *testing.T) {
	env := newTestEnv(t)
	engine := NewTaskEngine(env.deps)
	team := env.team("Ops")
	other := env.team("Sales")
	a := env.user(models.RoleUser, team)
	b := env.user(models.RoleUser, other)
	c := env.user(models.RoleUser, nil)
	teamManager := env.user(models.RoleManager, team)
	otherManager := env.user(models.RoleManager, env.team("Support"))
	admin := env.user(models.RoleAdmin, nil)

	// A task created by a and assigned to b.
	task := models.Task{Title: "Shared", Priority: models.PriorityLow, EstimatedDuration: 1, CreatedByID: a.ID, AssignedToID: b.ID}
	if err := env.db.Create(&task).Error; err != nil {
		t.Fatalf("seed task: %v", err)
	}

	for _, actor := range []*models.User{a, b, admin, teamManager} {
		if _, err := engine.Get(env.ctx, actor, task.ID); err != nil {
			t.Errorf("user %d should see the task: %v", actor.ID, err)
		}
	}
	for _, actor := range []*models.User{c, otherManager} {
		if _, err := engine.Get(env.ctx, actor, task.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("user %d: expected ErrForbidden, got %v", actor.ID, err)
		}
	}
	if _, err := engine.Get(env.ctx, admin, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskEngine_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	engine := NewTaskEngine(env.deps)
	owner := env.user(models.RoleUser, nil)
	stranger := env.user(models.RoleUser, nil)

	created, err := engine.Create(env.ctx, owner, CreateTaskParams{Title: "Draft", DueDate: "2024-06-01T00:00:00Z"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := engine.Update(env.ctx, owner, created.ID, UpdateTaskParams{
		Progress:          ptr(140),
		Priority:          ptr("low"),
		EstimatedDuration: ptr(2.5),
		DueDate:           ptr(""),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Draft" || updated.Progress != 140 || updated.Priority != models.PriorityLow ||
		updated.EstimatedDuration != 2.5 || updated.DueDate != nil {
		t.Fatalf("unexpected update result: %+v", updated.Task)
	}

	if _, err := engine.Update(env.ctx, owner, created.ID, UpdateTaskParams{Priority: ptr("asap")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := engine.Update(env.ctx, stranger, created.ID, UpdateTaskParams{Title: ptr("Mine now")}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := engine.Delete(env.ctx, stranger, created.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := engine.Delete(env.ctx, owner, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := engine.Get(env.ctx, owner, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestTaskEngine_List(t *testing.T) {
	env := newTestEnv(t)
	engine := NewTaskEngine(env.deps)
	team := env.team("Ops")
	manager := env.user(models.RoleManager, team)
	member := env.user(models.RoleUser, team)
	outsider := env.user(models.RoleUser, nil)
	admin := env.user(models.RoleAdmin, nil)

	mk := func(title string, creator, assignee *models.User) uint {
		t.Helper()
		task := models.Task{Title: title, Priority: models.PriorityMedium, EstimatedDuration: 1, CreatedByID: creator.ID, AssignedToID: assignee.ID}
		if err := env.db.Create(&task).Error; err != nil {
			t.Fatalf("seed %s: %v", title, err)
		}
		return task.ID
	}
	memberOwn := mk("member own", member, member)
	managerToMember := mk("manager to member", manager, member)
	outsiderOwn := mk("outsider own", outsider, outsider)

	ids := func(views []TaskView) map[uint]int {
		seen := map[uint]int{}
		for _, v := range views {
			seen[v.ID]++
		}
		return seen
	}

	listed, err := engine.List(env.ctx, manager)
	if err != nil {
		t.Fatalf("manager List: %v", err)
	}
	got := ids(listed)
	if len(listed) != 2 || got[memberOwn] != 1 || got[managerToMember] != 1 {
		t.Fatalf("manager sees %v", got)
	}
	if listed[0].ID != managerToMember {
		t.Fatalf("newest first: got %d first", listed[0].ID)
	}

	listed, err = engine.List(env.ctx, outsider)
	if err != nil || len(listed) != 1 || listed[0].ID != outsiderOwn {
		t.Fatalf("outsider sees %v, err %v", ids(listed), err)
	}

	listed, err = engine.List(env.ctx, admin)
	if err != nil || len(listed) != 3 {
		t.Fatalf("admin sees %v, err %v", ids(listed), err)
	}
}
