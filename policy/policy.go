// Package policy decides who may see or change what. Every decision is a
// pure function of the actor and the resource owner(s); callers load the
// records and translate a false result into a forbidden error.
package policy

import (
	"teamclock/models"
)

// Policy is the single authority for role and team scoped access checks.
type Policy interface {
	// CanAccess reports whether actor may act on data owned by owner.
	CanAccess(actor, owner *models.User) bool

	CanViewTimeEntries(actor, owner *models.User) bool
	CanEditTimeEntries(actor, owner *models.User) bool
	CanManageWorkingHours(actor, owner *models.User) bool
	CanSetStatus(actor, owner *models.User) bool

	// CanAccessTask covers view, update and delete of a single task.
	CanAccessTask(actor *models.User, task *models.Task, creator, assignee *models.User) bool
	CanAssignTask(actor, assignee *models.User) bool

	// CanAssignTeam gates moving target into teamID, or out of its team
	// when teamID is nil.
	CanAssignTeam(actor, target *models.User, teamID *uint) bool
	CanManageTeams(actor *models.User) bool
	CanViewRoster(actor *models.User) bool
	CanManageUsers(actor *models.User) bool
}

// TeamPolicy scopes a manager's authority to the members of the manager's
// own team.
type TeamPolicy struct{}

var _ Policy = TeamPolicy{}

func NewTeamPolicy() TeamPolicy {
	return TeamPolicy{}
}

func (TeamPolicy) CanAccess(actor, owner *models.User) bool {
	if actor == nil || owner == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleManager:
		return actor.ID == owner.ID || actor.SameTeam(owner)
	case models.RoleUser:
		return actor.ID == owner.ID
	}
	return false
}

func (p TeamPolicy) CanViewTimeEntries(actor, owner *models.User) bool {
	return p.CanAccess(actor, owner)
}

func (p TeamPolicy) CanEditTimeEntries(actor, owner *models.User) bool {
	return p.privileged(actor) && p.CanAccess(actor, owner)
}

func (p TeamPolicy) CanManageWorkingHours(actor, owner *models.User) bool {
	return p.privileged(actor) && p.CanAccess(actor, owner)
}

func (p TeamPolicy) CanSetStatus(actor, owner *models.User) bool {
	return p.privileged(actor) && p.CanAccess(actor, owner)
}

func (TeamPolicy) CanAccessTask(actor *models.User, task *models.Task, creator, assignee *models.User) bool {
	if actor == nil || task == nil {
		return false
	}
	if actor.IsAdmin() || task.Involves(actor.ID) {
		return true
	}
	if actor.IsManager() {
		return actor.SameTeam(creator) || actor.SameTeam(assignee)
	}
	return false
}

func (TeamPolicy) CanAssignTask(actor, assignee *models.User) bool {
	if actor == nil || assignee == nil {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleManager:
		// Managers only hand work to plain users, never to themselves.
		return actor.SameTeam(assignee) && assignee.IsPlainUser()
	}
	return actor.ID == assignee.ID
}

func (TeamPolicy) CanAssignTeam(actor, target *models.User, teamID *uint) bool {
	if actor == nil || target == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if !actor.IsManager() || actor.TeamID == nil || !target.IsPlainUser() {
		return false
	}
	if teamID == nil {
		return actor.SameTeam(target)
	}
	if *teamID != *actor.TeamID {
		return false
	}
	return target.TeamID == nil || actor.SameTeam(target)
}

func (TeamPolicy) CanManageTeams(actor *models.User) bool {
	return actor != nil && actor.IsAdmin()
}

func (p TeamPolicy) CanViewRoster(actor *models.User) bool {
	return p.privileged(actor)
}

func (TeamPolicy) CanManageUsers(actor *models.User) bool {
	return actor != nil && actor.IsAdmin()
}

func (TeamPolicy) privileged(actor *models.User) bool {
	return actor != nil && (actor.IsAdmin() || actor.IsManager())
}
