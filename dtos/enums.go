package dtos

type WorkspaceStatus string

const (
	WorkspaceStatusStopped  WorkspaceStatus = "STOPPED"
	WorkspaceStatusStarting WorkspaceStatus = "STARTING"
	WorkspaceStatusRunning  WorkspaceStatus = "RUNNING"
	WorkspaceStatusStopping WorkspaceStatus = "STOPPING"
	WorkspaceStatusError    WorkspaceStatus = "ERROR"
)

type WorkspaceAction string

const (
	WorkspaceActionStart   WorkspaceAction = "start"
	WorkspaceActionStop    WorkspaceAction = "stop"
	WorkspaceActionRestart WorkspaceAction = "restart"
)

func (a WorkspaceAction) IsValid() bool {
	switch a {
	case WorkspaceActionStart, WorkspaceActionStop, WorkspaceActionRestart:
		return true
	}
	return false
}

type GroupRole string

const (
	GroupRoleMember GroupRole = "member"
	GroupRoleAdmin  GroupRole = "admin"
)

func (r GroupRole) IsValid() bool {
	return r == GroupRoleMember || r == GroupRoleAdmin
}
