package dtos

type WorkspaceCreateRequest struct {
	GroupId     string `json:"groupId" validate:"required"`
	DisplayName string `json:"displayName" validate:"required,min=1,max=63"`
	// Image overrides the group default and the configured fallback.
	Image string `json:"image,omitempty"`
	// Tier names a sizing preset; ignored when Resources is set.
	Tier      string          `json:"tier,omitempty"`
	Resources *ResourceSizing `json:"resources,omitempty"`
}

type WorkspaceUpdateRequest struct {
	DisplayName *string         `json:"displayName,omitempty" validate:"omitempty,min=1,max=63"`
	Image       *string         `json:"image,omitempty"`
	Resources   *ResourceSizing `json:"resources,omitempty"`
}

type WorkspaceActionRequest struct {
	Action WorkspaceAction `json:"action" validate:"required"`
}

type WorkspaceListFilter struct {
	UserId  string `json:"userId,omitempty"`
	GroupId string `json:"groupId,omitempty"`
	Offset  int    `json:"offset,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

type GroupCreateRequest struct {
	DisplayName  string        `json:"displayName" validate:"required,min=1,max=63"`
	Quota        ResourceQuota `json:"quota" validate:"required"`
	DefaultImage string        `json:"defaultImage,omitempty"`
}

type GroupUpdateRequest struct {
	DisplayName  *string        `json:"displayName,omitempty" validate:"omitempty,min=1,max=63"`
	Quota        *ResourceQuota `json:"quota,omitempty"`
	DefaultImage *string        `json:"defaultImage,omitempty"`
}

type MembershipRequest struct {
	UserId string    `json:"userId" validate:"required"`
	Role   GroupRole `json:"role" validate:"required"`
}

// HealthReport is the per-workspace component health answer: the
// persisted record next to what the cluster currently reports.
type HealthReport struct {
	WorkspaceId     string          `json:"workspaceId"`
	PersistedStatus WorkspaceStatus `json:"persistedStatus"`
	LiveStatus      WorkspaceStatus `json:"liveStatus"`
	DesiredReplicas int32           `json:"desiredReplicas"`
	ReadyReplicas   int32           `json:"readyReplicas"`
	DeploymentFound bool            `json:"deploymentFound"`
	ServiceFound    bool            `json:"serviceFound"`
	SecretFound     bool            `json:"secretFound"`
	RouteRegistered bool            `json:"routeRegistered"`
}
