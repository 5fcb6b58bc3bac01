package dtos

import "time"

// ResourceSizing is the {cpu, memory, storage} request triple of one
// workspace workload. Values use Kubernetes quantity notation.
type ResourceSizing struct {
	Cpu     string `json:"cpu" validate:"required"`
	Memory  string `json:"memory" validate:"required"`
	Storage string `json:"storage" validate:"required"`
}

func (r ResourceSizing) IsZero() bool {
	return r.Cpu == "" && r.Memory == "" && r.Storage == ""
}

// UsageSnapshot is the last observed live usage of a workspace,
// summed over its pods.
type UsageSnapshot struct {
	CpuMilli    int64     `json:"cpuMilli"`
	MemoryBytes int64     `json:"memoryBytes"`
	WindowInMs  int64     `json:"windowInMs"`
	CollectedAt time.Time `json:"collectedAt"`
}

type WorkspaceDto struct {
	Id          string          `json:"id"`
	UserId      string          `json:"userId"`
	GroupId     string          `json:"groupId"`
	DisplayName string          `json:"displayName"`
	Status      WorkspaceStatus `json:"status"`
	Image       string          `json:"image"`
	Resources   ResourceSizing  `json:"resources"`
	Replicas    int32           `json:"replicas"`
	AccessToken string          `json:"accessToken,omitempty"`
	Url         string          `json:"url,omitempty"`
	Usage       *UsageSnapshot  `json:"usage,omitempty"`

	CreatedAt      time.Time  `json:"createdAt"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
}

func WorkspaceDtoExampleData() WorkspaceDto {
	return WorkspaceDto{
		Id:          "ws-x7f3k2m9qa",
		UserId:      "usr-b2c9d4e1fg",
		GroupId:     "grp-a1b2c3d4ef",
		DisplayName: "my-workspace",
		Status:      WorkspaceStatusStopped,
		Image:       "codercom/code-server:latest",
		Resources:   ResourceSizing{Cpu: "500m", Memory: "1Gi", Storage: "5Gi"},
		Replicas:    0,
		CreatedAt:   time.Now(),
	}
}
