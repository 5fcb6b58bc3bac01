package dtos

import "time"

// ResourceQuota is the namespace-wide quota applied to a group's
// namespace at creation time.
type ResourceQuota struct {
	Cpu     string `json:"cpu" validate:"required"`
	Memory  string `json:"memory" validate:"required"`
	Storage string `json:"storage" validate:"required"`
	MaxPods int64  `json:"maxPods" validate:"required,gt=0"`
}

type GroupDto struct {
	Id          string        `json:"id"`
	DisplayName string        `json:"displayName"`
	// Namespace is fixed at group creation and never changes afterwards.
	Namespace    string        `json:"namespace"`
	Quota        ResourceQuota `json:"quota"`
	DefaultImage string        `json:"defaultImage,omitempty"`
	// MemberCount is derived from the membership relation on read.
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

func GroupDtoExampleData() GroupDto {
	return GroupDto{
		Id:          "grp-a1b2c3d4ef",
		DisplayName: "platform-team",
		Namespace:   "group-a1b2c3d4ef",
		Quota:       ResourceQuota{Cpu: "2", Memory: "4Gi", Storage: "20Gi", MaxPods: 10},
		CreatedAt:   time.Now(),
	}
}

type MembershipDto struct {
	UserId    string    `json:"userId"`
	GroupId   string    `json:"groupId"`
	Role      GroupRole `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}
