package dtos

import "time"

type UserDto struct {
	Id            string    `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName"`
	PlatformAdmin bool      `json:"platformAdmin"`
	CreatedAt     time.Time `json:"createdAt"`
}

func UserDtoExampleData() UserDto {
	return UserDto{
		Id:          "usr-b2c9d4e1fg",
		Email:       "dev@example.com",
		DisplayName: "Dev Example",
		CreatedAt:   time.Now(),
	}
}
