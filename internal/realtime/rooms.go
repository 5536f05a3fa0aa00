package realtime

import (
	"github.com/google/uuid"
)

const (
	AvailableProvidersRoom = "available_providers"
	AdminsRoom             = "admins"
)

func UserRoom(id uuid.UUID) string {
	return "user:" + id.String()
}

func RoleRoom(role string) string {
	return "role:" + role
}

func BookingRoom(id uuid.UUID) string {
	return "booking:" + id.String()
}
