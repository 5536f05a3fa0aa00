package helpers

import (
	"github.com/google/uuid"
)

type EnhancedClaims struct {
	*CustomClaims
	Role        string `json:"role"`
	UserID      string `json:"id"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
	Fullname    string `json:"fullname,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// Helper methods for role checking
func (ec *EnhancedClaims) IsAdmin() bool {
	return ec.Role == "admin"
}

func (ec *EnhancedClaims) IsProvider() bool {
	return ec.Role == "provider"
}

func (ec *EnhancedClaims) IsCustomer() bool {
	return ec.Role == "user"
}

func (ec *EnhancedClaims) HasRole(roles ...string) bool {
	for _, role := range roles {
		if ec.Role == role {
			return true
		}
	}
	return false
}

func (ec *EnhancedClaims) IsOwner(userID string) bool {
	return ec.UserID == userID
}

func (ec *EnhancedClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(ec.UserID)
}

func (ec *EnhancedClaims) GetSafeRole() string {
	if ec.Role == "" {
		return "guest"
	}
	return ec.Role
}
