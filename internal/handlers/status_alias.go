package handlers

import (
	"strings"

	"github.com/joshua-takyi/servicehub/internal/models"
)

// The admin dashboard uses its own names for three statuses.
var adminToInternal = map[string]models.BookingStatus{
	"confirmed": models.StatusAccepted,
	"ongoing":   models.StatusInProgress,
	"declined":  models.StatusRejected,
}

var internalToAdmin = map[models.BookingStatus]string{
	models.StatusAccepted:   "confirmed",
	models.StatusInProgress: "ongoing",
	models.StatusRejected:   "declined",
}

// FromAdminStatus accepts either an admin alias or an internal status name.
func FromAdminStatus(raw string) (models.BookingStatus, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if s, ok := adminToInternal[raw]; ok {
		return s, true
	}
	s := models.BookingStatus(raw)
	return s, s.IsValid()
}

func ToAdminStatus(s models.BookingStatus) string {
	if alias, ok := internalToAdmin[s]; ok {
		return alias
	}
	return string(s)
}
