package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusAccepted   BookingStatus = "accepted"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
	StatusRejected   BookingStatus = "rejected"
)

// AllStatuses lists every booking status in lifecycle order.
var AllStatuses = []BookingStatus{
	StatusPending,
	StatusAccepted,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusRejected,
}

func (s BookingStatus) IsValid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

// PaymentStatus is the payment state mirrored on the booking itself.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

const (
	RoleUser     = "user"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type StatusHistoryEntry struct {
	Status    BookingStatus `bson:"status" json:"status"`
	ChangedBy uuid.UUID     `bson:"changed_by" json:"changed_by"`
	Role      string        `bson:"role" json:"role"`
	Note      string        `bson:"note,omitempty" json:"note,omitempty"`
	ChangedAt time.Time     `bson:"changed_at" json:"changed_at"`
}

// BookingLocation is the customer's location captured when the booking is made.
type BookingLocation struct {
	Lat     *float64 `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng     *float64 `bson:"lng,omitempty" json:"lng,omitempty"`
	Address string   `bson:"address,omitempty" json:"address,omitempty"`
}

// Point returns the coordinates when both are present and finite.
func (l *BookingLocation) Point() *GeoPoint {
	if l == nil || l.Lat == nil || l.Lng == nil {
		return nil
	}
	lat, lng := *l.Lat, *l.Lng
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return nil
	}
	return &GeoPoint{Latitude: lat, Longitude: lng}
}

type Booking struct {
	ID         uuid.UUID  `bson:"_id" json:"id"`
	CustomerID uuid.UUID  `bson:"customer_id" json:"customer_id" validate:"required"`
	ProviderID *uuid.UUID `bson:"provider_id" json:"provider_id"`
	ServiceID  uuid.UUID  `bson:"service_id" json:"service_id" validate:"required"`

	ScheduledTime time.Time `bson:"scheduled_time" json:"scheduled_time"`
	Date          string    `bson:"date" json:"date"`
	Time          string    `bson:"time" json:"time"`

	Address       string `bson:"address" json:"address"`
	PaymentMethod string `bson:"payment_method" json:"payment_method"`
	Notes         string `bson:"notes,omitempty" json:"notes,omitempty"`

	Status        BookingStatus        `bson:"status" json:"status"`
	StatusHistory []StatusHistoryEntry `bson:"status_history" json:"status_history"`

	TotalAmount      float64       `bson:"total_amount" json:"total_amount" validate:"gte=0"`
	CommissionRate   float64       `bson:"commission_rate" json:"commission_rate" validate:"gte=0,lte=100"`
	CommissionAmount float64       `bson:"commission_amount" json:"commission_amount"`
	ProviderPayout   float64       `bson:"provider_payout" json:"provider_payout"`
	PaymentStatus    PaymentStatus `bson:"payment_status" json:"payment_status"`

	CustomerLocation *BookingLocation `bson:"customer_location,omitempty" json:"customer_location,omitempty"`
	ServicePhotos    []string         `bson:"service_photos,omitempty" json:"service_photos,omitempty"`

	AssignedAt   *time.Time `bson:"assigned_at,omitempty" json:"assigned_at,omitempty"`
	AcceptedAt   *time.Time `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	InProgressAt *time.Time `bson:"in_progress_at,omitempty" json:"in_progress_at,omitempty"`
	CompletedAt  *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CancelledAt  *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	RejectedAt   *time.Time `bson:"rejected_at,omitempty" json:"rejected_at,omitempty"`

	RejectionReason    string     `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	CancellationReason string     `bson:"cancellation_reason,omitempty" json:"cancellation_reason,omitempty"`
	CancelledBy        *uuid.UUID `bson:"cancelled_by,omitempty" json:"cancelled_by,omitempty"`

	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Recalculate refreshes every derived field. Repositories call it before each write.
func (b *Booking) Recalculate() {
	b.CommissionAmount = Round2(b.TotalAmount * b.CommissionRate / 100)
	b.ProviderPayout = Round2(b.TotalAmount - b.CommissionAmount)
	if !b.ScheduledTime.IsZero() {
		b.Date = b.ScheduledTime.Format(DateLayout)
		b.Time = b.ScheduledTime.Format(TimeLayout)
	}
}

func (b *Booking) BeforeCreate() error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	b.Recalculate()
	return nil
}

func (b *Booking) IsAssignedTo(providerID uuid.UUID) bool {
	return b.ProviderID != nil && *b.ProviderID == providerID
}

// Clone returns a deep copy so callers can mutate it without touching the original.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.ProviderID = cloneUUID(b.ProviderID)
	c.CancelledBy = cloneUUID(b.CancelledBy)
	c.AssignedAt = cloneTime(b.AssignedAt)
	c.AcceptedAt = cloneTime(b.AcceptedAt)
	c.InProgressAt = cloneTime(b.InProgressAt)
	c.CompletedAt = cloneTime(b.CompletedAt)
	c.CancelledAt = cloneTime(b.CancelledAt)
	c.RejectedAt = cloneTime(b.RejectedAt)
	if b.StatusHistory != nil {
		c.StatusHistory = append([]StatusHistoryEntry(nil), b.StatusHistory...)
	}
	if b.ServicePhotos != nil {
		c.ServicePhotos = append([]string(nil), b.ServicePhotos...)
	}
	if b.CustomerLocation != nil {
		loc := *b.CustomerLocation
		if loc.Lat != nil {
			lat := *loc.Lat
			loc.Lat = &lat
		}
		if loc.Lng != nil {
			lng := *loc.Lng
			loc.Lng = &lng
		}
		c.CustomerLocation = &loc
	}
	return &c
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

type BookingFilter struct {
	CustomerID *uuid.UUID
	ProviderID *uuid.UUID
	Status     BookingStatus
}
