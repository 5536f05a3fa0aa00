package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const PaymentsColName = "payments"

type PaymentRecordStatus string

const (
	PaymentRecordPending           PaymentRecordStatus = "pending"
	PaymentRecordCompleted         PaymentRecordStatus = "completed"
	PaymentRecordFailed            PaymentRecordStatus = "failed"
	PaymentRecordRefunded          PaymentRecordStatus = "refunded"
	PaymentRecordPartiallyRefunded PaymentRecordStatus = "partially_refunded"
)

// Payment is the ledger record linked one-to-one with a booking.
type Payment struct {
	ID               uuid.UUID           `bson:"_id" json:"id"`
	BookingID        uuid.UUID           `bson:"booking_id" json:"booking_id"`
	CustomerID       uuid.UUID           `bson:"customer_id" json:"customer_id"`
	ProviderID       *uuid.UUID          `bson:"provider_id,omitempty" json:"provider_id,omitempty"`
	Amount           float64             `bson:"amount" json:"amount"`
	CommissionAmount float64             `bson:"commission_amount" json:"commission_amount"`
	ProviderPayout   float64             `bson:"provider_payout" json:"provider_payout"`
	Method           string              `bson:"method" json:"method"`
	Status           PaymentRecordStatus `bson:"status" json:"status"`
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `bson:"updated_at" json:"updated_at"`
}

type PaymentRepo interface {
	CreatePayment(ctx context.Context, payment *Payment) (*Payment, error)
	GetPaymentByBookingID(ctx context.Context, bookingID uuid.UUID) (*Payment, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentRecordStatus) (*Payment, error)
	// SetPaymentProvider records who is paid out for the booking after a claim or reassignment.
	SetPaymentProvider(ctx context.Context, bookingID, providerID uuid.UUID) (*Payment, error)
}

func (p *Payment) BeforeCreate() error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (mdb *MongodbRepo) CreatePayment(ctx context.Context, payment *Payment) (*Payment, error) {
	if err := payment.BeforeCreate(); err != nil {
		return nil, fmt.Errorf("failed to prepare payment for creation: %w", err)
	}
	col, err := mdb.GetCollection(ctx, PaymentsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.InsertOne(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}
	return payment, nil
}

func (mdb *MongodbRepo) GetPaymentByBookingID(ctx context.Context, bookingID uuid.UUID) (*Payment, error) {
	col, err := mdb.GetCollection(ctx, PaymentsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var payment Payment
	if err := col.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&payment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("error finding payment: %w", err)
	}
	return &payment, nil
}

func (mdb *MongodbRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentRecordStatus) (*Payment, error) {
	col, err := mdb.GetCollection(ctx, PaymentsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var payment Payment
	if err := col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&payment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("error updating payment status: %w", err)
	}
	return &payment, nil
}

func (mdb *MongodbRepo) SetPaymentProvider(ctx context.Context, bookingID, providerID uuid.UUID) (*Payment, error) {
	col, err := mdb.GetCollection(ctx, PaymentsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"provider_id": providerID,
			"updated_at":  time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var payment Payment
	if err := col.FindOneAndUpdate(ctx, bson.M{"booking_id": bookingID}, update, opts).Decode(&payment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("error updating payment provider: %w", err)
	}
	return &payment, nil
}
