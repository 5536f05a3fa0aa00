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

const BookingsColName = "bookings"

type BookingRepo interface {
	CreateBooking(ctx context.Context, booking *Booking) (*Booking, error)
	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// UpdateBooking replaces the booking if its stored version still equals expectedVersion.
	UpdateBooking(ctx context.Context, booking *Booking, expectedVersion int64) (*Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter, offset, limit int) ([]*Booking, int, error)
	CountBookings(ctx context.Context, filter BookingFilter) (int64, error)
}

func (f BookingFilter) toBson() bson.M {
	q := bson.M{}
	if f.CustomerID != nil {
		q["customer_id"] = *f.CustomerID
	}
	if f.ProviderID != nil {
		q["provider_id"] = *f.ProviderID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	return q
}

func (mdb *MongodbRepo) CreateBooking(ctx context.Context, booking *Booking) (*Booking, error) {
	if err := booking.BeforeCreate(); err != nil {
		return nil, fmt.Errorf("failed to prepare booking for creation: %w", err)
	}
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	if _, err := col.InsertOne(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to insert booking: %w", err)
	}
	return booking, nil
}

func (mdb *MongodbRepo) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var booking Booking
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("error finding booking: %w", err)
	}
	return &booking, nil
}

func (mdb *MongodbRepo) UpdateBooking(ctx context.Context, booking *Booking, expectedVersion int64) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	booking.Version = expectedVersion + 1
	booking.UpdatedAt = time.Now().UTC()
	booking.Recalculate()

	filter := bson.M{"_id": booking.ID, "version": expectedVersion}
	res, err := col.ReplaceOne(ctx, filter, booking)
	if err != nil {
		booking.Version = expectedVersion
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	if res.MatchedCount == 0 {
		booking.Version = expectedVersion
		return nil, ErrVersionConflict
	}
	return booking, nil
}

func (mdb *MongodbRepo) ListBookings(ctx context.Context, filter BookingFilter, offset, limit int) ([]*Booking, int, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}

	q := filter.toBson()
	total, err := col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting bookings: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_time", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := col.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*Booking
	for cursor.Next(ctx) {
		var b Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, 0, fmt.Errorf("error decoding booking: %w", err)
		}
		bookings = append(bookings, &b)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("cursor error: %w", err)
	}

	return bookings, int(total), nil
}

func (mdb *MongodbRepo) CountBookings(ctx context.Context, filter BookingFilter) (int64, error) {
	col, err := mdb.GetCollection(ctx, BookingsColName)
	if err != nil {
		return 0, fmt.Errorf("error getting collection: %w", err)
	}
	n, err := col.CountDocuments(ctx, filter.toBson())
	if err != nil {
		return 0, fmt.Errorf("error counting bookings: %w", err)
	}
	return n, nil
}
