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

const (
	ServicesColName  = "services"
	ProvidersColName = "providers"

	DefaultServiceRadiusKm = 15.0
)

type GeoPoint struct {
	Latitude  float64 `bson:"lat" json:"lat"`
	Longitude float64 `bson:"lng" json:"lng"`
}

// Service is a catalog entry customers book against.
type Service struct {
	ID             uuid.UUID `bson:"_id" json:"id"`
	Name           string    `bson:"name" json:"name"`
	Category       string    `bson:"category" json:"category"`
	Price          float64   `bson:"price" json:"price"`
	CommissionRate float64   `bson:"commission_rate" json:"commission_rate" validate:"gte=0,lte=100"`
	IsActive       bool      `bson:"is_active" json:"is_active"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

type Provider struct {
	ID              uuid.UUID   `bson:"_id" json:"id"`
	Name            string      `bson:"name" json:"name"`
	IsActive        bool        `bson:"is_active" json:"is_active"`
	IsApproved      bool        `bson:"is_approved" json:"is_approved"`
	Category        string      `bson:"category" json:"category"`
	ServiceIDs      []uuid.UUID `bson:"service_ids" json:"service_ids"`
	Location        *GeoPoint   `bson:"location,omitempty" json:"location,omitempty"`
	ServiceRadiusKm float64     `bson:"service_radius_km" json:"service_radius_km"`
	CreatedAt       time.Time   `bson:"created_at" json:"created_at"`
}

// Radius is the provider's service radius, falling back to the platform default.
func (p Provider) Radius() float64 {
	if p.ServiceRadiusKm <= 0 {
		return DefaultServiceRadiusKm
	}
	return p.ServiceRadiusKm
}

func (p Provider) Offers(s *Service) bool {
	if s == nil {
		return false
	}
	for _, id := range p.ServiceIDs {
		if id == s.ID {
			return true
		}
	}
	return p.Category != "" && p.Category == s.Category
}

type ServiceRepo interface {
	GetServiceByID(ctx context.Context, id uuid.UUID) (*Service, error)
}

type ProviderRepo interface {
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	// FindMatchingProviders returns active, approved providers that list the service or share its category.
	FindMatchingProviders(ctx context.Context, serviceID uuid.UUID, category string) ([]*Provider, error)
}

func (mdb *MongodbRepo) GetServiceByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	col, err := mdb.GetCollection(ctx, ServicesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var service Service
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&service); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("error finding service: %w", err)
	}
	return &service, nil
}

func (mdb *MongodbRepo) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	col, err := mdb.GetCollection(ctx, ProvidersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var provider Provider
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&provider); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("error finding provider: %w", err)
	}
	return &provider, nil
}

func (mdb *MongodbRepo) FindMatchingProviders(ctx context.Context, serviceID uuid.UUID, category string) ([]*Provider, error) {
	col, err := mdb.GetCollection(ctx, ProvidersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	match := bson.A{bson.M{"service_ids": serviceID}}
	if category != "" {
		match = append(match, bson.M{"category": category})
	}
	filter := bson.M{
		"is_active":   true,
		"is_approved": true,
		"$or":         match,
	}
	// stable order keeps assignment deterministic for identical snapshots
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding providers: %w", err)
	}
	defer cursor.Close(ctx)

	var providers []*Provider
	if err := cursor.All(ctx, &providers); err != nil {
		return nil, fmt.Errorf("error decoding providers: %w", err)
	}
	return providers, nil
}
