package models

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the dispatch queries rely on
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		BookingsColName: {
			{
				Keys:    bson.D{{Key: "customer_id", Value: 1}, {Key: "scheduled_time", Value: -1}},
				Options: options.Index().SetName("customer_scheduled_idx"),
			},
			{
				Keys:    bson.D{{Key: "provider_id", Value: 1}, {Key: "scheduled_time", Value: -1}},
				Options: options.Index().SetName("provider_scheduled_idx"),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}},
				Options: options.Index().SetName("status_idx"),
			},
		},
		ProvidersColName: {
			{
				Keys: bson.D{
					{Key: "is_active", Value: 1},
					{Key: "is_approved", Value: 1},
					{Key: "category", Value: 1},
				},
				Options: options.Index().SetName("active_approved_category_idx"),
			},
			{
				Keys:    bson.D{{Key: "service_ids", Value: 1}},
				Options: options.Index().SetName("service_ids_idx"),
			},
		},
		PaymentsColName: {
			// one payment record per booking
			{
				Keys:    bson.D{{Key: "booking_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("booking_id_unique"),
			},
		},
	}

	for colName, indexes := range specs {
		col, err := mdb.GetCollection(ctx, colName)
		if err != nil {
			return fmt.Errorf("error getting collection: %w", err)
		}
		if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("error creating indexes on %s: %w", colName, err)
		}
	}
	return nil
}
