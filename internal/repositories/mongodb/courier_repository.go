package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type courierRepository struct {
	collection *mongo.Collection
}

func NewCourierRepository(db *mongo.Database) interfaces.CourierRepository {
	return &courierRepository{
		collection: db.Collection("couriers"),
	}
}

func (r *courierRepository) Create(ctx context.Context, courier *models.Courier) error {
	if courier.ID.IsZero() {
		courier.ID = primitive.NewObjectID()
	}
	courier.CreatedAt = time.Now().UTC()
	courier.UpdatedAt = courier.CreatedAt

	if _, err := r.collection.InsertOne(ctx, courier); err != nil {
		return fmt.Errorf("failed to create courier: %w", err)
	}
	return nil
}

func (r *courierRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Courier, error) {
	var courier models.Courier
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&courier)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrCourierNotFound
		}
		return nil, fmt.Errorf("failed to get courier: %w", err)
	}
	return &courier, nil
}

func (r *courierRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.Courier, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to list couriers: %w", err)
	}
	defer cursor.Close(ctx)

	var couriers []*models.Courier
	if err := cursor.All(ctx, &couriers); err != nil {
		return nil, fmt.Errorf("failed to decode couriers: %w", err)
	}
	return couriers, nil
}

func (r *courierRepository) Save(ctx context.Context, courier *models.Courier) error {
	courier.UpdatedAt = time.Now().UTC()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": courier.ID}, courier)
	if err != nil {
		return fmt.Errorf("failed to save courier: %w", err)
	}
	return nil
}

// Reserve is the single mutual-exclusion point of the assignment flow: a
// conditional FindOneAndUpdate so that exactly one concurrent dispatch wins
// the AVAILABLE -> ASSIGNED transition.
func (r *courierRepository) Reserve(ctx context.Context, id primitive.ObjectID) (*models.Courier, error) {
	filter := bson.M{
		"_id":    id,
		"status": models.CourierStatusAvailable,
		"$expr":  bson.M{"$lt": bson.A{"$active_deliveries", "$capacity"}},
	}
	update := bson.M{
		"$set": bson.M{
			"status":     models.CourierStatusAssigned,
			"updated_at": time.Now().UTC(),
		},
		"$inc": bson.M{"active_deliveries": 1},
	}

	var courier models.Courier
	err := r.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&courier)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: courier %s", models.ErrReservationLost, id.Hex())
		}
		return nil, fmt.Errorf("failed to reserve courier: %w", err)
	}
	return &courier, nil
}

func (r *courierRepository) Release(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": bson.A{models.CourierStatusAssigned, models.CourierStatusEnRoute}},
	}
	update := bson.M{
		"$set": bson.M{
			"status":          models.CourierStatusAvailable,
			"available_since": now,
			"updated_at":      now,
		},
		"$inc": bson.M{"active_deliveries": -1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to release courier: %w", err)
	}
	if result.MatchedCount == 0 {
		// Already released or never reserved; releasing twice is harmless.
		return nil
	}
	return nil
}

func (r *courierRepository) GetAvailableByTenant(ctx context.Context, tenantID primitive.ObjectID) ([]*models.Courier, error) {
	filter := bson.M{
		"tenant_id": tenantID,
		"status":    models.CourierStatusAvailable,
		"$expr":     bson.M{"$lt": bson.A{"$active_deliveries", "$capacity"}},
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list available couriers: %w", err)
	}
	defer cursor.Close(ctx)

	var couriers []*models.Courier
	if err := cursor.All(ctx, &couriers); err != nil {
		return nil, fmt.Errorf("failed to decode couriers: %w", err)
	}
	return couriers, nil
}
