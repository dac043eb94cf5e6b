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
)

type deliveryRepository struct {
	collection *mongo.Collection
}

func NewDeliveryRepository(db *mongo.Database) interfaces.DeliveryRepository {
	return &deliveryRepository{
		collection: db.Collection("deliveries"),
	}
}

var activeDeliveryStatuses = bson.A{
	models.DeliveryStatusAssigned,
	models.DeliveryStatusPickedUp,
	models.DeliveryStatusInTransit,
}

func (r *deliveryRepository) Create(ctx context.Context, delivery *models.Delivery) error {
	if delivery.ID.IsZero() {
		delivery.ID = primitive.NewObjectID()
	}
	delivery.CreatedAt = time.Now().UTC()
	delivery.UpdatedAt = delivery.CreatedAt

	if _, err := r.collection.InsertOne(ctx, delivery); err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}
	return nil
}

func (r *deliveryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&delivery)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}
	return &delivery, nil
}

func (r *deliveryRepository) Save(ctx context.Context, delivery *models.Delivery) error {
	delivery.UpdatedAt = time.Now().UTC()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": delivery.ID}, delivery)
	if err != nil {
		return fmt.Errorf("failed to save delivery: %w", err)
	}
	return nil
}

func (r *deliveryRepository) FindActiveByCourier(ctx context.Context, courierID primitive.ObjectID) (*models.Delivery, error) {
	filter := bson.M{
		"courier_id": courierID,
		"status":     bson.M{"$in": activeDeliveryStatuses},
	}
	var delivery models.Delivery
	err := r.collection.FindOne(ctx, filter).Decode(&delivery)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("failed to find active delivery: %w", err)
	}
	return &delivery, nil
}

func (r *deliveryRepository) FindByTenantAndStatus(ctx context.Context, tenantID primitive.ObjectID, status models.DeliveryStatus) ([]*models.Delivery, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"tenant_id": tenantID, "status": status})
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer cursor.Close(ctx)

	var deliveries []*models.Delivery
	if err := cursor.All(ctx, &deliveries); err != nil {
		return nil, fmt.Errorf("failed to decode deliveries: %w", err)
	}
	return deliveries, nil
}

func (r *deliveryRepository) FindFailedSince(ctx context.Context, cutoff time.Time, reason string) ([]*models.Delivery, error) {
	filter := bson.M{
		"status":          models.DeliveryStatusFailed,
		"first_failed_at": bson.M{"$gte": cutoff},
		"failure_reason":  reason,
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed deliveries: %w", err)
	}
	defer cursor.Close(ctx)

	var deliveries []*models.Delivery
	if err := cursor.All(ctx, &deliveries); err != nil {
		return nil, fmt.Errorf("failed to decode deliveries: %w", err)
	}
	return deliveries, nil
}
