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

type serviceAreaRepository struct {
	collection *mongo.Collection
}

func NewServiceAreaRepository(db *mongo.Database) interfaces.ServiceAreaRepository {
	return &serviceAreaRepository{
		collection: db.Collection("service_areas"),
	}
}

type geoPolygon struct {
	Type        string        `bson:"type"`
	Coordinates [][][]float64 `bson:"coordinates"`
}

// serviceAreaDoc is the persisted shape: vertices for reconstitution plus a
// closed GeoJSON ring under a 2dsphere index for $geoIntersects queries.
type serviceAreaDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	TenantID    primitive.ObjectID `bson:"tenant_id"`
	City        string             `bson:"city"`
	Vertices    []models.Location  `bson:"vertices"`
	BoundaryGeo geoPolygon         `bson:"boundary_geo"`
	Active      bool               `bson:"active"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func toServiceAreaDoc(area *models.ServiceArea) serviceAreaDoc {
	return serviceAreaDoc{
		ID:       area.ID,
		TenantID: area.TenantID,
		City:     area.City,
		Vertices: area.Boundary.Vertices,
		BoundaryGeo: geoPolygon{
			Type:        "Polygon",
			Coordinates: area.Boundary.GeoJSON(),
		},
		Active:    area.Active,
		CreatedAt: area.CreatedAt,
		UpdatedAt: area.UpdatedAt,
	}
}

func (d serviceAreaDoc) toModel() *models.ServiceArea {
	return models.ReconstituteServiceArea(
		d.ID, d.TenantID, d.City,
		models.Boundary{Vertices: d.Vertices},
		d.Active, d.CreatedAt, d.UpdatedAt,
	)
}

func (r *serviceAreaRepository) Create(ctx context.Context, area *models.ServiceArea) error {
	if area.ID.IsZero() {
		area.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, toServiceAreaDoc(area)); err != nil {
		return fmt.Errorf("failed to create service area: %w", err)
	}
	return nil
}

func (r *serviceAreaRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ServiceArea, error) {
	var doc serviceAreaDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrServiceAreaNotFound
		}
		return nil, fmt.Errorf("failed to get service area: %w", err)
	}
	return doc.toModel(), nil
}

func (r *serviceAreaRepository) Save(ctx context.Context, area *models.ServiceArea) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": area.ID}, toServiceAreaDoc(area))
	if err != nil {
		return fmt.Errorf("failed to save service area: %w", err)
	}
	return nil
}

func (r *serviceAreaRepository) FindContainingLocation(ctx context.Context, location models.Location) ([]*models.ServiceArea, error) {
	return r.findContaining(ctx, bson.M{"active": true}, location)
}

func (r *serviceAreaRepository) FindByTenantContaining(ctx context.Context, tenantID primitive.ObjectID, location models.Location) ([]*models.ServiceArea, error) {
	return r.findContaining(ctx, bson.M{"active": true, "tenant_id": tenantID}, location)
}

func (r *serviceAreaRepository) findContaining(ctx context.Context, filter bson.M, location models.Location) ([]*models.ServiceArea, error) {
	filter["boundary_geo"] = bson.M{
		"$geoIntersects": bson.M{
			"$geometry": bson.M{
				"type":        "Point",
				"coordinates": []float64{location.Longitude(), location.Latitude()},
			},
		},
	}
	return r.find(ctx, filter)
}

func (r *serviceAreaRepository) FindIntersecting(ctx context.Context, tenantID primitive.ObjectID, boundary models.Boundary) ([]*models.ServiceArea, error) {
	filter := bson.M{
		"active":    true,
		"tenant_id": tenantID,
		"boundary_geo": bson.M{
			"$geoIntersects": bson.M{
				"$geometry": bson.M{
					"type":        "Polygon",
					"coordinates": boundary.GeoJSON(),
				},
			},
		},
	}
	return r.find(ctx, filter)
}

func (r *serviceAreaRepository) FindActiveByTenant(ctx context.Context, tenantID primitive.ObjectID) ([]*models.ServiceArea, error) {
	return r.find(ctx, bson.M{"active": true, "tenant_id": tenantID})
}

func (r *serviceAreaRepository) find(ctx context.Context, filter bson.M) ([]*models.ServiceArea, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query service areas: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []serviceAreaDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode service areas: %w", err)
	}

	areas := make([]*models.ServiceArea, len(docs))
	for i, doc := range docs {
		areas[i] = doc.toModel()
	}
	return areas, nil
}
