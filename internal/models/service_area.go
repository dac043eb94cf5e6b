package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServiceArea is a tenant-scoped geographic polygon defining where deliveries
// may originate. The boundary is immutable after creation: changing geometry
// means creating a new area and deactivating the old one.
type ServiceArea struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID  primitive.ObjectID `json:"tenant_id" bson:"tenant_id" validate:"required"`
	City      string             `json:"city" bson:"city" validate:"required"`
	Boundary  Boundary           `json:"boundary" bson:"boundary"`
	Active    bool               `json:"active" bson:"active"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`

	pending []DomainEvent
}

func NewServiceArea(tenantID primitive.ObjectID, city string, boundary Boundary) (*ServiceArea, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("tenant id is required")
	}
	if city == "" {
		return nil, fmt.Errorf("city is required")
	}
	if len(boundary.Vertices) < 3 {
		return nil, fmt.Errorf("%w: boundary is not a polygon", ErrInvalidGeometry)
	}

	now := time.Now().UTC()
	area := &ServiceArea{
		ID:        primitive.NewObjectID(),
		TenantID:  tenantID,
		City:      city,
		Boundary:  boundary,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	area.record(ServiceAreaCreatedEvent{
		eventOccurrence: occurredNow(),
		ServiceAreaID:   area.ID,
		TenantID:        tenantID,
		City:            city,
	})
	return area, nil
}

// ReconstituteServiceArea restores persisted state without re-validating
// business invariants already enforced at creation. Persistence adapters only.
func ReconstituteServiceArea(id, tenantID primitive.ObjectID, city string, boundary Boundary,
	active bool, createdAt, updatedAt time.Time) *ServiceArea {
	return &ServiceArea{
		ID:        id,
		TenantID:  tenantID,
		City:      city,
		Boundary:  boundary,
		Active:    active,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// Contains reports whether a location falls inside the area. A zero location
// is a contract violation on the caller's side.
func (a *ServiceArea) Contains(location Location) (bool, error) {
	if location.IsZero() {
		return false, fmt.Errorf("%w: empty location", ErrInvalidGeometry)
	}
	return a.Boundary.Contains(location), nil
}

func (a *ServiceArea) OverlapsWith(other *ServiceArea) bool {
	return a.Boundary.Intersects(other.Boundary)
}

// Activate is idempotent: no timestamp churn and no event when already active.
func (a *ServiceArea) Activate() {
	if a.Active {
		return
	}
	a.Active = true
	a.UpdatedAt = time.Now().UTC()
	a.record(ServiceAreaActivatedEvent{eventOccurrence: occurredNow(), ServiceAreaID: a.ID})
}

func (a *ServiceArea) Deactivate() {
	if !a.Active {
		return
	}
	a.Active = false
	a.UpdatedAt = time.Now().UTC()
	a.record(ServiceAreaDeactivatedEvent{eventOccurrence: occurredNow(), ServiceAreaID: a.ID})
}

func (a *ServiceArea) record(e DomainEvent) {
	a.pending = append(a.pending, e)
}

// CollectEvents drains and returns the pending domain events.
func (a *ServiceArea) CollectEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
