package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CourierStatus string

const (
	CourierStatusOffline   CourierStatus = "offline"
	CourierStatusAvailable CourierStatus = "available"
	CourierStatusAssigned  CourierStatus = "assigned"
	CourierStatusEnRoute   CourierStatus = "en_route"
)

var courierTransitions = map[CourierStatus][]CourierStatus{
	CourierStatusOffline:   {CourierStatusAvailable},
	CourierStatusAvailable: {CourierStatusAssigned, CourierStatusOffline},
	CourierStatusAssigned:  {CourierStatusEnRoute, CourierStatusAvailable},
	CourierStatusEnRoute:   {CourierStatusAvailable, CourierStatusAssigned, CourierStatusOffline},
}

func (s CourierStatus) CanTransitionTo(target CourierStatus) bool {
	for _, allowed := range courierTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Courier is the mobile actor fulfilling deliveries. Identity is owned by the
// dispatch module; the live position is owned by the LocationTracker while the
// courier is in service, so CurrentLocation here is only the last persisted
// snapshot.
type Courier struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID           primitive.ObjectID `json:"tenant_id" bson:"tenant_id" validate:"required"`
	Name               string             `json:"name" bson:"name" validate:"required"`
	Phone              string             `json:"phone" bson:"phone"`
	VehicleType        string             `json:"vehicle_type" bson:"vehicle_type"`
	Status             CourierStatus      `json:"status" bson:"status"`
	Capacity           int                `json:"capacity" bson:"capacity"` // max concurrent deliveries
	ActiveDeliveries   int                `json:"active_deliveries" bson:"active_deliveries"`
	CurrentLocation    *Location          `json:"current_location,omitempty" bson:"current_location,omitempty"`
	LastLocationUpdate *time.Time         `json:"last_location_update,omitempty" bson:"last_location_update,omitempty"`
	AvailableSince     *time.Time         `json:"available_since,omitempty" bson:"available_since,omitempty"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" bson:"updated_at"`

	pending []DomainEvent
}

func NewCourier(tenantID primitive.ObjectID, name, phone, vehicleType string, capacity int) (*Courier, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("tenant id is required")
	}
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if capacity < 1 {
		capacity = 1
	}
	now := time.Now().UTC()
	return &Courier{
		ID:          primitive.NewObjectID(),
		TenantID:    tenantID,
		Name:        name,
		Phone:       phone,
		VehicleType: vehicleType,
		Status:      CourierStatusOffline,
		Capacity:    capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (c *Courier) HasCapacity() bool {
	return c.ActiveDeliveries < c.Capacity
}

func (c *Courier) IsAvailable() bool {
	return c.Status == CourierStatusAvailable && c.HasCapacity()
}

func (c *Courier) setStatus(target CourierStatus) error {
	if c.Status == target {
		return nil
	}
	if !c.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: courier %s -> %s", ErrInvalidTransition, c.Status, target)
	}
	from := c.Status
	c.Status = target
	c.UpdatedAt = time.Now().UTC()
	c.record(CourierStatusChangedEvent{
		eventOccurrence: occurredNow(),
		CourierID:       c.ID,
		From:            from,
		To:              target,
	})
	return nil
}

// GoOnline marks the courier available for assignment and starts the
// idle-fairness clock.
func (c *Courier) GoOnline() error {
	if err := c.setStatus(CourierStatusAvailable); err != nil {
		return err
	}
	now := time.Now().UTC()
	c.AvailableSince = &now
	return nil
}

func (c *Courier) GoOffline() error {
	if err := c.setStatus(CourierStatusOffline); err != nil {
		return err
	}
	c.AvailableSince = nil
	return nil
}

// Reserve claims the courier for a delivery: AVAILABLE -> ASSIGNED. The
// repository layer is responsible for making this a compare-and-swap against
// storage; this method enforces the in-memory invariant.
func (c *Courier) Reserve() error {
	if !c.IsAvailable() {
		return fmt.Errorf("%w: courier %s is %s", ErrReservationLost, c.ID.Hex(), c.Status)
	}
	if err := c.setStatus(CourierStatusAssigned); err != nil {
		return err
	}
	c.ActiveDeliveries++
	return nil
}

// Release is the compensating action for a reservation whose dispatch did not
// complete: the courier goes back to AVAILABLE and rejoins the fairness queue
// at the end.
func (c *Courier) Release() error {
	if err := c.setStatus(CourierStatusAvailable); err != nil {
		return err
	}
	if c.ActiveDeliveries > 0 {
		c.ActiveDeliveries--
	}
	now := time.Now().UTC()
	c.AvailableSince = &now
	return nil
}

func (c *Courier) StartRoute() error {
	return c.setStatus(CourierStatusEnRoute)
}

// CompleteDelivery frees one delivery slot; with no active deliveries left the
// courier becomes AVAILABLE again.
func (c *Courier) CompleteDelivery() error {
	if c.ActiveDeliveries <= 0 {
		return fmt.Errorf("%w: no active deliveries to complete", ErrInvalidTransition)
	}
	c.ActiveDeliveries--
	if c.ActiveDeliveries == 0 {
		if err := c.setStatus(CourierStatusAvailable); err != nil {
			return err
		}
		now := time.Now().UTC()
		c.AvailableSince = &now
	}
	return nil
}

func (c *Courier) UpdateLocation(location Location, at time.Time) {
	c.CurrentLocation = &location
	c.LastLocationUpdate = &at
	c.UpdatedAt = time.Now().UTC()
}

func (c *Courier) record(e DomainEvent) {
	c.pending = append(c.pending, e)
}

func (c *Courier) CollectEvents() []DomainEvent {
	events := c.pending
	c.pending = nil
	return events
}
