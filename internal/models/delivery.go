package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusAssigned  DeliveryStatus = "assigned"
	DeliveryStatusPickedUp  DeliveryStatus = "picked_up"
	DeliveryStatusInTransit DeliveryStatus = "in_transit"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// FAILED is reachable from every non-terminal state.
var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryStatusPending:   {DeliveryStatusAssigned, DeliveryStatusFailed},
	DeliveryStatusAssigned:  {DeliveryStatusPickedUp, DeliveryStatusFailed},
	DeliveryStatusPickedUp:  {DeliveryStatusInTransit, DeliveryStatusFailed},
	DeliveryStatusInTransit: {DeliveryStatusDelivered, DeliveryStatusFailed},
}

func (s DeliveryStatus) CanTransitionTo(target DeliveryStatus) bool {
	for _, allowed := range deliveryTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusDelivered || s == DeliveryStatusFailed
}

// Well-known failure reasons. The re-dispatch sweep keys on
// FailureReasonNoCourier to find deliveries worth retrying.
const (
	FailureReasonNoCourier = "no_courier_available"
	FailureReasonCancelled = "cancelled"
)

// Delivery is the dispatch-side view of an order being carried from origin to
// destination by one courier.
type Delivery struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	TenantID      primitive.ObjectID  `json:"tenant_id" bson:"tenant_id" validate:"required"`
	OrderID       primitive.ObjectID  `json:"order_id" bson:"order_id" validate:"required"`
	CourierID     *primitive.ObjectID `json:"courier_id,omitempty" bson:"courier_id,omitempty"`
	Origin        Location            `json:"origin" bson:"origin" validate:"required"`
	Destination   Location            `json:"destination" bson:"destination" validate:"required"`
	Status        DeliveryStatus      `json:"status" bson:"status"`
	Route         *Route              `json:"route,omitempty" bson:"route,omitempty"`
	FailureReason string              `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`

	AssignedAt  *time.Time `json:"assigned_at,omitempty" bson:"assigned_at,omitempty"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty" bson:"picked_up_at,omitempty"`
	InTransitAt *time.Time `json:"in_transit_at,omitempty" bson:"in_transit_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty" bson:"failed_at,omitempty"`
	// FirstFailedAt survives Reopen and later failures, so the re-dispatch
	// window is measured from the first failure rather than the latest retry.
	FirstFailedAt *time.Time `json:"first_failed_at,omitempty" bson:"first_failed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`

	pending []DomainEvent
}

func NewDelivery(tenantID, orderID primitive.ObjectID, origin, destination Location) (*Delivery, error) {
	if tenantID.IsZero() || orderID.IsZero() {
		return nil, fmt.Errorf("tenant id and order id are required")
	}
	if origin.IsZero() || destination.IsZero() {
		return nil, fmt.Errorf("%w: origin and destination are required", ErrInvalidGeometry)
	}
	now := time.Now().UTC()
	return &Delivery{
		ID:          primitive.NewObjectID(),
		TenantID:    tenantID,
		OrderID:     orderID,
		Origin:      origin,
		Destination: destination,
		Status:      DeliveryStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (d *Delivery) transition(target DeliveryStatus, reason string) error {
	if d.Status == target {
		return nil
	}
	if !d.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: delivery %s -> %s", ErrInvalidTransition, d.Status, target)
	}
	from := d.Status
	d.Status = target
	d.UpdatedAt = time.Now().UTC()
	d.record(DeliveryStatusChangedEvent{
		eventOccurrence: occurredNow(),
		DeliveryID:      d.ID,
		From:            from,
		To:              target,
		Reason:          reason,
	})
	return nil
}

// Assign binds the delivery to a reserved courier with its computed route.
// The caller is responsible for having won the courier reservation first.
func (d *Delivery) Assign(courierID primitive.ObjectID, route Route) error {
	if err := d.transition(DeliveryStatusAssigned, ""); err != nil {
		return err
	}
	now := time.Now().UTC()
	d.CourierID = &courierID
	d.Route = &route
	d.AssignedAt = &now
	d.record(DeliveryAssignedEvent{
		eventOccurrence: occurredNow(),
		DeliveryID:      d.ID,
		OrderID:         d.OrderID,
		CourierID:       courierID,
		TenantID:        d.TenantID,
	})
	return nil
}

// Reassign swaps an assigned delivery onto a different courier with a fresh
// route. Only valid before pickup; once the parcel is with a courier the
// delivery has to be cancelled instead.
func (d *Delivery) Reassign(courierID primitive.ObjectID, route Route) error {
	if d.Status != DeliveryStatusAssigned || d.CourierID == nil {
		return fmt.Errorf("%w: delivery %s cannot be reassigned", ErrInvalidTransition, d.Status)
	}
	if *d.CourierID == courierID {
		return fmt.Errorf("%w: delivery already assigned to courier %s", ErrInvalidTransition, courierID.Hex())
	}
	previous := *d.CourierID
	now := time.Now().UTC()
	d.CourierID = &courierID
	d.Route = &route
	d.AssignedAt = &now
	d.UpdatedAt = now
	d.record(DeliveryReassignedEvent{
		eventOccurrence:   occurredNow(),
		DeliveryID:        d.ID,
		OrderID:           d.OrderID,
		PreviousCourierID: previous,
		CourierID:         courierID,
		TenantID:          d.TenantID,
	})
	return nil
}

// MarkRouteDegraded records that the route on this delivery is a direct-line
// fallback rather than an optimized one.
func (d *Delivery) MarkRouteDegraded(reason string) {
	if d.Route != nil {
		d.Route.Degraded = true
	}
	d.record(RouteOptimizationDegradedEvent{
		eventOccurrence: occurredNow(),
		DeliveryID:      d.ID,
		Reason:          reason,
	})
}

func (d *Delivery) MarkPickedUp() error {
	if err := d.transition(DeliveryStatusPickedUp, ""); err != nil {
		return err
	}
	now := time.Now().UTC()
	d.PickedUpAt = &now
	return nil
}

func (d *Delivery) MarkInTransit() error {
	if err := d.transition(DeliveryStatusInTransit, ""); err != nil {
		return err
	}
	now := time.Now().UTC()
	d.InTransitAt = &now
	return nil
}

func (d *Delivery) MarkDelivered() error {
	if err := d.transition(DeliveryStatusDelivered, ""); err != nil {
		return err
	}
	now := time.Now().UTC()
	d.DeliveredAt = &now
	if d.CourierID != nil {
		d.record(DeliveryCompletedEvent{
			eventOccurrence: occurredNow(),
			DeliveryID:      d.ID,
			CourierID:       *d.CourierID,
		})
	}
	return nil
}

// Fail moves the delivery to FAILED from any non-terminal state.
func (d *Delivery) Fail(reason string) error {
	if d.Status.IsTerminal() {
		return fmt.Errorf("%w: delivery already %s", ErrInvalidTransition, d.Status)
	}
	if err := d.transition(DeliveryStatusFailed, reason); err != nil {
		return err
	}
	now := time.Now().UTC()
	d.FailedAt = &now
	if d.FirstFailedAt == nil {
		d.FirstFailedAt = &now
	}
	d.FailureReason = reason
	return nil
}

// Reopen puts a delivery that failed for lack of couriers back into PENDING
// so the re-dispatch sweep can retry it. Any other failure stays failed.
// FirstFailedAt is kept so retries age out of the re-dispatch window.
func (d *Delivery) Reopen() error {
	if d.Status != DeliveryStatusFailed || d.FailureReason != FailureReasonNoCourier {
		return fmt.Errorf("%w: delivery %s (%s) cannot be reopened", ErrInvalidTransition, d.Status, d.FailureReason)
	}
	from := d.Status
	d.Status = DeliveryStatusPending
	d.FailureReason = ""
	d.FailedAt = nil
	d.UpdatedAt = time.Now().UTC()
	d.record(DeliveryStatusChangedEvent{
		eventOccurrence: occurredNow(),
		DeliveryID:      d.ID,
		From:            from,
		To:              DeliveryStatusPending,
		Reason:          "redispatch",
	})
	return nil
}

// RemainingDistance is the direct-line distance from a courier position to
// the destination.
func (d *Delivery) RemainingDistance(from Location) Distance {
	return from.DistanceTo(d.Destination)
}

func (d *Delivery) record(e DomainEvent) {
	d.pending = append(d.pending, e)
}

func (d *Delivery) CollectEvents() []DomainEvent {
	events := d.pending
	d.pending = nil
	return events
}
