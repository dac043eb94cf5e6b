package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DomainEvent is implemented by everything the engine hands to the event
// publisher. Aggregates buffer events in a plain slice and expose them via
// CollectEvents; there is no shared mutable base type.
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

type eventOccurrence struct {
	At time.Time `json:"occurred_at"`
}

func occurredNow() eventOccurrence {
	return eventOccurrence{At: time.Now().UTC()}
}

func (e eventOccurrence) OccurredAt() time.Time { return e.At }

type DeliveryAssignedEvent struct {
	eventOccurrence
	DeliveryID primitive.ObjectID `json:"delivery_id"`
	OrderID    primitive.ObjectID `json:"order_id"`
	CourierID  primitive.ObjectID `json:"courier_id"`
	TenantID   primitive.ObjectID `json:"tenant_id"`
}

func (DeliveryAssignedEvent) EventType() string { return "delivery.assigned" }

type DeliveryStatusChangedEvent struct {
	eventOccurrence
	DeliveryID primitive.ObjectID `json:"delivery_id"`
	From       DeliveryStatus     `json:"from"`
	To         DeliveryStatus     `json:"to"`
	Reason     string             `json:"reason,omitempty"`
}

func (DeliveryStatusChangedEvent) EventType() string { return "delivery.status_changed" }

// DeliveryReassignedEvent records an assignment moving to a different courier
// before pickup, with a freshly computed route.
type DeliveryReassignedEvent struct {
	eventOccurrence
	DeliveryID        primitive.ObjectID `json:"delivery_id"`
	OrderID           primitive.ObjectID `json:"order_id"`
	PreviousCourierID primitive.ObjectID `json:"previous_courier_id"`
	CourierID         primitive.ObjectID `json:"courier_id"`
	TenantID          primitive.ObjectID `json:"tenant_id"`
}

func (DeliveryReassignedEvent) EventType() string { return "delivery.reassigned" }

type DeliveryCompletedEvent struct {
	eventOccurrence
	DeliveryID primitive.ObjectID `json:"delivery_id"`
	CourierID  primitive.ObjectID `json:"courier_id"`
}

func (DeliveryCompletedEvent) EventType() string { return "delivery.completed" }

// RouteOptimizationDegradedEvent marks a dispatch that fell back to a
// direct-line estimate because the route optimizer failed or timed out. The
// assignment itself stays committed.
type RouteOptimizationDegradedEvent struct {
	eventOccurrence
	DeliveryID primitive.ObjectID `json:"delivery_id"`
	Reason     string             `json:"reason"`
}

func (RouteOptimizationDegradedEvent) EventType() string { return "delivery.route_degraded" }

type CourierStatusChangedEvent struct {
	eventOccurrence
	CourierID primitive.ObjectID `json:"courier_id"`
	From      CourierStatus      `json:"from"`
	To        CourierStatus      `json:"to"`
}

func (CourierStatusChangedEvent) EventType() string { return "courier.status_changed" }

// CourierOffRouteEvent is advisory: the courier's reported position deviates
// from the optimized route beyond the threshold for longer than the grace
// period. It never blocks delivery completion.
type CourierOffRouteEvent struct {
	eventOccurrence
	DeliveryID primitive.ObjectID `json:"delivery_id"`
	CourierID  primitive.ObjectID `json:"courier_id"`
	Deviation  Distance           `json:"deviation_meters"`
}

func (CourierOffRouteEvent) EventType() string { return "courier.off_route" }

// NewCourierOffRouteEvent is for the tracking layer, which detects deviation
// outside any aggregate.
func NewCourierOffRouteEvent(deliveryID, courierID primitive.ObjectID, deviation Distance) CourierOffRouteEvent {
	return CourierOffRouteEvent{
		eventOccurrence: occurredNow(),
		DeliveryID:      deliveryID,
		CourierID:       courierID,
		Deviation:       deviation,
	}
}

type CourierStalledEvent struct {
	eventOccurrence
	DeliveryID primitive.ObjectID `json:"delivery_id"`
	CourierID  primitive.ObjectID `json:"courier_id"`
	Since      time.Time          `json:"since"`
}

func (CourierStalledEvent) EventType() string { return "courier.stalled" }

func NewCourierStalledEvent(deliveryID, courierID primitive.ObjectID, since time.Time) CourierStalledEvent {
	return CourierStalledEvent{
		eventOccurrence: occurredNow(),
		DeliveryID:      deliveryID,
		CourierID:       courierID,
		Since:           since,
	}
}

type ServiceAreaCreatedEvent struct {
	eventOccurrence
	ServiceAreaID primitive.ObjectID `json:"service_area_id"`
	TenantID      primitive.ObjectID `json:"tenant_id"`
	City          string             `json:"city"`
}

func (ServiceAreaCreatedEvent) EventType() string { return "service_area.created" }

type ServiceAreaActivatedEvent struct {
	eventOccurrence
	ServiceAreaID primitive.ObjectID `json:"service_area_id"`
}

func (ServiceAreaActivatedEvent) EventType() string { return "service_area.activated" }

type ServiceAreaDeactivatedEvent struct {
	eventOccurrence
	ServiceAreaID primitive.ObjectID `json:"service_area_id"`
}

func (ServiceAreaDeactivatedEvent) EventType() string { return "service_area.deactivated" }
