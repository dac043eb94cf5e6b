package models

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestDelivery(t *testing.T) *Delivery {
	t.Helper()
	d, err := NewDelivery(
		primitive.NewObjectID(), primitive.NewObjectID(),
		MustLocation(-25.85, 32.55), MustLocation(-25.86, 32.58),
	)
	if err != nil {
		t.Fatalf("NewDelivery: %v", err)
	}
	return d
}

func testRoute() Route {
	return Route{
		StartLocation: MustLocation(-25.85, 32.55),
		EndLocation:   MustLocation(-25.86, 32.58),
		Distance:      Distance(3200),
		Duration:      8 * time.Minute,
		ComputedAt:    time.Now().UTC(),
	}
}

func TestDeliveryHappyPath(t *testing.T) {
	d := newTestDelivery(t)
	courierID := primitive.NewObjectID()

	if d.Status != DeliveryStatusPending {
		t.Fatalf("new delivery status = %s", d.Status)
	}

	if err := d.Assign(courierID, testRoute()); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if d.Status != DeliveryStatusAssigned || d.CourierID == nil || *d.CourierID != courierID {
		t.Fatalf("after Assign: status=%s courier=%v", d.Status, d.CourierID)
	}
	if d.AssignedAt == nil || d.Route == nil {
		t.Fatal("Assign must set route and timestamp")
	}

	if err := d.MarkPickedUp(); err != nil {
		t.Fatalf("MarkPickedUp: %v", err)
	}
	if err := d.MarkInTransit(); err != nil {
		t.Fatalf("MarkInTransit: %v", err)
	}
	if err := d.MarkDelivered(); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if !d.Status.IsTerminal() || d.DeliveredAt == nil {
		t.Fatalf("after delivery: status=%s", d.Status)
	}

	events := d.CollectEvents()
	var sawAssigned, sawCompleted bool
	for _, e := range events {
		switch e.EventType() {
		case "delivery.assigned":
			sawAssigned = true
		case "delivery.completed":
			sawCompleted = true
		}
	}
	if !sawAssigned || !sawCompleted {
		t.Errorf("expected assigned and completed events, got %d events", len(events))
	}
	if len(d.CollectEvents()) != 0 {
		t.Error("CollectEvents must drain the buffer")
	}
}

func TestDeliveryRejectsSkippedStates(t *testing.T) {
	d := newTestDelivery(t)

	if err := d.MarkPickedUp(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pickup from pending: %v", err)
	}
	if err := d.MarkDelivered(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("deliver from pending: %v", err)
	}
}

func TestDeliveryFailFromAnyNonTerminalState(t *testing.T) {
	states := []func(d *Delivery){
		func(d *Delivery) {},
		func(d *Delivery) { d.Assign(primitive.NewObjectID(), testRoute()) },
		func(d *Delivery) { d.Assign(primitive.NewObjectID(), testRoute()); d.MarkPickedUp() },
		func(d *Delivery) {
			d.Assign(primitive.NewObjectID(), testRoute())
			d.MarkPickedUp()
			d.MarkInTransit()
		},
	}

	for i, setup := range states {
		d := newTestDelivery(t)
		setup(d)
		if err := d.Fail("driver unreachable"); err != nil {
			t.Errorf("case %d: Fail from %s: %v", i, d.Status, err)
		}
		if d.Status != DeliveryStatusFailed || d.FailedAt == nil {
			t.Errorf("case %d: status=%s", i, d.Status)
		}
	}
}

func TestDeliveryFailRejectedOnTerminal(t *testing.T) {
	d := newTestDelivery(t)
	d.Assign(primitive.NewObjectID(), testRoute())
	d.MarkPickedUp()
	d.MarkInTransit()
	d.MarkDelivered()

	if err := d.Fail("too late"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fail on delivered: %v", err)
	}
}

func TestDeliveryReopen(t *testing.T) {
	d := newTestDelivery(t)
	if err := d.Fail(FailureReasonNoCourier); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	if err := d.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if d.Status != DeliveryStatusPending || d.FailureReason != "" || d.FailedAt != nil {
		t.Fatalf("after Reopen: status=%s reason=%q", d.Status, d.FailureReason)
	}
}

func TestDeliveryRefailKeepsFirstFailureTime(t *testing.T) {
	d := newTestDelivery(t)
	if err := d.Fail(FailureReasonNoCourier); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	first := *d.FirstFailedAt

	if err := d.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if d.FirstFailedAt == nil || !d.FirstFailedAt.Equal(first) {
		t.Fatal("Reopen must keep the first failure time")
	}

	if err := d.Fail(FailureReasonNoCourier); err != nil {
		t.Fatalf("second Fail: %v", err)
	}
	if !d.FirstFailedAt.Equal(first) {
		t.Error("a later failure must not reset the first failure time")
	}
}

func TestDeliveryReopenOnlyForNoCourierFailures(t *testing.T) {
	d := newTestDelivery(t)
	if err := d.Fail(FailureReasonCancelled); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := d.Reopen(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Reopen on cancelled delivery: %v", err)
	}

	fresh := newTestDelivery(t)
	if err := fresh.Reopen(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Reopen on pending delivery: %v", err)
	}
}

func TestDeliveryReassign(t *testing.T) {
	d := newTestDelivery(t)
	first := primitive.NewObjectID()
	second := primitive.NewObjectID()

	if err := d.Reassign(second, testRoute()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reassign of unassigned delivery: %v", err)
	}

	if err := d.Assign(first, testRoute()); err != nil {
		t.Fatal(err)
	}
	d.CollectEvents()

	if err := d.Reassign(first, testRoute()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reassign to the same courier: %v", err)
	}

	if err := d.Reassign(second, testRoute()); err != nil {
		t.Fatalf("Reassign: %v", err)
	}
	if d.Status != DeliveryStatusAssigned || *d.CourierID != second {
		t.Fatalf("after Reassign: status=%s courier=%s", d.Status, d.CourierID.Hex())
	}
	events := d.CollectEvents()
	if len(events) != 1 || events[0].EventType() != "delivery.reassigned" {
		t.Fatalf("events = %v", events)
	}

	if err := d.MarkPickedUp(); err != nil {
		t.Fatal(err)
	}
	if err := d.Reassign(primitive.NewObjectID(), testRoute()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reassign after pickup: %v", err)
	}
}

func TestMarkRouteDegraded(t *testing.T) {
	d := newTestDelivery(t)
	d.Assign(primitive.NewObjectID(), testRoute())
	d.CollectEvents()

	d.MarkRouteDegraded("optimizer timeout")

	if d.Route == nil || !d.Route.Degraded {
		t.Fatal("route must be flagged degraded")
	}
	events := d.CollectEvents()
	if len(events) != 1 || events[0].EventType() != "delivery.route_degraded" {
		t.Fatalf("events = %v", events)
	}
}
