package models

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestArea(t *testing.T) *ServiceArea {
	t.Helper()
	boundary, err := NewBoundary([]Location{
		MustLocation(-25.90, 32.50),
		MustLocation(-25.90, 32.60),
		MustLocation(-25.80, 32.60),
		MustLocation(-25.80, 32.50),
	})
	if err != nil {
		t.Fatal(err)
	}
	area, err := NewServiceArea(primitive.NewObjectID(), "Maputo", boundary)
	if err != nil {
		t.Fatal(err)
	}
	return area
}

func TestNewServiceAreaStartsActive(t *testing.T) {
	area := newTestArea(t)

	if !area.Active {
		t.Error("new area must be active")
	}
	events := area.CollectEvents()
	if len(events) != 1 || events[0].EventType() != "service_area.created" {
		t.Errorf("events = %v", events)
	}
}

func TestServiceAreaContains(t *testing.T) {
	area := newTestArea(t)

	inside, err := area.Contains(MustLocation(-25.85, 32.55))
	if err != nil || !inside {
		t.Errorf("inside point: %v %v", inside, err)
	}

	outside, err := area.Contains(MustLocation(-25.70, 32.55))
	if err != nil || outside {
		t.Errorf("outside point: %v %v", outside, err)
	}

	if _, err := area.Contains(Location{}); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("zero location: %v", err)
	}
}

func TestServiceAreaLifecycleIdempotent(t *testing.T) {
	area := newTestArea(t)
	area.CollectEvents()

	// Activating an already-active area changes nothing.
	before := area.UpdatedAt
	area.Activate()
	if len(area.CollectEvents()) != 0 {
		t.Error("redundant activation emitted events")
	}
	if !area.UpdatedAt.Equal(before) {
		t.Error("redundant activation touched UpdatedAt")
	}

	area.Deactivate()
	if area.Active {
		t.Fatal("area still active")
	}
	events := area.CollectEvents()
	if len(events) != 1 || events[0].EventType() != "service_area.deactivated" {
		t.Errorf("events = %v", events)
	}

	area.Deactivate()
	if len(area.CollectEvents()) != 0 {
		t.Error("redundant deactivation emitted events")
	}

	area.Activate()
	events = area.CollectEvents()
	if len(events) != 1 || events[0].EventType() != "service_area.activated" {
		t.Errorf("events = %v", events)
	}
}

func TestReconstituteDoesNotEmitEvents(t *testing.T) {
	original := newTestArea(t)
	restored := ReconstituteServiceArea(
		original.ID, original.TenantID, original.City, original.Boundary,
		false, original.CreatedAt, original.UpdatedAt,
	)

	if len(restored.CollectEvents()) != 0 {
		t.Error("reconstitution must not emit events")
	}
	if restored.Active {
		t.Error("persisted state must be restored as-is")
	}
}

func TestServiceAreaOverlapsWith(t *testing.T) {
	a := newTestArea(t)

	b := newTestArea(t)
	if !a.OverlapsWith(b) {
		t.Error("identical boundaries should overlap")
	}

	boundary, err := NewBoundary([]Location{
		MustLocation(-25.60, 32.50),
		MustLocation(-25.60, 32.60),
		MustLocation(-25.50, 32.60),
		MustLocation(-25.50, 32.50),
	})
	if err != nil {
		t.Fatal(err)
	}
	far, err := NewServiceArea(primitive.NewObjectID(), "Matola", boundary)
	if err != nil {
		t.Fatal(err)
	}
	if a.OverlapsWith(far) {
		t.Error("disjoint boundaries should not overlap")
	}
}
