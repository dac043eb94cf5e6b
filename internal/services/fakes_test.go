package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"godispatch/internal/config"
	"godispatch/internal/models"
	"godispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testDispatchConfig() *config.DispatchConfig {
	return &config.DispatchConfig{
		SearchRadiusKM:   utils.DefaultSearchRadiusKM,
		MaxRadiusKM:      utils.MaxSearchRadiusKM,
		OptimizerTimeout: utils.RouteOptimizerTimeout,
		RedispatchWindow: utils.RedispatchWindow,
		SweepInterval:    utils.RedispatchSweepInterval,
	}
}

// fakeCourierRepo guards couriers with a mutex and implements Reserve as a
// real compare-and-swap, so concurrency tests exercise the same exclusivity
// the storage layer provides.
type fakeCourierRepo struct {
	mu       sync.Mutex
	couriers map[primitive.ObjectID]*models.Courier

	reserveErr error
	releaseErr error
	released   []primitive.ObjectID
}

func newFakeCourierRepo() *fakeCourierRepo {
	return &fakeCourierRepo{couriers: make(map[primitive.ObjectID]*models.Courier)}
}

func (r *fakeCourierRepo) add(c *models.Courier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.couriers[c.ID] = &cp
}

func (r *fakeCourierRepo) get(id primitive.ObjectID) models.Courier {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.couriers[id]
}

func (r *fakeCourierRepo) Create(_ context.Context, courier *models.Courier) error {
	if courier.ID.IsZero() {
		courier.ID = primitive.NewObjectID()
	}
	r.add(courier)
	return nil
}

func (r *fakeCourierRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Courier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.couriers[id]
	if !ok {
		return nil, models.ErrCourierNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCourierRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.Courier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Courier
	for _, id := range ids {
		if c, ok := r.couriers[id]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeCourierRepo) Save(_ context.Context, courier *models.Courier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *courier
	r.couriers[courier.ID] = &cp
	return nil
}

func (r *fakeCourierRepo) Reserve(_ context.Context, id primitive.ObjectID) (*models.Courier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reserveErr != nil {
		return nil, r.reserveErr
	}
	c, ok := r.couriers[id]
	if !ok {
		return nil, models.ErrCourierNotFound
	}
	if c.Status != models.CourierStatusAvailable || c.ActiveDeliveries >= c.Capacity {
		return nil, fmt.Errorf("%w: courier %s", models.ErrReservationLost, id.Hex())
	}
	c.Status = models.CourierStatusAssigned
	c.ActiveDeliveries++
	cp := *c
	return &cp, nil
}

func (r *fakeCourierRepo) Release(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.releaseErr != nil {
		return r.releaseErr
	}
	r.released = append(r.released, id)
	if c, ok := r.couriers[id]; ok &&
		(c.Status == models.CourierStatusAssigned || c.Status == models.CourierStatusEnRoute) {
		c.Status = models.CourierStatusAvailable
		c.ActiveDeliveries--
		now := time.Now().UTC()
		c.AvailableSince = &now
	}
	return nil
}

func (r *fakeCourierRepo) GetAvailableByTenant(_ context.Context, tenantID primitive.ObjectID) ([]*models.Courier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Courier
	for _, c := range r.couriers {
		if c.TenantID == tenantID && c.Status == models.CourierStatusAvailable && c.ActiveDeliveries < c.Capacity {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeDeliveryRepo struct {
	mu         sync.Mutex
	deliveries map[primitive.ObjectID]*models.Delivery
	saveErr    error
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{deliveries: make(map[primitive.ObjectID]*models.Delivery)}
}

func (r *fakeDeliveryRepo) add(d *models.Delivery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.deliveries[d.ID] = &cp
}

func (r *fakeDeliveryRepo) get(id primitive.ObjectID) models.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.deliveries[id]
}

func (r *fakeDeliveryRepo) Create(_ context.Context, delivery *models.Delivery) error {
	if delivery.ID.IsZero() {
		delivery.ID = primitive.NewObjectID()
	}
	r.add(delivery)
	return nil
}

func (r *fakeDeliveryRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliveries[id]
	if !ok {
		return nil, models.ErrDeliveryNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeDeliveryRepo) Save(_ context.Context, delivery *models.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *delivery
	r.deliveries[delivery.ID] = &cp
	return nil
}

func (r *fakeDeliveryRepo) FindActiveByCourier(_ context.Context, courierID primitive.ObjectID) (*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.deliveries {
		if d.CourierID == nil || *d.CourierID != courierID {
			continue
		}
		switch d.Status {
		case models.DeliveryStatusAssigned, models.DeliveryStatusPickedUp, models.DeliveryStatusInTransit:
			cp := *d
			return &cp, nil
		}
	}
	return nil, models.ErrDeliveryNotFound
}

func (r *fakeDeliveryRepo) FindByTenantAndStatus(_ context.Context, tenantID primitive.ObjectID, status models.DeliveryStatus) ([]*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Delivery
	for _, d := range r.deliveries {
		if d.TenantID == tenantID && d.Status == status {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeDeliveryRepo) FindFailedSince(_ context.Context, cutoff time.Time, reason string) ([]*models.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Delivery
	for _, d := range r.deliveries {
		if d.Status == models.DeliveryStatusFailed && d.FailureReason == reason &&
			d.FirstFailedAt != nil && !d.FirstFailedAt.Before(cutoff) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeAreaRepo struct {
	mu    sync.Mutex
	areas map[primitive.ObjectID]*models.ServiceArea
}

func newFakeAreaRepo() *fakeAreaRepo {
	return &fakeAreaRepo{areas: make(map[primitive.ObjectID]*models.ServiceArea)}
}

func (r *fakeAreaRepo) Create(_ context.Context, area *models.ServiceArea) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if area.ID.IsZero() {
		area.ID = primitive.NewObjectID()
	}
	r.areas[area.ID] = area
	return nil
}

func (r *fakeAreaRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.ServiceArea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.areas[id]
	if !ok {
		return nil, models.ErrServiceAreaNotFound
	}
	return a, nil
}

func (r *fakeAreaRepo) Save(_ context.Context, area *models.ServiceArea) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.areas[area.ID] = area
	return nil
}

func (r *fakeAreaRepo) FindContainingLocation(_ context.Context, location models.Location) ([]*models.ServiceArea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ServiceArea
	for _, a := range r.areas {
		if a.Active && a.Boundary.Contains(location) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAreaRepo) FindByTenantContaining(_ context.Context, tenantID primitive.ObjectID, location models.Location) ([]*models.ServiceArea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ServiceArea
	for _, a := range r.areas {
		if a.Active && a.TenantID == tenantID && a.Boundary.Contains(location) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAreaRepo) FindIntersecting(_ context.Context, tenantID primitive.ObjectID, boundary models.Boundary) ([]*models.ServiceArea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ServiceArea
	for _, a := range r.areas {
		if a.Active && a.TenantID == tenantID && a.Boundary.Intersects(boundary) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAreaRepo) FindActiveByTenant(_ context.Context, tenantID primitive.ObjectID) ([]*models.ServiceArea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ServiceArea
	for _, a := range r.areas {
		if a.Active && a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

// capturePublisher records every published event for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []models.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...models.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) typesSeen() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	seen := make(map[string]int)
	for _, e := range p.events {
		seen[e.EventType()]++
	}
	return seen
}

// fakeOptimizer returns a canned route or error.
type fakeOptimizer struct {
	route *models.Route
	err   error
	delay time.Duration
}

func (o *fakeOptimizer) Optimize(ctx context.Context, origin, destination models.Location, waypoints []models.Location) (*models.Route, error) {
	if o.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.delay):
		}
	}
	if o.err != nil {
		return nil, o.err
	}
	if o.route != nil {
		return o.route, nil
	}
	return &models.Route{
		StartLocation: origin,
		EndLocation:   destination,
		Waypoints:     waypoints,
		Distance:      origin.DistanceTo(destination),
		Duration:      10 * time.Minute,
		ComputedAt:    time.Now().UTC(),
	}, nil
}
