package models

import "errors"

// Sentinel errors for the dispatch engine. Services wrap these with context
// via fmt.Errorf and %w; callers branch with errors.Is.
var (
	// ErrInvalidGeometry rejects malformed boundary or coordinate input at
	// construction. Malformed geometry is never silently repaired.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrOutsideServiceArea means a delivery origin is not covered by any
	// active service area of the tenant.
	ErrOutsideServiceArea = errors.New("location outside service area")

	// ErrNoCourierAvailable means assignment exhausted all candidates: none
	// found within the search cap, or every reservation attempt lost its race.
	ErrNoCourierAvailable = errors.New("no courier available for assignment")

	// ErrReservationLost is the expected, recoverable signal that another
	// assignment won the AVAILABLE -> ASSIGNED transition for a courier.
	ErrReservationLost = errors.New("courier reservation lost")

	// ErrInvalidTransition rejects an illegal status change on a delivery or
	// courier.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrServiceAreaOverlap = errors.New("service area overlaps an active area of the same tenant")

	ErrDeliveryNotFound    = errors.New("delivery not found")
	ErrCourierNotFound     = errors.New("courier not found")
	ErrServiceAreaNotFound = errors.New("service area not found")
)
