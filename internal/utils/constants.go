package utils

import "time"

// Application constants
const (
	AppName    = "godispatch"
	AppVersion = "1.0.0"

	// Assignment
	DefaultSearchRadiusKM  = 3.0
	MaxSearchRadiusKM      = 15.0
	SearchRadiusWidenStep  = 2.0 // multiplier applied per widening round
	MaxReservationAttempts = 5

	// Tracking
	DefaultStalenessThreshold = 5 * time.Minute
	DefaultEvictionInterval   = time.Minute
	MovementThresholdMeters   = 75.0
	OffRouteThresholdMeters   = 500.0
	OffRouteGracePeriod       = 2 * time.Minute
	StallGracePeriod          = 5 * time.Minute
	DefaultCourierSpeedKMH    = 25.0

	// Dispatch
	RouteOptimizerTimeout   = 5 * time.Second
	RedispatchWindow        = 10 * time.Minute
	RedispatchSweepInterval = time.Minute
	ReleaseRetryAttempts    = 5
	ReleaseRetryBackoff     = 200 * time.Millisecond
)

// Response status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// API error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeOutsideArea       = "OUTSIDE_SERVICE_AREA"
	ErrCodeNoCourier         = "NO_COURIER_AVAILABLE"
	ErrCodeInvalidGeometry   = "INVALID_GEOMETRY"
	ErrCodeAreaOverlap       = "SERVICE_AREA_OVERLAP"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeInternal          = "INTERNAL_ERROR"
)
