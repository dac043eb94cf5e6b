package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LocationReport is a transient position update from a courier app. Only the
// most recent report per courier is retained in the hot path; history is an
// external audit concern.
type LocationReport struct {
	CourierID primitive.ObjectID `json:"courier_id"`
	Location  Location           `json:"location"`
	Timestamp time.Time          `json:"timestamp"`
	Accuracy  float64            `json:"accuracy,omitempty"` // meters, 0 = unknown
	Speed     float64            `json:"speed,omitempty"`    // km/h, 0 = unknown
}
