package models

import "time"

// Database states reported by the health endpoint
const (
	DatabaseUp       = "up"
	DatabaseDown     = "down"
	DatabaseDisabled = "disabled"
)

// HealthResponse represents the response from the health check endpoint
type HealthResponse struct {
	Status   string    `json:"status" example:"healthy"`
	Database string    `json:"database" example:"up"`
	Time     time.Time `json:"time" example:"2024-03-20T13:00:00Z"`
}
