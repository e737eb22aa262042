package models

// LoginResponse represents the response to a successful login
type LoginResponse struct {
	Token string `json:"token"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// LockedResponse is returned while an account is locked out
type LockedResponse struct {
	Error             string `json:"error" example:"account locked"`
	RetryAfterMinutes int    `json:"retry_after_minutes" example:"15"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}
