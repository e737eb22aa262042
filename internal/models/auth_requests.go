package models

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,account_email" example:"alice@example.com"`
	Password string `json:"password" binding:"required,max=72" example:"Str0ng!Pass"`
}

// VerifyRequest represents an account verification request
type VerifyRequest struct {
	Email string `json:"email" binding:"required,account_email" example:"alice@example.com"`
	OTP   string `json:"otp" binding:"required,nospaces" example:"123456"`
}

// ResendVerificationRequest represents a request to resend the verification code
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,account_email" example:"alice@example.com"`
}

// LoginRequest represents a login request.
// The email is not format-checked at binding so a malformed address fails like a wrong password.
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"alice@example.com"`
	Password string `json:"password" binding:"required" example:"Str0ng!Pass"`
}

// PasswordResetRequest represents a request to start a password reset
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,account_email" example:"alice@example.com"`
}

// CompleteResetRequest represents the request to complete a password reset
type CompleteResetRequest struct {
	Token       string `json:"token" binding:"required,nospaces"`
	NewPassword string `json:"new_password" binding:"required,max=72" example:"N3w!Secret"`
}
