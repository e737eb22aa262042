package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	// OTPDigits is the length of a verification code
	OTPDigits = 6
	// ResetTokenBytes is the entropy of a reset token (256 bits)
	ResetTokenBytes = 32
)

var otpSpace = big.NewInt(1_000_000)

// GenerateOTP returns a zero-padded 6 digit numeric code drawn uniformly from crypto/rand
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPDigits, n.Int64()), nil
}

// GenerateResetToken returns 32 random bytes hex encoded
func GenerateResetToken() (string, error) {
	b := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
