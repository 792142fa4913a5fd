package services

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/pquerna/otp/totp"
)

const otpLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateOTP produces a 6-character verification code: 3 random uppercase
// letters plus the first 3 digits of a TOTP code computed over a throwaway
// secret, shuffled together. The secret is never stored, so the time-based
// part carries no replay protection; codes are only ever checked by string
// comparison against the keyed store.
func GenerateOTP() (string, error) {
	secretBytes := make([]byte, 20)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("failed to generate OTP secret: %w", err)
	}
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secretBytes)

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP digits: %w", err)
	}

	chars := make([]byte, 0, 6)
	for i := 0; i < 3; i++ {
		chars = append(chars, otpLetters[mrand.Intn(len(otpLetters))])
	}
	chars = append(chars, code[:3]...)

	mrand.Shuffle(len(chars), func(i, j int) {
		chars[i], chars[j] = chars[j], chars[i]
	})

	return string(chars), nil
}
