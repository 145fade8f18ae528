package security

import "time"

// Test secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
)

// NewTestTokenProvider returns a TokenProvider with fixed test secrets, 15m access and 72h refresh lifetimes.
// For unit tests only.
func NewTestTokenProvider() *TokenProvider {
	secrets, err := NewSecrets([]byte(testAccessSecret), []byte(testRefreshSecret))
	if err != nil {
		panic(err)
	}
	return NewTokenProvider(secrets, "test-issuer", "test-audience", 15*time.Minute, 72*time.Hour)
}
