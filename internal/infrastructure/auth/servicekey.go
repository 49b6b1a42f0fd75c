package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"canopy/internal/shared/config"
)

// ServiceKeyVerifier checks X-Service-Key values from service-to-service
// callers against the configured bcrypt hashes. Only callers passing this
// check may assert a tenant id directly via X-Tenant-ID.
type ServiceKeyVerifier struct {
	keyHashes []string
}

func NewServiceKeyVerifier(cfg *config.ServiceAuthConfig) *ServiceKeyVerifier {
	return &ServiceKeyVerifier{keyHashes: cfg.KeyHashes}
}

// Verify returns nil when the key matches any configured hash. The error
// is generic regardless of cause so callers cannot distinguish a wrong key
// from a malformed hash.
func (v *ServiceKeyVerifier) Verify(key string) error {
	if key == "" || len(v.keyHashes) == 0 {
		return fmt.Errorf("service key verification failed")
	}
	for _, hash := range v.keyHashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
			return nil
		}
	}
	return fmt.Errorf("service key verification failed")
}

// HashServiceKey generates a bcrypt hash for provisioning a new key.
func HashServiceKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash service key: %w", err)
	}
	return string(hash), nil
}
