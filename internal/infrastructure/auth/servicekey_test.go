package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canopy/internal/shared/config"
)

func TestServiceKeyVerifier(t *testing.T) {
	hash, err := HashServiceKey("sk-live-abc")
	require.NoError(t, err)

	v := NewServiceKeyVerifier(&config.ServiceAuthConfig{KeyHashes: []string{hash}})

	assert.NoError(t, v.Verify("sk-live-abc"))
	assert.Error(t, v.Verify("sk-live-wrong"))
	assert.Error(t, v.Verify(""))
}

func TestServiceKeyVerifierNoKeysConfigured(t *testing.T) {
	v := NewServiceKeyVerifier(&config.ServiceAuthConfig{})
	assert.Error(t, v.Verify("anything"))
}
