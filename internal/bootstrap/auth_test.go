package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkline/erp-api/config"
)

func TestBuildIdentityDevMode(t *testing.T) {
	bundle, err := BuildIdentity(config.AuthConfig{Mode: config.AuthModeDev}, nil)
	require.NoError(t, err)
	assert.NotNil(t, bundle.Provider)
	// The dev provider has no credential gate; admin is always available.
	assert.NotNil(t, bundle.Admin)
}

func TestBuildIdentityGoTrueRequiresAPIKey(t *testing.T) {
	_, err := BuildIdentity(config.AuthConfig{
		Mode:     config.AuthModeGoTrue,
		Provider: config.ProviderConfig{BaseURL: "http://localhost:9999"},
	}, nil)
	assert.Error(t, err)
}

func TestBuildIdentityGoTrueWithoutServiceKey(t *testing.T) {
	bundle, err := BuildIdentity(config.AuthConfig{
		Mode: config.AuthModeGoTrue,
		Provider: config.ProviderConfig{
			BaseURL: "http://localhost:9999",
			APIKey:  "anon-key",
		},
	}, nil)
	require.NoError(t, err)
	assert.NotNil(t, bundle.Provider)
	// No privileged credential means no admin surface.
	assert.Nil(t, bundle.Admin)
}

func TestBuildIdentityUnsupportedMode(t *testing.T) {
	_, err := BuildIdentity(config.AuthConfig{Mode: config.AuthMode("saml")}, nil)
	assert.Error(t, err)
}
