package authbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppConfigDefaults(t *testing.T) {
	cfg := &AppConfig{}

	assert.Equal(t, 86400, cfg.GetTokenTTL())
	assert.Equal(t, 600, cfg.GetPendingRedirectTTL())
	assert.Equal(t, 172800, cfg.GetCookieMaxAge())
	assert.Equal(t, 5, cfg.GetPostbackTimeout())
	assert.Equal(t, 60, cfg.GetSweepInterval())
}

func TestAppConfigValidate(t *testing.T) {
	cfg := &AppConfig{}
	assert.Error(t, cfg.Validate())

	cfg = &AppConfig{
		Issuer:         "https://broker.test",
		SigningKeyPath: "/etc/authbridge/key.pem",
		SigningKeyID:   "default",
		ReauthURL:      "https://portal.test/reauth",
		InitializeURL:  "https://portal.test/initialize",
		PortalURL:      "https://portal.test/",
		ErrorPageURL:   "https://portal.test/error",
	}
	assert.NoError(t, cfg.Validate())
}
