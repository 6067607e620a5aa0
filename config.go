package authbridge

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// AppConfig is the file/env-backed implementation of Config.
type AppConfig struct {
	Issuer             string `mapstructure:"issuer" json:"issuer"`
	SigningKeyPath     string `mapstructure:"signing_key_path" json:"signing_key_path"`
	SigningKeyID       string `mapstructure:"signing_key_id" json:"signing_key_id"`
	TokenTTL           int    `mapstructure:"token_ttl" json:"token_ttl"`
	PendingRedirectTTL int    `mapstructure:"pending_redirect_ttl" json:"pending_redirect_ttl"`
	CookieMaxAge       int    `mapstructure:"cookie_max_age" json:"cookie_max_age"`
	PostbackTimeout    int    `mapstructure:"postback_timeout" json:"postback_timeout"`
	SweepInterval      int    `mapstructure:"sweep_interval" json:"sweep_interval"`
	ReauthURL          string `mapstructure:"reauth_url" json:"reauth_url"`
	InitializeURL      string `mapstructure:"initialize_url" json:"initialize_url"`
	PortalURL          string `mapstructure:"portal_url" json:"portal_url"`
	ErrorPageURL       string `mapstructure:"error_page_url" json:"error_page_url"`
	DatabaseDSN        string `mapstructure:"database_dsn" json:"database_dsn"`
	ListenAddr         string `mapstructure:"listen_addr" json:"listen_addr"`
}

// Validate will run validation rules
func (c AppConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Issuer, validation.Required),
		validation.Field(&c.SigningKeyPath, validation.Required),
		validation.Field(&c.SigningKeyID, validation.Required),
		validation.Field(&c.ReauthURL, validation.Required, is.URL),
		validation.Field(&c.InitializeURL, validation.Required, is.URL),
		validation.Field(&c.PortalURL, validation.Required, is.URL),
		validation.Field(&c.ErrorPageURL, validation.Required, is.URL),
	)
}

func (c *AppConfig) GetIssuer() string     { return c.Issuer }
func (c *AppConfig) GetDefaultKID() string { return c.SigningKeyID }

func (c *AppConfig) GetTokenTTL() int {
	if c.TokenTTL <= 0 {
		return 60 * 60 * 24
	}
	return c.TokenTTL
}

func (c *AppConfig) GetPendingRedirectTTL() int {
	if c.PendingRedirectTTL <= 0 {
		return int(DefaultPendingRedirectTTL.Seconds())
	}
	return c.PendingRedirectTTL
}

func (c *AppConfig) GetCookieMaxAge() int {
	if c.CookieMaxAge <= 0 {
		return 60 * 60 * 24 * 2
	}
	return c.CookieMaxAge
}

func (c *AppConfig) GetPostbackTimeout() int {
	if c.PostbackTimeout <= 0 {
		return int(DefaultPostbackTimeout.Seconds())
	}
	return c.PostbackTimeout
}

func (c *AppConfig) GetSweepInterval() int {
	if c.SweepInterval <= 0 {
		return 60
	}
	return c.SweepInterval
}

func (c *AppConfig) GetReauthURL() string     { return c.ReauthURL }
func (c *AppConfig) GetInitializeURL() string { return c.InitializeURL }
func (c *AppConfig) GetPortalURL() string     { return c.PortalURL }
func (c *AppConfig) GetErrorPageURL() string  { return c.ErrorPageURL }
