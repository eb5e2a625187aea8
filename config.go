package auth

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// SimpleConfig is a plain value implementation of Config for callers that do
// not bring their own configuration layer.
type SimpleConfig struct {
	SigningKey   string
	SessionTTL   string
	Issuer       string
	Audience     []string
	ContextKey   string
	APIKeyHeader string
	APIKey       string
}

func (c SimpleConfig) GetSigningKey() string { return c.SigningKey }
func (c SimpleConfig) GetSessionTTL() string { return c.SessionTTL }
func (c SimpleConfig) GetIssuer() string     { return c.Issuer }

func (c SimpleConfig) GetAudience() []string { return c.Audience }

func (c SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c SimpleConfig) GetAPIKeyHeader() string {
	if c.APIKeyHeader == "" {
		return "X-Api-Key"
	}
	return c.APIKeyHeader
}

func (c SimpleConfig) GetAPIKey() string { return c.APIKey }

var _ Config = SimpleConfig{}

// ValidateConfig checks that a Config can actually mint and verify sessions.
func ValidateConfig(cfg Config) error {
	if err := validation.Validate(cfg.GetSigningKey(),
		validation.Required,
		validation.Length(16, 0),
	); err != nil {
		return fmt.Errorf("signing key: %w", err)
	}

	if ttl := cfg.GetSessionTTL(); ttl != "" {
		if err := validation.Validate(ttl, validation.By(durationString)); err != nil {
			return fmt.Errorf("session ttl: %w", err)
		}
	}

	return nil
}

func durationString(value any) error {
	s, _ := value.(string)
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("must be a duration string: %v", err)
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
