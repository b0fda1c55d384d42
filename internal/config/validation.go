package config

import (
	"fmt"
	"slices"
	"strings"
)

// validProviders are the LLM providers the gateway can be wired to.
var validProviders = []string{ProviderGemini, ProviderOpenAI}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider chain validation
	if !slices.Contains(validProviders, c.PrimaryProvider) {
		return fmt.Errorf("%w: primary_provider must be one of %v, got %q",
			ErrInvalidProvider, validProviders, c.PrimaryProvider)
	}
	// Empty secondary disables fallback; anything else must be a known provider.
	if c.SecondaryProvider != "" && !slices.Contains(validProviders, c.SecondaryProvider) {
		return fmt.Errorf("%w: secondary_provider must be one of %v or empty, got %q",
			ErrInvalidProvider, validProviders, c.SecondaryProvider)
	}
	if c.SecondaryProvider == c.PrimaryProvider {
		return fmt.Errorf("%w: secondary_provider must differ from primary_provider (%q)",
			ErrInvalidProvider, c.PrimaryProvider)
	}

	// 2. Model names: provider-qualified ("googleai/gemini-2.5-flash")
	if c.PrimaryModel == "" || !strings.Contains(c.PrimaryModel, "/") {
		return fmt.Errorf("%w: primary_model must be provider-qualified, got %q",
			ErrInvalidModelName, c.PrimaryModel)
	}
	if c.SecondaryProvider != "" && (c.SecondaryModel == "" || !strings.Contains(c.SecondaryModel, "/")) {
		return fmt.Errorf("%w: secondary_model must be provider-qualified, got %q",
			ErrInvalidModelName, c.SecondaryModel)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidModelName)
	}

	// 3. Generation limits
	if c.GenerateTimeoutSeconds < 1 || c.GenerateTimeoutSeconds > 120 {
		return fmt.Errorf("%w: generate_timeout_seconds must be between 1 and 120, got %d",
			ErrInvalidTimeout, c.GenerateTimeoutSeconds)
	}
	if c.MaxSourceBytes < 1024 {
		return fmt.Errorf("%w: max_source_bytes must be at least 1024, got %d",
			ErrInvalidMaxSourceBytes, c.MaxSourceBytes)
	}

	// 4. Content
	if c.DocsDir == "" {
		return fmt.Errorf("%w: docs_dir cannot be empty", ErrInvalidDocsDir)
	}

	// 5. PostgreSQL
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable).
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: must be one of %v, got %q",
			ErrInvalidPostgresSSLMode, validSSLModes, c.PostgresSSLMode)
	}

	return nil
}

// ValidateServe validates the additional settings the HTTP server requires.
// The CLI (index, invalidate) does not need a bearer secret, so this is
// separate from Validate.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: set SABAQ_JWT_SECRET or jwt_secret in config.yaml", ErrMissingJWTSecret)
	}
	if len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("%w: must be at least %d bytes, got %d",
			ErrInvalidJWTSecret, MinJWTSecretLength, len(c.JWTSecret))
	}
	return nil
}
