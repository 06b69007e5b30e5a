package config

import "encoding/json"

// ConfigSanitizer redacts fields that must never reach logs (spec §6
// "the engine never logs or echoes resolved credentials").
type ConfigSanitizer interface {
	Sanitize(cfg *Config) *Config
}

// DefaultConfigSanitizer implements ConfigSanitizer.
type DefaultConfigSanitizer struct {
	redactionValue string
}

// NewDefaultConfigSanitizer creates a sanitizer using the standard
// redaction placeholder.
func NewDefaultConfigSanitizer() ConfigSanitizer {
	return &DefaultConfigSanitizer{redactionValue: "***REDACTED***"}
}

// NewConfigSanitizer creates a sanitizer with a custom redaction value.
func NewConfigSanitizer(redactionValue string) ConfigSanitizer {
	return &DefaultConfigSanitizer{redactionValue: redactionValue}
}

// Sanitize returns a deep copy of cfg with the remote cache password and
// every source's auth_env_ref and opaque Extra fields redacted.
// auth_env_ref names an environment variable rather than carrying a
// secret directly, but it is still redacted defensively since the
// engine's invariant is that no credential-shaped field is ever logged.
func (s *DefaultConfigSanitizer) Sanitize(cfg *Config) *Config {
	sanitized := s.deepCopy(cfg)

	if sanitized.Cache.Remote.Password != "" {
		sanitized.Cache.Remote.Password = s.redactionValue
	}

	for i := range sanitized.Sources {
		if sanitized.Sources[i].AuthEnvRef != "" {
			sanitized.Sources[i].AuthEnvRef = s.redactionValue
		}
		for k := range sanitized.Sources[i].Extra {
			sanitized.Sources[i].Extra[k] = s.redactionValue
		}
	}

	return sanitized
}

func (s *DefaultConfigSanitizer) deepCopy(cfg *Config) *Config {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return cfg
	}
	var copyCfg Config
	if err := json.Unmarshal(raw, &copyCfg); err != nil {
		return cfg
	}
	return &copyCfg
}
