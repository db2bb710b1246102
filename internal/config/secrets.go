package config

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when logging or printing the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Chainflip.SigningKey)
	redact(&out.Chainflip.KeyPassword)

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	redact(&out.Redis.Password)

	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Copy slices and maps so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Feed.Pairs != nil {
		out.Feed.Pairs = make([]string, len(cfg.Feed.Pairs))
		copy(out.Feed.Pairs, cfg.Feed.Pairs)
	}
	if cfg.Feed.ChainOverrides != nil {
		out.Feed.ChainOverrides = make(map[string]string, len(cfg.Feed.ChainOverrides))
		for k, v := range cfg.Feed.ChainOverrides {
			out.Feed.ChainOverrides[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
