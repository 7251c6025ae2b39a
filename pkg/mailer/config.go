package mailer

// Config holds mailer configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	// DefaultFrom is used when a template has no "from" key. It may contain template expressions.
	DefaultFrom string `env:"MAILER_DEFAULT_FROM"`

	// StrictAddresses rejects recipients that are not valid RFC 5322 addresses.
	StrictAddresses bool `env:"MAILER_STRICT_ADDRESSES" envDefault:"false"`

	// SanitizeHTML passes HTML bodies through a bluemonday UGC policy.
	SanitizeHTML bool `env:"MAILER_SANITIZE_HTML" envDefault:"false"`

	// StrictTemplates makes references to missing context keys fail rendering.
	StrictTemplates bool `env:"MAILER_STRICT_TEMPLATES" envDefault:"false"`
}
