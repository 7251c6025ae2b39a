package smtp

// Config holds SMTP transport configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	Host     string `env:"SMTP_HOST" envDefault:"localhost"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"` // Used when the message has no From
	// LocalName is sent with HELO. Default: "localhost".
	LocalName          string `env:"SMTP_LOCAL_NAME"`
	Port               int    `env:"SMTP_PORT" envDefault:"587"` // Port 465 uses implicit TLS
	InsecureSkipVerify bool   `env:"SMTP_INSECURE_SKIP_VERIFY" envDefault:"false"`
}
