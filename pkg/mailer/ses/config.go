package ses

// Config holds AWS SES transport configuration.
// Without static keys the default AWS credential chain is used.
type Config struct {
	Region           string `env:"SES_REGION" envDefault:"us-east-1"`
	AccessKey        string `env:"SES_ACCESS_KEY"`
	SecretKey        string `env:"SES_SECRET_KEY"`
	Endpoint         string `env:"SES_ENDPOINT"`          // Overrides the API endpoint
	From             string `env:"SES_FROM"`              // Used when the message has no From
	ConfigurationSet string `env:"SES_CONFIGURATION_SET"` // Optional SES configuration set
}
