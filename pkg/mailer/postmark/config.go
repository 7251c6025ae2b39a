package postmark

// Config holds Postmark email provider configuration.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	ServerToken   string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken  string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail   string `env:"POSTMARK_FROM_EMAIL"` // Used when the message has no From
	MessageStream string `env:"POSTMARK_MESSAGE_STREAM"`
	TrackOpens    bool   `env:"POSTMARK_TRACK_OPENS" envDefault:"false"`
	BaseURL       string `env:"POSTMARK_BASE_URL"` // Overrides the API endpoint
}
