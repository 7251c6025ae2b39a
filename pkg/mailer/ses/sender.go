package ses

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/dmitrymomot/missive/pkg/mailer"
	"github.com/dmitrymomot/missive/pkg/mailer/smtp"
)

// Sender implements mailer.Sender using the SES v2 API.
// Messages are sent as raw MIME so attachments and custom headers are kept.
type Sender struct {
	client *sesv2.Client
	cfg    Config
}

// New creates an SES sender.
func New(ctx context.Context, cfg Config) (*Sender, error) {
	opts := func(o *sesv2.Options) {
		if cfg.Region != "" {
			o.Region = cfg.Region
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}

	if cfg.AccessKey != "" {
		client := sesv2.New(sesv2.Options{
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		}, opts)
		return &Sender{client: client, cfg: cfg}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}
	return &Sender{client: sesv2.NewFromConfig(awsCfg, opts), cfg: cfg}, nil
}

// NewWithClient creates an SES sender around an existing client.
func NewWithClient(client *sesv2.Client, cfg Config) *Sender {
	return &Sender{client: client, cfg: cfg}
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, msg *mailer.Message) error {
	raw, err := smtp.Encode(msg, s.cfg.From)
	if err != nil {
		return fmt.Errorf("ses: %w", err)
	}

	input := &sesv2.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses:  msg.To,
			CcAddresses:  msg.CC,
			BccAddresses: msg.BCC,
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
	}
	if s.cfg.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(s.cfg.ConfigurationSet)
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses: send failed: %w", err)
	}
	return nil
}

var _ mailer.Sender = (*Sender)(nil)
