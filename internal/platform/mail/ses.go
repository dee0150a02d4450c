package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Options configures the SES sender.
type Options struct {
	Region      string
	AccessKey   string
	SecretKey   string
	FromAddress string
	FromName    string
}

// Sender delivers transactional email through SES.
type Sender struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
}

// NewSender builds an SES-backed sender. When no static credentials are
// provided the default AWS credential chain is used.
func NewSender(ctx context.Context, opts Options) (*Sender, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("mail: load aws config: %w", err)
	}
	return &Sender{
		client:      sesv2.NewFromConfig(cfg),
		fromAddress: opts.FromAddress,
		fromName:    opts.FromName,
	}, nil
}

// Send delivers a single message with both HTML and plain text bodies.
func (s *Sender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody)},
					Text: &types.Content{Data: aws.String(textBody)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("mail: ses send: %w", err)
	}
	return nil
}
