package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client used for delivery.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSettings configure the Amazon SES transport.
type SESSettings struct {
	Region string
	From   string
}

// SESMailer delivers messages through Amazon SES.
type SESMailer struct {
	client SESAPI
	from   string
}

// NewSESMailer loads AWS credentials from the default chain for the region.
func NewSESMailer(ctx context.Context, cfg SESSettings) (*SESMailer, error) {
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		return nil, errors.New("ses: region is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}
	return NewSESMailerWithClient(ses.NewFromConfig(awsCfg), cfg.From), nil
}

// NewSESMailerWithClient wires an existing SES client.
func NewSESMailerWithClient(client SESAPI, from string) *SESMailer {
	return &SESMailer{client: client, from: from}
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	if m == nil || m.client == nil {
		return ErrDisabled
	}

	from, recipients, err := envelope(msg, m.from)
	if err != nil {
		return err
	}

	_, err = m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(from),
		Destination: &types.Destination{ToAddresses: recipients},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(escapeHeader(msg.Subject)), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses: send email: %w", err)
	}
	return nil
}
