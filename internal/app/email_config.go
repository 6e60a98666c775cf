package app

import (
	"strings"

	"github.com/growcoach/jobboard/pkg/mail"
)

// Supported email providers.
const (
	EmailProviderNone = "none"
	EmailProviderSMTP = "smtp"
	EmailProviderSES  = "ses"
)

// ProviderName normalises the configured provider. An enabled SMTP block
// without an explicit provider selects SMTP.
func (c EmailConfig) ProviderName() string {
	provider := strings.ToLower(strings.TrimSpace(c.Provider))
	if provider == "" || provider == EmailProviderNone {
		if c.SMTP.Enabled {
			return EmailProviderSMTP
		}
		return EmailProviderNone
	}
	return provider
}

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled || c.ProviderName() == EmailProviderSMTP,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// SESSettings converts EmailConfig to the SES mailer settings.
func (c EmailConfig) SESSettings() mail.SESSettings {
	return mail.SESSettings{
		Region: strings.TrimSpace(c.SES.Region),
		From:   strings.TrimSpace(c.SES.From),
	}
}
