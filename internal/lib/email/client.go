// Package email renders and delivers transactional email.
//
// Delivery goes through Resend (resend-go); bodies are rendered from the
// HTML templates embedded in this package.
package email

import (
	"context"
	"fmt"

	"github.com/deppfellow/aquaservice/internal/config"
	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Client wraps the Resend client, the rendered templates and the sender identity.
type Client struct {
	client    *resend.Client
	templates *Templates
	from      string
	company   string
	logger    *zerolog.Logger
}

// NewClient creates an email Client from the integration and report config.
func NewClient(cfg *config.Config, logger *zerolog.Logger) (*Client, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	return &Client{
		client:    resend.NewClient(cfg.Integration.ResendAPIKey),
		templates: templates,
		from:      sender(cfg.Integration.EmailFromName, cfg.Integration.EmailFrom),
		company:   cfg.Report.CompanyName,
		logger:    logger,
	}, nil
}

func sender(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}

// Send renders msg and hands it to Resend. It returns the provider message id.
func (c *Client) Send(ctx context.Context, msg Message, attachments ...Attachment) (string, error) {
	body, err := c.templates.Render(msg.Template, c.withCompany(msg.Data))
	if err != nil {
		return "", err
	}

	params := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    body,
	}
	for _, a := range attachments {
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Filename: a.Filename,
			Content:  a.Content,
		})
	}

	sent, err := c.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", errors.Wrapf(err, "failed to send %s email", msg.Template)
	}

	c.logger.Debug().
		Str("template", string(msg.Template)).
		Str("provider_id", sent.Id).
		Int("attachments", len(attachments)).
		Msg("email delivered to provider")

	return sent.Id, nil
}

// Preview renders a template with its sample data.
func (c *Client) Preview(name Template) (string, error) {
	data, ok := PreviewData[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	return c.templates.Render(name, c.withCompany(data))
}

func (c *Client) withCompany(data map[string]string) map[string]string {
	out := make(map[string]string, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	if out["CompanyName"] == "" {
		out["CompanyName"] = c.company
	}
	return out
}
