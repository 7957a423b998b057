package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/Masterminds/sprig/v3"
	"github.com/fluxmesh/accounts/config"
	ctxutil "github.com/fluxmesh/accounts/pkg/context"
	"github.com/fluxmesh/accounts/pkg/logger"
)

// Mailer delivers account emails. The auth service only ever calls it from a
// goroutine, so implementations must be safe for concurrent use.
type Mailer interface {
	SendConfirmation(ctx context.Context, to, name, link string) error
	SendAccessCode(ctx context.Context, to, name, code string) error
	SendResetPassword(ctx context.Context, to, name, link string) error
}

const confirmationTemplate = `<html>
<body>
  <p>Hi {{ .Name | title }},</p>
  <p>Welcome to {{ .AppName }}. Confirm your email address by opening the link below:</p>
  <p><a href="{{ .Link }}">{{ .Link }}</a></p>
  <p>The link expires in {{ .TTL }}. If you did not create this account, ignore this message.</p>
  <p>&copy; {{ now | date "2006" }} {{ .AppName }}</p>
</body>
</html>`

const accessCodeTemplate = `<html>
<body>
  <p>Hi {{ .Name | title }},</p>
  <p>Your one-time login code is:</p>
  <h2>{{ .Code }}</h2>
  <p>It expires in {{ .TTL }}. Never share this code with anyone.</p>
  <p>&copy; {{ now | date "2006" }} {{ .AppName }}</p>
</body>
</html>`

const resetPasswordTemplate = `<html>
<body>
  <p>Hi {{ .Name | title }},</p>
  <p>A password reset was requested for your account. Open the link below to choose a new password:</p>
  <p><a href="{{ .Link }}">{{ .Link }}</a></p>
  <p>The link expires in {{ .TTL }}. If you did not request this, your password is still safe.</p>
  <p>&copy; {{ now | date "2006" }} {{ .AppName }}</p>
</body>
</html>`

type mailTemplates struct {
	confirmation *template.Template
	accessCode   *template.Template
	reset        *template.Template
}

func parseMailTemplates() (*mailTemplates, error) {
	parse := func(name, text string) (*template.Template, error) {
		return template.New(name).Funcs(sprig.FuncMap()).Parse(text)
	}

	confirmation, err := parse("confirmation", confirmationTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse confirmation template: %w", err)
	}
	accessCode, err := parse("access_code", accessCodeTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse access code template: %w", err)
	}
	reset, err := parse("reset_password", resetPasswordTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reset password template: %w", err)
	}

	return &mailTemplates{
		confirmation: confirmation,
		accessCode:   accessCode,
		reset:        reset,
	}, nil
}

// SMTPMailer sends account emails over plain SMTP
type SMTPMailer struct {
	cfg       config.MailConfig
	appName   string
	templates *mailTemplates
	ttls      config.TokensConfig
	codeTTL   string
}

func NewSMTPMailer(cfg *config.Config) (*SMTPMailer, error) {
	templates, err := parseMailTemplates()
	if err != nil {
		return nil, err
	}

	return &SMTPMailer{
		cfg:       cfg.Mail,
		appName:   cfg.App.Name,
		templates: templates,
		ttls:      cfg.Tokens,
		codeTTL:   cfg.TwoFactor.TTL.String(),
	}, nil
}

func (m *SMTPMailer) SendConfirmation(ctx context.Context, to, name, link string) error {
	return m.send(ctx, to, "Confirm your email", m.templates.confirmation, map[string]interface{}{
		"Name":    name,
		"AppName": m.appName,
		"Link":    link,
		"TTL":     m.ttls.Confirmation.Time.String(),
	})
}

func (m *SMTPMailer) SendAccessCode(ctx context.Context, to, name, code string) error {
	return m.send(ctx, to, "Your login code", m.templates.accessCode, map[string]interface{}{
		"Name":    name,
		"AppName": m.appName,
		"Code":    code,
		"TTL":     m.codeTTL,
	})
}

func (m *SMTPMailer) SendResetPassword(ctx context.Context, to, name, link string) error {
	return m.send(ctx, to, "Reset your password", m.templates.reset, map[string]interface{}{
		"Name":    name,
		"AppName": m.appName,
		"Link":    link,
		"TTL":     m.ttls.ResetPassword.Time.String(),
	})
}

func (m *SMTPMailer) send(ctx context.Context, to, subject string, tmpl *template.Template, data map[string]interface{}) error {
	ctx = ctxutil.WithOperation(ctx, "mailer", "send")

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to execute mail template: %w", err)
	}

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n%s\r\n%s", to, subject, mime, body.String()))

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		logger.ErrorWithContext(ctx, "Failed to send email").
			String("subject", subject).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "Email sent").
		String("subject", subject).
		Log()

	return nil
}

// LogMailer logs instead of sending. Used when APP_TESTING is set so local
// runs and CI never need an SMTP server.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendConfirmation(ctx context.Context, to, name, link string) error {
	logger.InfoWithContext(ctx, "Mail suppressed (testing)").
		String("kind", "confirmation").
		String("link", link).
		Log()
	return nil
}

func (m *LogMailer) SendAccessCode(ctx context.Context, to, name, code string) error {
	logger.InfoWithContext(ctx, "Mail suppressed (testing)").
		String("kind", "access_code").
		String("code", code).
		Log()
	return nil
}

func (m *LogMailer) SendResetPassword(ctx context.Context, to, name, link string) error {
	logger.InfoWithContext(ctx, "Mail suppressed (testing)").
		String("kind", "reset_password").
		String("link", link).
		Log()
	return nil
}
