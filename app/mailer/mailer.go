package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strconv"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/metrics"
	"github.com/vibast-solutions/ms-go-shop/config"

	"github.com/sirupsen/logrus"
)

const (
	TemplateVerification      = "verification"
	TemplateWelcome           = "welcome"
	TemplatePasswordReset     = "password_reset"
	TemplateOrderConfirmation = "order_confirmation"
)

var (
	//go:embed templates/*.html
	emailTemplates embed.FS

	templates = template.Must(template.ParseFS(emailTemplates, "templates/*.html"))
)

// Transport hands a rendered message to the mail server.
type Transport func(ctx context.Context, from string, to []string, msg []byte) error

type Mailer struct {
	cfg       config.MailConfig
	app       config.AppConfig
	transport Transport
}

type Option func(*Mailer)

func WithTransport(transport Transport) Option {
	return func(m *Mailer) {
		if transport != nil {
			m.transport = transport
		}
	}
}

// New builds a Mailer. Without an SMTP host messages are only logged.
func New(cfg config.MailConfig, app config.AppConfig, opts ...Option) *Mailer {
	m := &Mailer{cfg: cfg, app: app}
	if cfg.Host == "" {
		m.transport = m.logOnly
	} else {
		m.transport = m.sendSMTP
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type templateData struct {
	AppName string
	Name    string
	Link    string
	Order   *entity.Order
}

func (m *Mailer) SendVerification(ctx context.Context, user *entity.User, link string) error {
	return m.deliver(ctx, TemplateVerification, user, "Account Verification - "+m.app.Name, templateData{
		AppName: m.app.Name,
		Name:    user.Name,
		Link:    link,
	})
}

func (m *Mailer) SendWelcome(ctx context.Context, user *entity.User) error {
	return m.deliver(ctx, TemplateWelcome, user, "Welcome - "+m.app.Name, templateData{
		AppName: m.app.Name,
		Name:    user.Name,
		Link:    m.app.FrontendHost,
	})
}

func (m *Mailer) SendPasswordReset(ctx context.Context, user *entity.User, link string) error {
	return m.deliver(ctx, TemplatePasswordReset, user, "Reset Password - "+m.app.Name, templateData{
		AppName: m.app.Name,
		Name:    user.Name,
		Link:    link,
	})
}

func (m *Mailer) SendOrderConfirmation(ctx context.Context, user *entity.User, order *entity.Order) error {
	subject := fmt.Sprintf("Order #%d Confirmation - %s", order.ID, m.app.Name)
	return m.deliver(ctx, TemplateOrderConfirmation, user, subject, templateData{
		AppName: m.app.Name,
		Name:    user.Name,
		Link:    m.app.FrontendHost + "/orders",
		Order:   order,
	})
}

func (m *Mailer) deliver(ctx context.Context, name string, user *entity.User, subject string, data templateData) (err error) {
	defer func() {
		metrics.RecordMail(name, err)
	}()

	body := bytes.Buffer{}
	if err = templates.ExecuteTemplate(&body, name+".html", data); err != nil {
		return fmt.Errorf("render %s template: %w", name, err)
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}
	if from == "" {
		return fmt.Errorf("smtp from address is not configured")
	}

	msg := buildHTMLMessage(m.fromHeader(from), user.Email, subject, body.String())
	if err = m.transport(ctx, from, []string{user.Email}, []byte(msg)); err != nil {
		return fmt.Errorf("send %s email: %w", name, err)
	}

	logrus.WithFields(logrus.Fields{
		"template": name,
		"user_id":  user.ID,
	}).Debug("Email delivered")
	return nil
}

func (m *Mailer) fromHeader(from string) string {
	name := m.cfg.FromName
	if name == "" {
		name = m.app.Name
	}
	if name == "" {
		return from
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", name), from)
}

func (m *Mailer) logOnly(_ context.Context, from string, to []string, msg []byte) error {
	logrus.WithFields(logrus.Fields{
		"from": from,
		"to":   to,
		"size": len(msg),
	}).Info("SMTP host not configured, email not sent")
	return nil
}

func (m *Mailer) sendSMTP(_ context.Context, from string, to []string, msg []byte) error {
	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)

	if m.cfg.Username == "" && m.cfg.Password == "" {
		if m.cfg.Port == 465 {
			return m.sendSMTPTLS(addr, nil, from, to, msg)
		}
		return smtp.SendMail(addr, nil, from, to, msg)
	}

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if m.cfg.Port == 465 {
		return m.sendSMTPTLS(addr, auth, from, to, msg)
	}

	return smtp.SendMail(addr, auth, from, to, msg)
}

// sendSMTPTLS talks implicit TLS, which smtp.SendMail does not support.
func (m *Mailer) sendSMTPTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return err
		}
	}

	if err = client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err = client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err = wc.Write(msg); err != nil {
		return err
	}
	if err = wc.Close(); err != nil {
		return err
	}

	return client.Quit()
}

func buildHTMLMessage(from, to, subject, htmlBody string) string {
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"utf-8\"\r\n\r\n%s",
		from, to, mime.QEncoding.Encode("utf-8", subject), htmlBody,
	)
}
