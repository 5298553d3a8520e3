package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ideias/internal/models"
)

const (
	smtpTimeout = 30 * time.Second
)

// SMTPMailer sends plain-text mail, upgrading with STARTTLS when offered.
// Without STARTTLS it only talks to loopback hosts or the plain ports 25/1025.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	appName  string
}

func NewSMTPMailer(host string, port int, username, password, from, appName string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		appName:  appName,
	}
}

func (s *SMTPMailer) SendVerification(ctx context.Context, user *models.User, link string) error {
	subject := fmt.Sprintf("Confirme seu e-mail no %s", s.appName)
	return s.send(ctx, user.Email, subject, verificationBody(s.appName, link))
}

func (s *SMTPMailer) SendPasswordReset(ctx context.Context, user *models.User, link string) error {
	subject := fmt.Sprintf("Redefinição de senha do %s", s.appName)
	return s.send(ctx, user.Email, subject, resetBody(s.appName, link))
}

func (s *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	msg := s.buildMessage(to, subject, body, time.Now())

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	ctx, cancel := context.WithTimeout(ctx, smtpTimeout)
	defer cancel()

	dialer := net.Dialer{Timeout: smtpTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsCfg := &tls.Config{ServerName: s.host}
		if err := client.StartTLS(tlsCfg); err != nil {
			return fmt.Errorf("STARTTLS: %w", err)
		}
	} else if !s.plaintextAllowed() {
		return fmt.Errorf("STARTTLS not available on %s", addr)
	}

	if s.username != "" && s.password != "" {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication: %w", err)
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("SMTP MAIL command: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT command: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA command: %w", err)
	}

	if _, err := wc.Write([]byte(msg)); err != nil {
		wc.Close()
		return fmt.Errorf("writing email body: %w", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	if err := client.Quit(); err != nil {
		slog.Warn("smtp QUIT command failed", "component", "email", "error", err)
	}

	return nil
}

func (s *SMTPMailer) plaintextAllowed() bool {
	if s.port == 25 || s.port == 1025 || strings.EqualFold(s.host, "localhost") {
		return true
	}
	ip := net.ParseIP(s.host)
	return ip != nil && ip.IsLoopback()
}

func (s *SMTPMailer) buildMessage(to, subject, body string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", uuid.NewString(), s.host)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.String()
}
