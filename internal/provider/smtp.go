package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SMTP delivers mail through a configured SMTP relay.
type SMTP struct {
	cfg SMTPConfig
	log zerolog.Logger
}

// NewSMTP creates an SMTP provider. Connectivity is checked separately via Verify.
func NewSMTP(cfg SMTPConfig, log zerolog.Logger) (*SMTP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SMTP{cfg: cfg, log: log.With().Str("provider", "smtp").Logger()}, nil
}

func (s *SMTP) GetName() string { return "smtp" }

// Verify opens a session with the relay, authenticates and quits.
func (s *SMTP) Verify(ctx context.Context) error {
	c, err := s.connect(ctx)
	if err != nil {
		return &ProviderError{Provider: s.GetName(), Message: "verify", Err: err}
	}
	return c.Quit()
}

// Send delivers msg as a multipart/alternative message with one recipient.
func (s *SMTP) Send(ctx context.Context, msg *Message) (*DeliveryResult, error) {
	messageID := s.newMessageID()
	raw, err := s.buildMessage(msg, messageID, time.Now())
	if err != nil {
		return nil, &ProviderError{Provider: s.GetName(), Message: "build message", Err: err}
	}

	c, err := s.connect(ctx)
	if err != nil {
		return nil, &ProviderError{Provider: s.GetName(), Message: "connect", Err: err}
	}
	defer c.Close()

	if err := c.Mail(s.cfg.FromEmail, nil); err != nil {
		return nil, s.commandError("MAIL FROM", err)
	}
	if err := c.Rcpt(msg.To, nil); err != nil {
		return nil, s.commandError("RCPT TO", err)
	}
	w, err := c.Data()
	if err != nil {
		return nil, s.commandError("DATA", err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, s.commandError("DATA", err)
	}
	if err := w.Close(); err != nil {
		return nil, s.commandError("DATA", err)
	}

	// The relay has accepted the message once DATA is closed. A QUIT
	// failure from here on does not change the outcome.
	if err := c.Quit(); err != nil {
		s.log.Warn().Err(err).Str("message_id", messageID).Msg("quit after accepted message failed")
	}

	return &DeliveryResult{
		ProviderMessageID: messageID,
		Timestamp:         time.Now().UTC(),
	}, nil
}

func (s *SMTP) connect(ctx context.Context) (*gosmtp.Client, error) {
	tlsConfig := &tls.Config{
		ServerName:         s.cfg.Host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify, //nolint:gosec // opt-in for test relays
	}

	c, err := s.dial(ctx, tlsConfig)
	if err != nil {
		return nil, err
	}
	if err := c.Hello(s.cfg.LocalName); err != nil {
		c.Close()
		return nil, fmt.Errorf("hello: %w", err)
	}

	// STARTTLS is only reachable through NewClientStartTLS, so a relay that
	// advertises it is dialed a second time and upgraded before EHLO.
	if !s.cfg.Secure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			c.Close()
			if c, err = s.dialStartTLS(ctx, tlsConfig); err != nil {
				return nil, err
			}
		}
	}

	if s.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			c.Close()
			return nil, errors.New("relay does not advertise AUTH")
		}
		if err := c.Auth(sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)); err != nil {
			c.Close()
			return nil, fmt.Errorf("auth: %w", err)
		}
	}
	return c, nil
}

func (s *SMTP) dialConn(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

func (s *SMTP) dial(ctx context.Context, tlsConfig *tls.Config) (*gosmtp.Client, error) {
	conn, err := s.dialConn(ctx)
	if err != nil {
		return nil, err
	}
	if s.cfg.Secure {
		conn = tls.Client(conn, tlsConfig)
	}
	c := gosmtp.NewClient(conn)
	s.applyTimeouts(c)
	return c, nil
}

func (s *SMTP) dialStartTLS(ctx context.Context, tlsConfig *tls.Config) (*gosmtp.Client, error) {
	conn, err := s.dialConn(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gosmtp.NewClientStartTLS(conn, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("starttls: %w", err)
	}
	s.applyTimeouts(c)
	// The upgrade resets the session; greet again under our own name.
	if err := c.Hello(s.cfg.LocalName); err != nil {
		c.Close()
		return nil, fmt.Errorf("hello after starttls: %w", err)
	}
	return c, nil
}

func (s *SMTP) applyTimeouts(c *gosmtp.Client) {
	if s.cfg.Timeout > 0 {
		c.CommandTimeout = s.cfg.Timeout
		c.SubmissionTimeout = s.cfg.Timeout
	}
}

func (s *SMTP) commandError(cmd string, err error) error {
	pe := &ProviderError{Provider: s.GetName(), Message: cmd, Err: err}
	var smtpErr *gosmtp.SMTPError
	if errors.As(err, &smtpErr) {
		pe.StatusCode = smtpErr.Code
	}
	return pe
}

func (s *SMTP) newMessageID() string {
	domain := "localhost"
	if at := strings.LastIndex(s.cfg.FromEmail, "@"); at >= 0 && at < len(s.cfg.FromEmail)-1 {
		domain = s.cfg.FromEmail[at+1:]
	}
	return "<" + uuid.NewString() + "@" + domain + ">"
}

// buildMessage renders an RFC 5322 message with text and HTML alternatives.
func (s *SMTP) buildMessage(msg *Message, messageID string, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	from := mail.Address{Name: s.cfg.FromName, Address: s.cfg.FromEmail}
	to := mail.Address{Name: msg.ToName, Address: msg.To}

	header := []string{
		"From: " + from.String(),
		"To: " + to.String(),
		"Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject),
		"Date: " + now.Format(time.RFC1123Z),
		"Message-ID: " + messageID,
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=\"" + mw.Boundary() + "\"",
	}
	var out bytes.Buffer
	out.WriteString(strings.Join(header, "\r\n"))
	out.WriteString("\r\n\r\n")

	if err := writeQPPart(mw, "text/plain; charset=utf-8", msg.TextBody); err != nil {
		return nil, err
	}
	if msg.HTMLBody != "" {
		if err := writeQPPart(mw, "text/html; charset=utf-8", msg.HTMLBody); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	out.Write(buf.Bytes())
	return out.Bytes(), nil
}

func writeQPPart(mw *multipart.Writer, contentType, body string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	pw, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	qw := quotedprintable.NewWriter(pw)
	if _, err := qw.Write([]byte(body)); err != nil {
		return err
	}
	return qw.Close()
}
