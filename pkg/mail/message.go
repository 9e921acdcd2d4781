package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrSMTPDisabled signals that SMTP delivery is disabled via configuration.
var ErrSMTPDisabled = errors.New("smtp: delivery disabled")

// OfferHeader carries the offer id so owners can filter decision mails.
const OfferHeader = "X-Quotedesk-Offer"

// Message is an owner-facing notification email.
type Message struct {
	From    string
	ReplyTo string
	To      []string
	Subject string
	Body    string
	// OfferRef is written to OfferHeader when set.
	OfferRef string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NoopMailer refuses every message with ErrSMTPDisabled.
type NoopMailer struct{}

func (NoopMailer) Send(context.Context, Message) error {
	return ErrSMTPDisabled
}

// envelope is a message that passed address checks and is ready for the wire.
type envelope struct {
	from       string
	recipients []string
	data       []byte
}

func buildEnvelope(msg Message, defaultFrom string, now time.Time) (envelope, error) {
	recipients, err := parseRecipients(msg.To)
	if err != nil {
		return envelope{}, err
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = strings.TrimSpace(defaultFrom)
	}
	if from == "" {
		return envelope{}, errors.New("smtp: sender address is required")
	}
	sender, err := mail.ParseAddress(from)
	if err != nil {
		return envelope{}, fmt.Errorf("smtp: invalid from address: %w", err)
	}

	// A malformed client address only loses the Reply-To header.
	replyTo := ""
	if candidate := strings.TrimSpace(msg.ReplyTo); candidate != "" {
		if parsed, err := mail.ParseAddress(candidate); err == nil {
			replyTo = parsed.String()
		}
	}

	data, err := render(sender, replyTo, recipients, msg, now)
	if err != nil {
		return envelope{}, err
	}
	return envelope{from: sender.Address, recipients: recipients, data: data}, nil
}

func parseRecipients(addresses []string) ([]string, error) {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, raw := range addresses {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, err := mail.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("smtp: invalid recipient address %q: %w", raw, err)
		}
		key := strings.ToLower(parsed.Address)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, parsed.Address)
	}
	if len(result) == 0 {
		return nil, errors.New("smtp: at least one recipient is required")
	}
	return result, nil
}

func render(sender *mail.Address, replyTo string, recipients []string, msg Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	header := func(name, value string) {
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	}

	domain := "localhost"
	if at := strings.LastIndex(sender.Address, "@"); at >= 0 {
		domain = sender.Address[at+1:]
	}

	header("From", sender.String())
	header("To", strings.Join(recipients, ", "))
	if replyTo != "" {
		header("Reply-To", replyTo)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", singleLine(msg.Subject)))
	header("Date", now.UTC().Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domain))
	if ref := singleLine(msg.OfferRef); ref != "" {
		header(OfferHeader, ref)
	}
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	header("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(strings.ReplaceAll(msg.Body, "\r\n", "\n"))); err != nil {
		return nil, fmt.Errorf("smtp: encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("smtp: encode body: %w", err)
	}
	return buf.Bytes(), nil
}

func singleLine(value string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(value))
}
