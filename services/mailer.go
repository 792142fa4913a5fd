package services

import (
	"fmt"
	"log"
	"net/smtp"
	"time"

	"main/utils"

	"github.com/domodwyer/mailyak/v3"
)

// LoginNotification carries the details shown in the "new sign-in" email.
type LoginNotification struct {
	Time        time.Time
	IPAddress   string
	Location    string
	Device      string
	Method      string
	IsNewDevice bool
}

// EmailSender delivers transactional auth emails. Handlers never build SMTP
// messages themselves; tests substitute a capturing fake.
type EmailSender interface {
	SendOTPEmail(email, code, purpose string) error
	SendLoginNotification(email string, info LoginNotification) error
}

// SMTPMailer sends through a plain-auth SMTP relay.
type SMTPMailer struct {
	server   string
	port     int
	username string
	password string
	from     string
}

func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{
		server:   utils.GetEnvAsString("SMTP_SERVER", "localhost"),
		port:     utils.GetEnvAsInt("SMTP_PORT", 587),
		username: utils.GetEnvAsString("SMTP_USERNAME", ""),
		password: utils.GetEnvAsString("SMTP_PASSWORD", ""),
		from:     utils.GetEnvAsString("SMTP_FROM", "no-reply@shophub.dev"),
	}
}

func (m *SMTPMailer) newMessage(to, subject string) *mailyak.MailYak {
	mail := mailyak.New(fmt.Sprintf("%s:%d", m.server, m.port),
		smtp.PlainAuth("", m.username, m.password, m.server))
	mail.To(to)
	mail.From(m.from)
	mail.Subject(subject)
	return mail
}

var otpSubjects = map[string]string{
	"register":    "Verify your email address",
	"login":       "Your sign-in verification code",
	"enable-2fa":  "Confirm two-factor authentication",
	"disable-2fa": "Confirm disabling two-factor authentication",
	"social":      "Your sign-in verification code",
}

func (m *SMTPMailer) SendOTPEmail(email, code, purpose string) error {
	subject, ok := otpSubjects[purpose]
	if !ok {
		subject = "Your verification code"
	}

	mail := m.newMessage(email, subject)
	mail.HTML().Set(fmt.Sprintf(`
		<h2>%s</h2>
		<p>Your verification code is:</p>
		<p style="font-size:24px;letter-spacing:4px;"><strong>%s</strong></p>
		<p>This code expires in 10 minutes. If you did not request it, you can ignore this email.</p>
	`, subject, code))

	if err := mail.Send(); err != nil {
		return fmt.Errorf("failed to send OTP email: %w", err)
	}

	log.Printf("Sent %s OTP email to %s", purpose, email)
	return nil
}

func (m *SMTPMailer) SendLoginNotification(email string, info LoginNotification) error {
	mail := m.newMessage(email, "New sign-in to your account")

	deviceNote := ""
	if info.IsNewDevice {
		deviceNote = "<p><strong>This sign-in came from a device we haven't seen before.</strong></p>"
	}

	mail.HTML().Set(fmt.Sprintf(`
		<h2>New sign-in to your account</h2>
		<ul>
			<li>Time: %s</li>
			<li>IP address: %s</li>
			<li>Location: %s</li>
			<li>Device: %s</li>
			<li>Method: %s</li>
		</ul>
		%s
		<p>If this was you, no action is needed. Otherwise, change your password immediately.</p>
	`, info.Time.Format(time.RFC1123), info.IPAddress, info.Location, info.Device, info.Method, deviceNote))

	if err := mail.Send(); err != nil {
		return fmt.Errorf("failed to send login notification: %w", err)
	}

	log.Printf("Sent login notification to %s", email)
	return nil
}
