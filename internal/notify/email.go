package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/coursewatch/coursewatch-api/pkg/config"
)

// EmailChannel sends HTML notifications over SMTP with STARTTLS.
type EmailChannel struct {
	cfg  config.EmailConfig
	tmpl *template.Template
	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

var emailTemplate = template.Must(template.New("course_available").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <div style="max-width: 600px; margin: 0 auto;">
      <div style="background-color: #c5050c; color: white; padding: 20px; text-align: center;">
        <h1>Course Now Available</h1>
      </div>
      <div style="padding: 20px; background-color: #f9f9f9;">
        <h2>{{.Course.Subject}} {{.Course.CourseNumber}}: {{.Course.Title}}</h2>
        <p><strong>Term:</strong> {{.Course.Term}}</p>
        <p>{{.Summary}}</p>
        <ul>
          <li>
            <strong>Section {{.Section.SectionID}}</strong> (Class #{{.Section.ClassNumber}})<br>
            Instructor: {{.Section.Instructor}}<br>
            Open Seats: <strong>{{.Section.OpenSeats}}/{{.Section.TotalSeats}}</strong><br>
            Waitlist: {{.Section.WaitlistOpen}}/{{.Section.WaitlistTotal}} open
          </li>
        </ul>
        <p style="margin-top: 30px;">
          <a href="https://enroll.wisc.edu" style="background-color: #c5050c; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; display: inline-block;">Enroll Now</a>
        </p>
      </div>
      <div style="padding: 20px; text-align: center; font-size: 12px; color: #666;">
        <p>This notification was sent by coursewatch</p>
      </div>
    </div>
  </body>
</html>`))

// NewEmailChannel constructs the channel from config.
func NewEmailChannel(cfg config.EmailConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg, tmpl: emailTemplate, send: smtp.SendMail}
}

// Name implements Channel.
func (c *EmailChannel) Name() string { return "email" }

// Send renders the HTML body and ships it via SMTP.
func (c *EmailChannel) Send(ctx context.Context, payload Payload) error {
	if c.cfg.Username == "" || c.cfg.Password == "" || c.cfg.From == "" || c.cfg.To == "" {
		return fmt.Errorf("email channel not fully configured")
	}

	var body bytes.Buffer
	data := struct {
		Course  interface{}
		Section interface{}
		Summary string
	}{payload.Course, payload.Section, payload.Transition.Describe()}
	if err := c.tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render email body: %w", err)
	}

	subject := fmt.Sprintf("Course Available: %s %s", payload.Course.Subject, payload.Course.CourseNumber)
	msg := buildMIMEMessage(c.cfg.From, c.cfg.To, subject, body.String())

	addr := fmt.Sprintf("%s:%d", c.cfg.SMTPHost, c.cfg.SMTPPort)
	auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.SMTPHost)

	done := make(chan error, 1)
	go func() {
		done <- c.send(addr, auth, c.cfg.From, strings.Split(c.cfg.To, ","), msg)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	}
}

func buildMIMEMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
