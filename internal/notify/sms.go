package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coursewatch/coursewatch-api/internal/models"
	"github.com/coursewatch/coursewatch-api/pkg/config"
)

// SMSChannel sends short notifications through the Twilio REST API.
type SMSChannel struct {
	cfg     config.SMSConfig
	http    *http.Client
	baseURL string
}

// NewSMSChannel constructs the channel from config.
func NewSMSChannel(cfg config.SMSConfig) *SMSChannel {
	return &SMSChannel{
		cfg:     cfg,
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://api.twilio.com",
	}
}

// Name implements Channel.
func (c *SMSChannel) Name() string { return "sms" }

// Send posts a message to the Twilio messages endpoint.
func (c *SMSChannel) Send(ctx context.Context, payload Payload) error {
	if c.cfg.AccountSID == "" || c.cfg.AuthToken == "" || c.cfg.PhoneFrom == "" || c.cfg.PhoneTo == "" {
		return fmt.Errorf("sms channel not fully configured")
	}

	var body string
	if payload.Section.Status == models.SectionStatusOpen {
		body = fmt.Sprintf("Course OPEN: %s %s - Section %s (%d seats). Enroll now at enroll.wisc.edu",
			payload.Course.Subject, payload.Course.CourseNumber, payload.Section.SectionID, payload.Section.OpenSeats)
	} else {
		body = fmt.Sprintf("Waitlist available: %s %s Section %s. Check enroll.wisc.edu",
			payload.Course.Subject, payload.Course.CourseNumber, payload.Section.SectionID)
	}

	form := url.Values{}
	form.Set("From", c.cfg.PhoneFrom)
	form.Set("To", c.cfg.PhoneTo)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("twilio returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
