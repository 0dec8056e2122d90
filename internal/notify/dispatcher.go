package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/coursewatch/coursewatch-api/internal/models"
	"github.com/coursewatch/coursewatch-api/pkg/config"
)

// Payload carries everything a channel needs to render a notification.
type Payload struct {
	Course     models.CourseDocument
	Section    models.SectionReading
	Transition models.Transition
}

// ChannelResult reports one channel's delivery outcome.
type ChannelResult struct {
	Channel string
	Err     error
}

// Channel delivers a notification payload over one medium.
type Channel interface {
	Name() string
	Send(ctx context.Context, payload Payload) error
}

// Dispatcher fans a payload out to every configured channel.
type Dispatcher interface {
	Deliver(ctx context.Context, payload Payload) []ChannelResult
}

// MultiDispatcher delivers through all enabled channels. A failing
// channel never blocks the others.
type MultiDispatcher struct {
	channels []Channel
	logger   *zap.Logger
}

// NewDispatcher wires the enabled channels from config.
func NewDispatcher(cfg config.NotifyConfig, logger *zap.Logger) *MultiDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	var channels []Channel
	if cfg.Email.Enabled && cfg.Email.Username != "" {
		channels = append(channels, NewEmailChannel(cfg.Email))
	}
	if cfg.SMS.Enabled && cfg.SMS.AccountSID != "" {
		channels = append(channels, NewSMSChannel(cfg.SMS))
	}
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		channels = append(channels, NewWebhookChannel(cfg.Webhook))
	}

	return &MultiDispatcher{channels: channels, logger: logger}
}

// NewDispatcherWithChannels builds a dispatcher over explicit channels.
func NewDispatcherWithChannels(logger *zap.Logger, channels ...Channel) *MultiDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MultiDispatcher{channels: channels, logger: logger}
}

// Deliver attempts every channel and reports per-channel outcomes.
func (d *MultiDispatcher) Deliver(ctx context.Context, payload Payload) []ChannelResult {
	results := make([]ChannelResult, 0, len(d.channels))
	for _, ch := range d.channels {
		err := ch.Send(ctx, payload)
		if err != nil {
			d.logger.Error("notification delivery failed",
				zap.String("channel", ch.Name()),
				zap.String("section", payload.Section.SectionID),
				zap.Error(err))
		} else {
			d.logger.Info("notification delivered",
				zap.String("channel", ch.Name()),
				zap.String("subject", payload.Course.Subject),
				zap.String("course", payload.Course.CourseNumber),
				zap.String("section", payload.Section.SectionID))
		}
		results = append(results, ChannelResult{Channel: ch.Name(), Err: err})
	}
	return results
}

// Channels lists the configured channel names, used by the preferences
// endpoint and the test-notification operation.
func (d *MultiDispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return names
}

// TestPayload returns a canned payload for exercising the delivery
// pipeline end to end.
func TestPayload() Payload {
	reading := models.NewSectionReading("001", "12345", "Test Instructor", 30, 29, 10, 5, time.Time{})
	return Payload{
		Course: models.CourseDocument{
			Term:         "1252",
			Subject:      "COMP SCI",
			CourseNumber: "400",
			Title:        "Programming III",
			Sections:     []models.SectionReading{reading},
		},
		Section: reading,
		Transition: models.Transition{
			Kind:       models.TransitionSeatsOpened,
			SectionID:  reading.SectionID,
			FromCount:  0,
			ToCount:    reading.OpenSeats,
			FromStatus: models.SectionStatusClosed,
			ToStatus:   reading.Status,
		},
	}
}
