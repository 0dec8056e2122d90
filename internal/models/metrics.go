package models

import "time"

// SystemMetrics is an aggregated snapshot of engine activity for the
// JSON metrics endpoint. Full series remain on the Prometheus surface.
type SystemMetrics struct {
	ChecksTotal              uint64    `json:"checks_total"`
	CheckFailures            uint64    `json:"check_failures"`
	TransitionsTotal         uint64    `json:"transitions_total"`
	NotificationsTotal       uint64    `json:"notifications_total"`
	NotificationFailures     uint64    `json:"notification_failures"`
	ActiveMonitors           int64     `json:"active_monitors"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
