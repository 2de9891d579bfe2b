// Package model defines domain entities for the application.
package model

import "time"

// ClickEvent is the wire contract between the click publisher and the
// analytics consumer. Field names are part of the message schema and
// must stay stable independent of either side's internals.
type ClickEvent struct {
	ShortCode  string    `json:"short_code"`
	ClientIP   string    `json:"client_ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Referrer   string    `json:"referrer,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// HitRecord is the durable row appended to the hit store for each
// processed ClickEvent delivery. Delivery is at-least-once and there is
// no dedup key, so duplicate rows for one redirect are an accepted
// outcome.
type HitRecord struct {
	ID        string    `json:"id"`
	ShortCode string    `json:"short_code"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
