package model

import (
	"errors"
	"time"
)

var (
	ErrInvalidChannel = errors.New("invalid channel")
	ErrEmptyUserID    = errors.New("user_id is required")
	ErrEmptyType      = errors.New("type is required")
	ErrEmptyMessage   = errors.New("message is required")
)

// Channel is the delivery channel of a notification.
type Channel string

const (
	ChannelEmail Channel = "email" // SMTP delivery
	ChannelChat  Channel = "chat"  // Slack incoming webhook
	ChannelBot   Channel = "bot"   // Telegram bot API
)

// ParseChannel validates a raw channel value against the closed set.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(s); c {
	case ChannelEmail, ChannelChat, ChannelBot:
		return c, nil
	default:
		return "", ErrInvalidChannel
	}
}

// Status is the delivery state of a notification. Transitions are
// forward-only: pending -> sent or pending -> failed.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Terminal reports whether the status admits no further transition.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// Notification represents a notification record. The record row is the
// source of truth for delivery state; the queue only carries the ID.
type Notification struct {
	ID         int64      `json:"id"`                    // assigned by the store, monotonic
	UserID     string     `json:"user_id"`               // recipient identifier (email, channel, chat id)
	Type       string     `json:"type"`                  // free-form category tag
	Channel    Channel    `json:"channel"`               // delivery channel
	Subject    string     `json:"subject,omitempty"`     // meaningful for email only
	Message    string     `json:"message"`               // body
	Status     Status     `json:"status"`                // pending | sent | failed
	FailReason string     `json:"fail_reason,omitempty"` // set on transition to failed
	CreatedAt  time.Time  `json:"created_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"` // set exactly once, on transition to sent
}

// Validate checks the fields the store requires before insertion.
func (n Notification) Validate() error {
	if n.UserID == "" {
		return ErrEmptyUserID
	}
	if n.Type == "" {
		return ErrEmptyType
	}
	if n.Message == "" {
		return ErrEmptyMessage
	}
	if _, err := ParseChannel(string(n.Channel)); err != nil {
		return err
	}
	return nil
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// ListFilter narrows and paginates List queries.
type ListFilter struct {
	UserID string
	Limit  int
	Offset int
}

// Normalize applies the default limit, caps it, and clamps the offset.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
