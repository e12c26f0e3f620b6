package domain

import (
	"context"
	"time"
)

type NotificationType string

const (
	NotificationPriceAlert     NotificationType = "price_alert"
	NotificationNewTransaction NotificationType = "new_transaction"
	NotificationMarketTrend    NotificationType = "market_trend"
	NotificationSystem         NotificationType = "system"
	NotificationPromotion      NotificationType = "promotion"
)

type NotificationStatus string

const (
	StatusUnread   NotificationStatus = "unread"
	StatusRead     NotificationStatus = "read"
	StatusArchived NotificationStatus = "archived"
)

func (s NotificationStatus) Valid() bool {
	switch s {
	case StatusUnread, StatusRead, StatusArchived:
		return true
	}
	return false
}

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

type ActionType string

const (
	ActionViewProperty ActionType = "view_property"
	ActionViewSheet    ActionType = "view_sheet"
	ActionSettings     ActionType = "settings"
	ActionExternal     ActionType = "external"
)

type RelatedType string

const (
	RelatedProperty RelatedType = "property"
	RelatedSheet    RelatedType = "sheet"
	RelatedAlert    RelatedType = "alert"
	RelatedSystem   RelatedType = "system"
)

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelPush:
		return true
	}
	return false
}

// ChannelDelivery tracks one channel. Engaged means opened for email, clicked for push
// and viewed for in-app.
type ChannelDelivery struct {
	Enabled   bool       `json:"enabled"`
	Sent      bool       `json:"sent"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	Engaged   bool       `json:"engaged"`
	EngagedAt *time.Time `json:"engaged_at,omitempty"`
}

type NotificationChannels struct {
	InApp ChannelDelivery `json:"in_app"`
	Email ChannelDelivery `json:"email"`
	Push  ChannelDelivery `json:"push"`
}

func (c *NotificationChannels) Get(ch Channel) *ChannelDelivery {
	switch ch {
	case ChannelInApp:
		return &c.InApp
	case ChannelEmail:
		return &c.Email
	case ChannelPush:
		return &c.Push
	}
	return nil
}

// Pending returns the enabled external channels not yet marked sent.
func (c NotificationChannels) Pending() []Channel {
	var out []Channel
	if c.Email.Enabled && !c.Email.Sent {
		out = append(out, ChannelEmail)
	}
	if c.Push.Enabled && !c.Push.Sent {
		out = append(out, ChannelPush)
	}
	return out
}

type Notification struct {
	ID          string               `json:"id"`
	UserID      uint                 `json:"user_id"`
	Type        NotificationType     `json:"type"`
	Priority    NotificationPriority `json:"priority"`
	Status      NotificationStatus   `json:"status"`
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	ActionType  ActionType           `json:"action_type,omitempty"`
	ActionURL   string               `json:"action_url,omitempty"`
	RelatedID   string               `json:"related_id,omitempty"`
	RelatedType RelatedType          `json:"related_type,omitempty"`
	Channels    NotificationChannels `json:"channels"`
	ExpiresAt   *time.Time           `json:"expires_at,omitempty"`
	IsArchived  bool                 `json:"is_archived"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

type NotificationFilter struct {
	UserID    uint
	Status    NotificationStatus
	PageSize  int
	PageToken string
	Now       time.Time
}

// ChannelDispatcher delivers a notification over one external channel. A failure is
// reported as a *DispatchError.
type ChannelDispatcher interface {
	Send(ctx context.Context, notification Notification, channel Channel) error
}

type TypeSetting struct {
	Enabled   bool      `json:"enabled"`
	Email     bool      `json:"email"`
	Push      bool      `json:"push"`
	Frequency Frequency `json:"frequency"`
}

type NotificationSetting struct {
	UserID         uint        `json:"user_id"`
	EmailEnabled   bool        `json:"email_enabled"`
	PushEnabled    bool        `json:"push_enabled"`
	PriceAlert     TypeSetting `json:"price_alert"`
	NewTransaction TypeSetting `json:"new_transaction"`
}

func DefaultNotificationSetting(userID uint) NotificationSetting {
	return NotificationSetting{
		UserID:         userID,
		PriceAlert:     TypeSetting{Enabled: true, Frequency: FrequencyImmediate},
		NewTransaction: TypeSetting{Enabled: true, Frequency: FrequencyImmediate},
	}
}

func (s NotificationSetting) ForType(t NotificationType) TypeSetting {
	switch t {
	case NotificationPriceAlert:
		return s.PriceAlert
	case NotificationNewTransaction:
		return s.NewTransaction
	}
	return TypeSetting{Enabled: true, Frequency: FrequencyImmediate}
}

// Channels returns the external channels enabled for notifications of type t.
func (s NotificationSetting) Channels(t NotificationType) (email bool, push bool) {
	ts := s.ForType(t)
	return s.EmailEnabled && ts.Email, s.PushEnabled && ts.Push
}

func (s NotificationSetting) Validate() error {
	for name, ts := range map[string]TypeSetting{"price_alert": s.PriceAlert, "new_transaction": s.NewTransaction} {
		if !ts.Frequency.Valid() {
			return invalid(name+".frequency", "must be immediate, daily or weekly")
		}
	}
	return nil
}

// NotificationTemplate renders one notification type. Placeholders use {{name}} syntax;
// digest variants are used when several outcomes are emitted together.
type NotificationTemplate struct {
	Title         string               `yaml:"title"`
	Message       string               `yaml:"message"`
	DigestTitle   string               `yaml:"digest_title"`
	DigestMessage string               `yaml:"digest_message"`
	Priority      NotificationPriority `yaml:"priority"`
}
