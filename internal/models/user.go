package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string
type Role = UserRole // Alias for compatibility

const (
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"full_name" gorm:"not null;size:100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role     UserRole `json:"role" gorm:"-"`

	// Profile info
	AvatarURL *string `json:"avatar_url" gorm:"size:500"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

type UserTier string

const (
	TierFree    UserTier = "FREE"
	TierPremium UserTier = "PREMIUM"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
	SubscriptionCanceled SubscriptionStatus = "CANCELED"
	SubscriptionPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionFree     SubscriptionStatus = "FREE"
)

// Subscription mirrors the billing provider's state. The billing lifecycle
// (webhooks, invoicing) lives outside this service; rows are read-only here
// and consumed only to derive the user's tier.
type Subscription struct {
	ID     uint               `json:"id" gorm:"primaryKey"`
	UserID string             `json:"user_id" gorm:"not null;uniqueIndex;size:255"`
	Status SubscriptionStatus `json:"status" gorm:"not null;default:FREE;index"`
	Plan   string             `json:"plan" gorm:"not null;default:FREE;size:50"`

	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// Tier derives the access tier from subscription state. A missing row or
// anything other than an ACTIVE status means free.
func (s *Subscription) Tier() UserTier {
	if s != nil && s.Status == SubscriptionActive {
		return TierPremium
	}
	return TierFree
}
