package events

import "time"

// Event names published by the account lifecycle.
const (
	UserRegistered         = "user.registered"
	PasswordResetRequested = "user.forgot-password"
	AccountActivated       = "user.activated"
)

// UserRegisteredEvent is published on registration and on every activation resend.
// Token is the plaintext activation secret destined for the email channel only.
type UserRegisteredEvent struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Token        string    `json:"-"`
	ExpiresAt    time.Time `json:"expiresAt"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// PasswordResetRequestedEvent carries the plaintext reset secret to the email channel.
type PasswordResetRequestedEvent struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AccountActivatedEvent struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	ActivatedAt time.Time `json:"activatedAt"`
}
