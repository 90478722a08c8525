package domain

import "time"

// Session is one login. Role is the role the bearer was issued for; a session
// whose user has since changed role cannot be refreshed.
type Session struct {
	SessionID        string     `json:"id" dynamodbav:"session_id"`
	UserID           string     `json:"user_id" dynamodbav:"user_id"`
	Role             string     `json:"role" dynamodbav:"role"`
	Enable           bool       `json:"enable" dynamodbav:"enable"`
	RefreshToken     string     `json:"-" dynamodbav:"refresh_token"`
	RefreshExpiresAt int64      `json:"-" dynamodbav:"refresh_expires_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty" dynamodbav:"revoked_at,omitempty"`
	RevokedReason    string     `json:"revoked_reason,omitempty" dynamodbav:"revoked_reason,omitempty"`
	CreatedAt        time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time  `json:"updated" dynamodbav:"updated_at"`
	User             *User      `json:"user,omitempty" dynamodbav:"-"`
}

// Reasons recorded on a revoked session.
const (
	RevokeLogout          = "logout"
	RevokeAccountDisabled = "account disabled"
	RevokeRoleChanged     = "role changed"
	RevokePasswordChanged = "password changed"
	RevokeUserDeleted     = "user deleted"
)
