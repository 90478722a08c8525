package domain

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Account status codes stored on the user record.
const (
	AccountDisabled = 0
	AccountEnabled  = 1
)

// Caller is the resolved identity of whoever invokes a service operation.
// It is built by the access gate and passed explicitly into every call.
type Caller struct {
	UserID        string
	Role          string
	AccountStatus int
	SessionID     string
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// CanManage reports whether the caller owns the resource or holds the admin override.
func (c Caller) CanManage(ownerID string) bool {
	return c.IsAdmin() || c.UserID == ownerID
}
