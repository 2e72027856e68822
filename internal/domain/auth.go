package domain

import "time"

// Identity is what an access token asserts about its bearer.
type Identity struct {
	UserID    string
	Email     string
	Role      Role
	JTI       string
	ExpiresAt time.Time
}

// Session is an issued access token together with its identity.
type Session struct {
	Token    string
	Identity Identity
}
