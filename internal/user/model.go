package user

import "time"

// User owns zero or more wallets.
type User struct {
	ID           int64
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Registration carries the data required to create a user.
type Registration struct {
	Username string
	Password string
}
