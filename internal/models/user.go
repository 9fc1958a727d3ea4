package models

import (
	"encoding/json"
	"errors"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// User represents a row in the users table. Sheet data is kept out of this
// struct; it is read and written through the sheet store.
type User struct {
	Username string `json:"username"`
	Password string `json:"-"` // stored credential, hashed or legacy plaintext
}

// LoginRequest is the JSON body for POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the JSON body for POST /change-password.
type ChangePasswordRequest struct {
	Password string `json:"password"`
}

// SuccessResponse is the body shared by login, logout, change-password and save.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// WhoAmIResponse carries a nil username for anonymous callers.
type WhoAmIResponse struct {
	Username *string `json:"username"`
}

// SaveRequest is the JSON body for POST /save. Data is kept as raw bytes.
type SaveRequest struct {
	Data json.RawMessage `json:"data"`
}

// DataResponse is the body of GET /data.
type DataResponse struct {
	Data json.RawMessage `json:"data"`
}
