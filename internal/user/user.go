// Package user keeps BBS accounts in a tab-separated flat file.
package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	MaxUsernameLength = 20
	MaxEmailLength    = 40
	MinPasswordLength = 8
)

var (
	ErrNotFound     = errors.New("user: not found")
	ErrExists       = errors.New("user: already exists")
	ErrBadPassword  = errors.New("user: bad password")
	ErrWeakPassword = fmt.Errorf("user: password must be at least %d characters", MinPasswordLength)
	ErrInvalidName  = fmt.Errorf("user: username must be 1-%d printable characters without spaces", MaxUsernameLength)
	ErrInvalidEmail = fmt.Errorf("user: email must be at most %d characters", MaxEmailLength)
)

// Type is the account class.
type Type uint8

const (
	Regular Type = iota
	Admin
)

func (t Type) String() string {
	if t == Admin {
		return "admin"
	}
	return "regular"
}

// User is one account record.
type User struct {
	ID           uint32
	Username     string
	Email        string
	Type         Type
	PasswordHash string
	LastSeen     time.Time
}

// CheckPassword compares password against the stored hash.
func (u *User) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return ErrBadPassword
	}
	return nil
}

// HashPassword hashes a new password with bcrypt after checking its length.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("user: hash password: %w", err)
	}
	return string(hash), nil
}

// ValidUsername reports whether name can be stored in the user file.
func ValidUsername(name string) bool {
	if name == "" || len(name) > MaxUsernameLength {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] <= ' ' || name[i] > '~' {
			return false
		}
	}
	return true
}

func validEmail(email string) bool {
	return len(email) <= MaxEmailLength && !strings.ContainsAny(email, "\t\r\n")
}
