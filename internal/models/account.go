package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

type AccountStatus string

const (
	StatusPending AccountStatus = "pending"
	StatusActive  AccountStatus = "active"
	StatusBlocked AccountStatus = "blocked"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusBlocked:
		return true
	}
	return false
}

type Account struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Phone          string        `json:"phone"`
	Email          string        `json:"email"`
	PasswordHash   string        `json:"-"`
	Role           Role          `json:"role"`
	Status         AccountStatus `json:"status"`
	Balance        Amount        `json:"balance"`
	OpeningBalance Amount        `json:"-"`
	Version        int64         `json:"version"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

var phoneRe = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

func (a *Account) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	if len(a.Name) < 2 { return errors.New("name too short") }
	if !phoneRe.MatchString(a.Phone) { return errors.New("invalid phone") }
	if !strings.Contains(a.Email, "@") { return errors.New("invalid email") }
	if a.Role == "" { a.Role = RoleUser }
	if a.Status == "" { a.Status = StatusActive }
	if !a.Status.Valid() { return errors.New("invalid status") }
	if a.Balance < 0 { return errors.New("balance must be >= 0") }
	return nil
}

// Party is the frozen view of an account stored on a transaction record.
type Party struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  Role   `json:"role"`
}

func (a Account) Snapshot() Party {
	return Party{ID: a.ID, Name: a.Name, Phone: a.Phone, Role: a.Role}
}
