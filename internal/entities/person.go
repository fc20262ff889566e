package entities

import (
	"fmt"
	"time"
)

// Person represents a registered member of the service
type Person struct {
	ID       int64
	Email    string
	Login    string
	Name     string // Display name, falls back to Login when empty
	Birthday time.Time
}

// DisplayName returns the name shown to other people
func (p *Person) DisplayName() string {
	if p.Name == "" {
		return p.Login
	}
	return p.Name
}

// Validate checks if the person record is valid
func (p *Person) Validate() error {
	if p.Email == "" {
		return fmt.Errorf("email is required")
	}
	if p.Login == "" {
		return fmt.Errorf("login is required")
	}
	return nil
}
