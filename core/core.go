package core

import "github.com/google/uuid"

// NewID generates a new unique identifier for messages, interactions and
// citizens.
func NewID() string {
	return uuid.New().String()
}
