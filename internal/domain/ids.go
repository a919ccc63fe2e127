// Package domain contains pure business logic and types.
// No external dependencies allowed - this is the innermost ring of Clean Architecture.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ProjectID is a value object scoping memories to a single project.
// Unlike chunk IDs, it is client-provided and can be any short opaque string.
type ProjectID struct {
	value string
}

// NewProjectID creates a ProjectID from a raw string.
// Project IDs must be non-empty and at most MaxTagLength characters.
func NewProjectID(raw string) (ProjectID, error) {
	if raw == "" {
		return ProjectID{}, ErrEmptyID
	}
	if len(raw) > MaxTagLength {
		return ProjectID{}, fmt.Errorf("project ID exceeds max length %d: %w", MaxTagLength, ErrInvalidID)
	}
	return ProjectID{value: raw}, nil
}

// MustProjectID creates a ProjectID, panicking on invalid input. Use only in tests.
func MustProjectID(raw string) ProjectID {
	id, err := NewProjectID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ProjectID) String() string { return id.value }
func (id ProjectID) IsZero() bool   { return id.value == "" }

// ChunkID is a value object representing a unique memory chunk identifier.
// Always valid in memory - use NewChunkID to construct.
type ChunkID struct {
	value string
}

// NewChunkID creates a ChunkID from a raw string, validating it is a valid UUID.
func NewChunkID(raw string) (ChunkID, error) {
	if raw == "" {
		return ChunkID{}, ErrEmptyID
	}
	if _, err := uuid.Parse(raw); err != nil {
		return ChunkID{}, fmt.Errorf("invalid chunk ID %q: %w", raw, ErrInvalidID)
	}
	return ChunkID{value: raw}, nil
}

// MustChunkID creates a ChunkID, panicking on invalid input. Use only in tests.
func MustChunkID(raw string) ChunkID {
	id, err := NewChunkID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// GenerateChunkID creates a new random ChunkID.
func GenerateChunkID() ChunkID {
	return ChunkID{value: uuid.NewString()}
}

func (id ChunkID) String() string { return id.value }
func (id ChunkID) IsZero() bool   { return id.value == "" }
