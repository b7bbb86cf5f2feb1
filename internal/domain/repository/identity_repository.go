// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"lexcourt/internal/domain/entity"
)

// Domain-specific errors for identity persistence.
var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrIdentityExists   = errors.New("identity already exists")
)

// IdentityRepository persists identities.
type IdentityRepository interface {
	// FindByID retrieves a single identity by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Identity, error)

	// FindByEmail retrieves a single identity by its (case-insensitive) email.
	FindByEmail(ctx context.Context, email string) (*entity.Identity, error)

	// Create persists a new identity. Returns ErrIdentityExists on a duplicate email.
	Create(ctx context.Context, identity *entity.Identity) error
}

// CredentialRepository persists password credentials.
type CredentialRepository interface {
	Create(ctx context.Context, credential *entity.Credential) error

	// FindByIdentityID returns ErrCredentialNotFound when the identity has no password.
	FindByIdentityID(ctx context.Context, identityID uuid.UUID) (*entity.Credential, error)
}

// ErrCredentialNotFound is returned when an identity has no credential row.
var ErrCredentialNotFound = errors.New("credential not found")
