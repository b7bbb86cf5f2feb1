// Package memory holds map-backed repositories with the same contracts as the
// postgres package. Transactions are serialized but not rolled back.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lexcourt/internal/domain/entity"
	"lexcourt/internal/domain/repository"
)

// DB is the shared state behind every repository of this package.
type DB struct {
	mu sync.Mutex
	tx sync.Mutex

	identities     map[uuid.UUID]*entity.Identity
	credentials    map[uuid.UUID]*entity.Credential // keyed by identity
	sessions       map[uuid.UUID]*entity.SessionToken
	profiles       []*entity.Profile
	cases          map[uuid.UUID]*entity.Case
	participants   []*entity.CaseParticipant
	hearings       []*entity.Hearing
	communications []*entity.Communication

	now func() time.Time
}

// New returns an empty in-memory database.
func New() *DB {
	return &DB{
		identities:  make(map[uuid.UUID]*entity.Identity),
		credentials: make(map[uuid.UUID]*entity.Credential),
		sessions:    make(map[uuid.UUID]*entity.SessionToken),
		cases:       make(map[uuid.UUID]*entity.Case),
		now:         time.Now,
	}
}

// SetClock replaces the clock that stamps created and updated times.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.now = now
}

// InsertProfile stores p as is, bypassing the one-profile-per-identity check.
func (db *DB) InsertProfile(p *entity.Profile) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cp := *p
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	db.profiles = append(db.profiles, &cp)
}

// SessionCount returns the number of live session rows.
func (db *DB) SessionCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	return len(db.sessions)
}

type transactionManager struct{ db *DB }

// NewTransactionManager runs transactions one at a time against db.
func NewTransactionManager(db *DB) repository.TransactionManager {
	return &transactionManager{db: db}
}

func (tm *transactionManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	tm.db.tx.Lock()
	defer tm.db.tx.Unlock()

	return fn(factory{db: tm.db})
}

type factory struct{ db *DB }

func (f factory) NewIdentityRepository() repository.IdentityRepository {
	return NewIdentityRepository(f.db)
}

func (f factory) NewCredentialRepository() repository.CredentialRepository {
	return NewCredentialRepository(f.db)
}

func (f factory) NewSessionTokenRepository() repository.SessionTokenRepository {
	return NewSessionTokenRepository(f.db)
}

func (f factory) NewProfileRepository() repository.ProfileRepository {
	return NewProfileRepository(f.db)
}

func (f factory) NewCaseRepository() repository.CaseRepository { return NewCaseRepository(f.db) }

func (f factory) NewParticipantRepository() repository.ParticipantRepository {
	return NewParticipantRepository(f.db)
}

func (f factory) NewHearingRepository() repository.HearingRepository {
	return NewHearingRepository(f.db)
}

func (f factory) NewCommunicationRepository() repository.CommunicationRepository {
	return NewCommunicationRepository(f.db)
}

// identities

type identityRepository struct{ db *DB }

func NewIdentityRepository(db *DB) repository.IdentityRepository { return &identityRepository{db: db} }

func (r *identityRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Identity, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	identity, ok := r.db.identities[id]
	if !ok {
		return nil, repository.ErrIdentityNotFound
	}
	cp := *identity

	return &cp, nil
}

func (r *identityRepository) FindByEmail(_ context.Context, email string) (*entity.Identity, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, identity := range r.db.identities {
		if strings.EqualFold(identity.Email, email) {
			cp := *identity

			return &cp, nil
		}
	}

	return nil, repository.ErrIdentityNotFound
}

func (r *identityRepository) Create(_ context.Context, identity *entity.Identity) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.identities {
		if strings.EqualFold(existing.Email, identity.Email) {
			return repository.ErrIdentityExists
		}
	}

	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = r.db.now()
	}
	cp := *identity
	cp.Email = strings.ToLower(cp.Email)
	r.db.identities[cp.ID] = &cp

	return nil
}

type credentialRepository struct{ db *DB }

func NewCredentialRepository(db *DB) repository.CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Create(_ context.Context, credential *entity.Credential) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if credential.ID == uuid.Nil {
		credential.ID = uuid.New()
	}
	now := r.db.now()
	credential.CreatedAt, credential.UpdatedAt = now, now
	cp := *credential
	r.db.credentials[cp.IdentityID] = &cp

	return nil
}

func (r *credentialRepository) FindByIdentityID(_ context.Context, identityID uuid.UUID) (*entity.Credential, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	credential, ok := r.db.credentials[identityID]
	if !ok {
		return nil, repository.ErrCredentialNotFound
	}
	cp := *credential

	return &cp, nil
}

// sessions

type sessionTokenRepository struct{ db *DB }

func NewSessionTokenRepository(db *DB) repository.SessionTokenRepository {
	return &sessionTokenRepository{db: db}
}

func (r *sessionTokenRepository) Create(_ context.Context, token *entity.SessionToken) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cp := *token
	r.db.sessions[cp.ID] = &cp

	return nil
}

func (r *sessionTokenRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.SessionToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	token, ok := r.db.sessions[id]
	if !ok {
		return nil, repository.ErrSessionTokenNotFound
	}
	cp := *token

	return &cp, nil
}

func (r *sessionTokenRepository) DeleteByID(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.sessions[id]; !ok {
		return repository.ErrSessionTokenNotFound
	}
	delete(r.db.sessions, id)

	return nil
}

func (r *sessionTokenRepository) DeleteExpired(_ context.Context, cutoff time.Time) ([]*entity.SessionToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var expired []*entity.SessionToken
	for id, token := range r.db.sessions {
		if !token.ExpiresAt.After(cutoff) {
			expired = append(expired, token)
			delete(r.db.sessions, id)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })

	return expired, nil
}

// profiles

type profileRepository struct{ db *DB }

func NewProfileRepository(db *DB) repository.ProfileRepository { return &profileRepository{db: db} }

func (r *profileRepository) ListByIdentityID(_ context.Context, identityID uuid.UUID) ([]*entity.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*entity.Profile
	for _, p := range r.db.profiles {
		if p.IdentityID == identityID {
			cp := *p
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (r *profileRepository) Create(_ context.Context, profile *entity.Profile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, p := range r.db.profiles {
		if p.IdentityID == profile.IdentityID {
			return repository.ErrProfileExists
		}
	}

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	now := r.db.now()
	profile.CreatedAt, profile.UpdatedAt = now, now
	cp := *profile
	r.db.profiles = append(r.db.profiles, &cp)

	return nil
}

func (r *profileRepository) Update(_ context.Context, profile *entity.Profile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, p := range r.db.profiles {
		if p.ID == profile.ID {
			p.FullName = profile.FullName
			p.Phone = profile.Phone
			p.ContactEmail = profile.ContactEmail
			p.UpdatedAt = r.db.now()
			profile.UpdatedAt = p.UpdatedAt

			return nil
		}
	}

	return repository.ErrProfileNotFound
}

func (db *DB) fullName(identityID uuid.UUID) string {
	for _, p := range db.profiles {
		if p.IdentityID == identityID {
			return p.FullName
		}
	}

	return ""
}
