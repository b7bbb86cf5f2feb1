// Package credential implements the credential store: identities, password
// checks and session tokens, plus the ordered session event feed.
package credential

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/fx"

	"lexcourt/config"
	deliverycontext "lexcourt/internal/delivery/context"
	"lexcourt/internal/domain/entity"
	domainerrors "lexcourt/internal/domain/errors"
	"lexcourt/internal/domain/repository"
	"lexcourt/internal/domain/service"
	"lexcourt/internal/errors"
	"lexcourt/internal/util"
)

// limiterIdle is how long a login limiter key may stay unused before it is pruned.
const limiterIdle = 15 * time.Minute

// StoreParams holds dependencies for Store, injected by Fx.
type StoreParams struct {
	fx.In

	Config         *config.Config
	Logger         *slog.Logger
	TxManager      repository.TransactionManager
	IdentityRepo   repository.IdentityRepository
	CredentialRepo repository.CredentialRepository
	SessionRepo    repository.SessionTokenRepository
	Hasher         service.PasswordHasher
	Tokens         service.TokenService
	Publisher      service.EventPublisher
}

// Store implements service.CredentialStore on top of the persistence layer.
type Store struct {
	txManager      repository.TransactionManager
	identityRepo   repository.IdentityRepository
	credentialRepo repository.CredentialRepository
	sessionRepo    repository.SessionTokenRepository
	hasher         service.PasswordHasher
	tokens         service.TokenService
	publisher      service.EventPublisher
	validate       *validator.Validate
	limiter        *loginLimiter
	events         *broker
	logger         *slog.Logger
	now            func() time.Time
}

var _ service.CredentialStore = (*Store)(nil)

// NewStore builds the credential store.
func NewStore(params StoreParams) *Store {
	rate, burst := 1.0, 5
	if params.Config != nil && params.Config.Auth != nil {
		if params.Config.Auth.LoginRate > 0 {
			rate = params.Config.Auth.LoginRate
		}
		if params.Config.Auth.LoginBurst > 0 {
			burst = params.Config.Auth.LoginBurst
		}
	}

	return &Store{
		txManager:      params.TxManager,
		identityRepo:   params.IdentityRepo,
		credentialRepo: params.CredentialRepo,
		sessionRepo:    params.SessionRepo,
		hasher:         params.Hasher,
		tokens:         params.Tokens,
		publisher:      params.Publisher,
		validate:       validator.New(),
		limiter:        newLoginLimiter(rate, burst),
		events:         newBroker(),
		logger:         params.Logger,
		now:            time.Now,
	}
}

func (s *Store) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, s.logger)
}

// Authenticate verifies email and password and issues a fresh session.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*entity.Session, error) {
	email = util.NormalizeEmail(email)
	now := s.now()

	if !s.limiter.Allow(email, now) {
		s.log(ctx).Warn("Sign-in throttled", slog.String("email", email))

		return nil, errors.WithStack(domainerrors.ErrRateLimited)
	}

	identity, err := s.identityRepo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrIdentityNotFound) {
		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "unknown email")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find identity")
	}

	credential, err := s.credentialRepo.FindByIdentityID(ctx, identity.ID)
	if errors.Is(err, repository.ErrCredentialNotFound) {
		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "identity has no password")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find credential")
	}

	if !s.hasher.Check(password, credential.PasswordHash) {
		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "password mismatch")
	}

	session, err := s.issueSession(ctx, identity, now)
	if err != nil {
		return nil, err
	}

	s.log(ctx).Info("Session issued",
		slog.String("identity_id", identity.ID.String()),
		slog.String("session_id", session.ID.String()))

	s.events.Publish(entity.StoreEvent{
		Kind:       entity.StoreSignedIn,
		SessionID:  session.ID,
		IdentityID: identity.ID,
		At:         now,
	})

	return session, nil
}

func (s *Store) issueSession(ctx context.Context, identity *entity.Identity, now time.Time) (*entity.Session, error) {
	sessionID := uuid.New()

	token, expiresAt, err := s.tokens.IssueSessionToken(sessionID, identity.ID, identity.Email, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign session token")
	}

	record := &entity.SessionToken{
		ID:         sessionID,
		IdentityID: identity.ID,
		TokenHash:  util.HashToken(token),
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
	}
	if err := s.sessionRepo.Create(ctx, record); err != nil {
		return nil, errors.Wrap(err, "failed to persist session")
	}

	return &entity.Session{
		ID:         sessionID,
		IdentityID: identity.ID,
		Email:      identity.Email,
		Token:      token,
		IssuedAt:   now,
		ExpiresAt:  expiresAt,
	}, nil
}

// Register creates an identity with a password credential and announces it
// for profile provisioning. The identity is returned even when the
// announcement fails; provisioning then has to be replayed.
func (s *Store) Register(ctx context.Context, email, password string, metadata entity.ProfileMetadata) (*entity.Identity, error) {
	email = util.NormalizeEmail(email)

	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("email is invalid"))
	}
	if err := s.validate.Struct(metadata); err != nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(err.Error()))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	identity := &entity.Identity{
		Email:     email,
		Metadata:  metadata,
		CreatedAt: s.now(),
	}

	err = s.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if err := repoFactory.NewIdentityRepository().Create(ctx, identity); err != nil {
			if errors.Is(err, repository.ErrIdentityExists) {
				return errors.WithStack(domainerrors.ErrAlreadyRegistered)
			}

			return errors.Wrap(err, "failed to create identity")
		}

		return repoFactory.NewCredentialRepository().Create(ctx, &entity.Credential{
			IdentityID:   identity.ID,
			PasswordHash: hash,
		})
	})
	if err != nil {
		s.log(ctx).Warn("Registration failed", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to register identity")
	}

	event := &entity.IdentityCreatedEvent{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Metadata:   metadata,
		OccurredAt: identity.CreatedAt,
	}
	if err := s.publisher.PublishIdentityCreated(ctx, event); err != nil {
		s.log(ctx).Error("Failed to publish identity created event",
			slog.String("identity_id", identity.ID.String()),
			slog.Any("error", err))
	}

	s.log(ctx).Info("Identity registered",
		slog.String("identity_id", identity.ID.String()),
		slog.String("role", metadata.Role.String()))

	return identity, nil
}

// Invalidate ends the session carried by token. Unknown or already expired
// sessions are not an error and emit nothing.
func (s *Store) Invalidate(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if errors.Is(err, domainerrors.ErrSessionExpired) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to validate session token")
	}

	err = s.sessionRepo.DeleteByID(ctx, claims.SessionID)
	if errors.Is(err, repository.ErrSessionTokenNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to delete session")
	}

	s.log(ctx).Info("Session invalidated", slog.String("session_id", claims.SessionID.String()))

	s.events.Publish(entity.StoreEvent{
		Kind:       entity.StoreSignedOut,
		SessionID:  claims.SessionID,
		IdentityID: claims.IdentityID,
		At:         s.now(),
	})

	return nil
}

// OnSessionChange subscribes fn to the session event feed.
func (s *Store) OnSessionChange(fn func(entity.StoreEvent)) func() {
	return s.events.Subscribe(fn)
}

// ExpireSessions deletes every session past its expiry, emits a TokenExpired
// event for each and returns how many were removed.
func (s *Store) ExpireSessions(ctx context.Context) (int, error) {
	now := s.now()

	expired, err := s.sessionRepo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete expired sessions")
	}

	for _, token := range expired {
		s.events.Publish(entity.StoreEvent{
			Kind:       entity.StoreTokenExpired,
			SessionID:  token.ID,
			IdentityID: token.IdentityID,
			At:         now,
		})
	}

	if pruned := s.limiter.Prune(now, limiterIdle); pruned > 0 {
		s.log(ctx).Debug("Pruned idle login limiters", slog.Int("count", pruned))
	}

	return len(expired), nil
}

// Sync blocks until every subscriber has handled the events emitted so far.
func (s *Store) Sync() {
	s.events.Sync()
}

// Close drops every subscription.
func (s *Store) Close() {
	s.events.Close()
}
