package impl

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
	"lexcourt/internal/usecase"
	"lexcourt/internal/util"
)

const (
	defaultResolveAttempts = 5
	defaultResolveBackoff  = 200 * time.Millisecond
	maxResolveBackoff      = 2 * time.Second
)

// Resolve outcomes reported to metrics.
const (
	resolveOutcomeCached    = "cached"
	resolveOutcomeResolved  = "resolved"
	resolveOutcomeMissing   = "missing"
	resolveOutcomeAmbiguous = "ambiguous"
	resolveOutcomeError     = "error"
)

// profileService implements the ProfileUsecase interface.
type profileService struct {
	txManager repository.TransactionManager
	cache     service.ProfileCache
	metrics   service.Metrics
	validate  *validator.Validate
	attempts  int
	backoff   time.Duration
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
}

// ProfileServiceParams holds dependencies for ProfileService, injected by Fx.
type ProfileServiceParams struct {
	fx.In

	Config    *config.Config
	TxManager repository.TransactionManager
	Cache     service.ProfileCache
	Metrics   service.Metrics `optional:"true"`
	Logger    *slog.Logger
}

// NewProfileService is the constructor for profileService.
func NewProfileService(params ProfileServiceParams) usecase.ProfileUsecase {
	attempts, backoff := defaultResolveAttempts, defaultResolveBackoff
	if params.Config != nil && params.Config.Profile != nil {
		if params.Config.Profile.ResolveAttempts > 0 {
			attempts = params.Config.Profile.ResolveAttempts
		}
		if params.Config.Profile.ResolveBackoff > 0 {
			backoff = params.Config.Profile.ResolveBackoff
		}
	}

	return &profileService{
		txManager: params.TxManager,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validate:  validator.New(),
		attempts:  attempts,
		backoff:   backoff,
		logger:    params.Logger,
		sleep:     sleepContext,
		now:       time.Now,
	}
}

func (srv *profileService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Resolve looks the profile up in the cache, then in the store. A missing row
// is retried with exponential backoff to ride out provisioning latency.
func (srv *profileService) Resolve(ctx context.Context, session *entity.Session) (*entity.Profile, error) {
	if cached, found, err := srv.cache.Get(ctx, session.ID); err != nil {
		srv.log(ctx).Warn("Profile cache read failed", slog.String("session_id", session.ID.String()), slog.Any("error", err))
	} else if found {
		srv.observe(resolveOutcomeCached, 0)

		return cached, nil
	}

	for attempt := 1; ; attempt++ {
		profiles, err := retryTransient(ctx, func() ([]*entity.Profile, error) {
			return srv.listProfiles(ctx, session.IdentityID)
		})
		if err != nil {
			srv.observe(resolveOutcomeError, attempt)

			return nil, errors.Wrap(err, "failed to load profile")
		}

		switch len(profiles) {
		case 1:
			profile := profiles[0]
			if !profile.Role.IsValid() {
				srv.observe(resolveOutcomeAmbiguous, attempt)

				return nil, errors.WithStack(domainerrors.ErrProfileAmbiguous.WithDetails("profile role is not recognised"))
			}

			srv.store(ctx, session, profile)
			srv.observe(resolveOutcomeResolved, attempt)
			srv.log(ctx).Debug("Profile resolved",
				slog.String("identity_id", session.IdentityID.String()),
				slog.String("role", profile.Role.String()),
				slog.Int("attempts", attempt))

			return profile, nil

		case 0:
			if attempt >= srv.attempts {
				srv.observe(resolveOutcomeMissing, attempt)
				srv.log(ctx).Error("Profile missing after retries",
					slog.String("identity_id", session.IdentityID.String()),
					slog.Int("attempts", attempt))

				return nil, errors.WithStack(domainerrors.ErrProfileMissing)
			}

			if err := srv.sleep(ctx, util.Backoff(srv.backoff, maxResolveBackoff, attempt)); err != nil {
				return nil, errors.Wrap(err, "profile resolve interrupted")
			}

		default:
			srv.observe(resolveOutcomeAmbiguous, attempt)
			srv.log(ctx).Error("Identity maps to several profiles",
				slog.String("identity_id", session.IdentityID.String()),
				slog.Int("profiles", len(profiles)))

			return nil, errors.WithStack(domainerrors.ErrProfileAmbiguous)
		}
	}
}

func (srv *profileService) listProfiles(ctx context.Context, identityID uuid.UUID) ([]*entity.Profile, error) {
	var profiles []*entity.Profile

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.NewProfileRepository().ListByIdentityID(ctx, identityID)
		profiles = found

		return err
	})

	return profiles, err
}

func (srv *profileService) store(ctx context.Context, session *entity.Session, profile *entity.Profile) {
	ttl := session.ExpiresAt.Sub(srv.now())
	if ttl <= 0 {
		return
	}

	if err := srv.cache.Set(ctx, session.ID, profile, ttl); err != nil {
		srv.log(ctx).Warn("Profile cache write failed", slog.String("session_id", session.ID.String()), slog.Any("error", err))
	}
}

func (srv *profileService) Forget(ctx context.Context, sessionID uuid.UUID) {
	if err := srv.cache.Delete(ctx, sessionID); err != nil {
		srv.log(ctx).Warn("Profile cache delete failed", slog.String("session_id", sessionID.String()), slog.Any("error", err))
	}
}

// Update changes the editable fields of the session owner's profile.
func (srv *profileService) Update(ctx context.Context, session *entity.Session, update *entity.ProfileUpdate) (*entity.Profile, error) {
	if err := srv.validate.Struct(update); err != nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(err.Error()))
	}

	var updated *entity.Profile

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		profileRepo := repoFactory.NewProfileRepository()

		profiles, err := profileRepo.ListByIdentityID(ctx, session.IdentityID)
		if err != nil {
			return errors.Wrap(err, "failed to load profile")
		}
		switch len(profiles) {
		case 0:
			return errors.WithStack(domainerrors.ErrProfileNotFound)
		case 1:
		default:
			return errors.WithStack(domainerrors.ErrProfileAmbiguous)
		}

		profile := profiles[0]
		if update.FullName != nil {
			profile.FullName = *update.FullName
		}
		if update.Phone != nil {
			profile.Phone = *update.Phone
		}
		if update.ContactEmail != nil {
			profile.ContactEmail = *update.ContactEmail
		}

		if err := profileRepo.Update(ctx, profile); err != nil {
			return errors.Wrap(err, "failed to update profile")
		}
		updated = profile

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update profile")
	}

	srv.store(ctx, session, updated)
	srv.log(ctx).Info("Profile updated", slog.String("identity_id", session.IdentityID.String()))

	return updated, nil
}

func (srv *profileService) observe(outcome string, attempts int) {
	if srv.metrics != nil {
		srv.metrics.ObserveProfileResolve(outcome, attempts)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
