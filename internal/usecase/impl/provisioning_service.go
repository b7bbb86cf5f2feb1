package impl

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/fx"

	deliverycontext "lexcourt/internal/delivery/context"
	"lexcourt/internal/domain/entity"
	domainerrors "lexcourt/internal/domain/errors"
	"lexcourt/internal/domain/repository"
	"lexcourt/internal/errors"
	"lexcourt/internal/usecase"
)

// provisioningService implements the ProvisioningUsecase interface.
type provisioningService struct {
	txManager repository.TransactionManager
	validate  *validator.Validate
	logger    *slog.Logger
}

// ProvisioningServiceParams holds dependencies for ProvisioningService, injected by Fx.
type ProvisioningServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	Logger    *slog.Logger
}

// NewProvisioningService is the constructor for provisioningService.
func NewProvisioningService(params ProvisioningServiceParams) usecase.ProvisioningUsecase {
	return &provisioningService{
		txManager: params.TxManager,
		validate:  validator.New(),
		logger:    params.Logger,
	}
}

func (srv *provisioningService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ProvisionProfile creates the profile described by the sign-up metadata.
func (srv *provisioningService) ProvisionProfile(ctx context.Context, event *entity.IdentityCreatedEvent) error {
	if event == nil || event.IdentityID == uuid.Nil {
		return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("identity is required"))
	}
	if err := srv.validate.Struct(event.Metadata); err != nil {
		return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(err.Error()))
	}

	profile := event.Metadata.ToProfile(event.IdentityID)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if _, err := repoFactory.NewIdentityRepository().FindByID(ctx, event.IdentityID); err != nil {
			if errors.Is(err, repository.ErrIdentityNotFound) {
				return errors.Wrap(domainerrors.ErrNotFound, "identity not found")
			}

			return errors.Wrap(err, "failed to find identity")
		}

		return repoFactory.NewProfileRepository().Create(ctx, profile)
	})
	if errors.Is(err, repository.ErrProfileExists) {
		srv.log(ctx).Info("Profile already provisioned", slog.String("identity_id", event.IdentityID.String()))

		return nil
	}
	if err != nil {
		srv.log(ctx).Error("Failed to provision profile",
			slog.String("identity_id", event.IdentityID.String()),
			slog.Any("error", err))

		return errors.Wrap(err, "failed to provision profile")
	}

	srv.log(ctx).Info("Profile provisioned",
		slog.String("identity_id", event.IdentityID.String()),
		slog.String("role", profile.Role.String()))

	return nil
}
