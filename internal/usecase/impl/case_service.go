package impl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/fx"

	deliverycontext "lexcourt/internal/delivery/context"
	"lexcourt/internal/domain/entity"
	domainerrors "lexcourt/internal/domain/errors"
	"lexcourt/internal/domain/repository"
	"lexcourt/internal/domain/service"
	"lexcourt/internal/errors"
	"lexcourt/internal/usecase"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 50
)

// Case query outcomes reported to metrics.
const (
	queryOutcomeOK        = "ok"
	queryOutcomeNotFound  = "not_found"
	queryOutcomeForbidden = "forbidden"
	queryOutcomeError     = "error"
)

// caseService implements the CaseUsecase interface.
type caseService struct {
	txManager repository.TransactionManager
	sanitizer service.ContentSanitizer
	metrics   service.Metrics
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

// CaseServiceParams holds dependencies for CaseService, injected by Fx.
type CaseServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	Sanitizer service.ContentSanitizer
	Metrics   service.Metrics `optional:"true"`
	Logger    *slog.Logger
}

// NewCaseService is the constructor for caseService.
func NewCaseService(params CaseServiceParams) usecase.CaseUsecase {
	return &caseService{
		txManager: params.TxManager,
		sanitizer: params.Sanitizer,
		metrics:   params.Metrics,
		validate:  validator.New(),
		logger:    params.Logger,
		now:       time.Now,
	}
}

func (srv *caseService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// read runs fn in a transaction, retrying once on transient failures.
func (srv *caseService) read(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	return retryTransientErr(ctx, func() error {
		return srv.txManager.Execute(ctx, fn)
	})
}

// SearchByCaseNumber looks a case up by its exact CNR across all cases.
func (srv *caseService) SearchByCaseNumber(ctx context.Context, requester entity.Requester, caseNumber string) (*entity.CaseView, bool, error) {
	caseNumber = strings.TrimSpace(caseNumber)
	if caseNumber == "" {
		return nil, false, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("case number is required"))
	}

	var view *entity.CaseView

	err := srv.read(ctx, func(repoFactory repository.RepositoryFactory) error {
		view = nil

		c, err := repoFactory.NewCaseRepository().FindByCaseNumber(ctx, caseNumber)
		if errors.Is(err, repository.ErrCaseNotFound) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to find case by number")
		}

		view, _, err = srv.assemble(ctx, repoFactory, requester, c)

		return err
	})
	if err != nil {
		srv.observe("search", queryOutcomeError)

		return nil, false, errors.Wrap(err, "failed to search case")
	}

	if view == nil {
		srv.observe("search", queryOutcomeNotFound)
		srv.log(ctx).Debug("No case for number", slog.String("cnr", caseNumber))

		return nil, false, nil
	}

	srv.observe("search", queryOutcomeOK)

	return view, true, nil
}

// ListRecentCases returns the newest cases the requester works on. Lawyers
// see the cases they participate in; judges also see cases assigned to them.
func (srv *caseService) ListRecentCases(ctx context.Context, requester entity.Requester, limit int) ([]*entity.CaseView, error) {
	switch {
	case limit <= 0:
		limit = defaultRecentLimit
	case limit > maxRecentLimit:
		limit = maxRecentLimit
	}

	identityID := requester.IdentityID
	filter := repository.CaseFilter{ParticipantID: &identityID}
	switch requester.Role {
	case entity.RoleLawyer:
	case entity.RoleJudge:
		filter.JudgeID = &identityID
	default:
		panic(fmt.Sprintf("case service: unhandled role %q", string(requester.Role)))
	}

	var views []*entity.CaseView

	err := srv.read(ctx, func(repoFactory repository.RepositoryFactory) error {
		cases, err := repoFactory.NewCaseRepository().ListRecent(ctx, filter, limit)
		if err != nil {
			return errors.Wrap(err, "failed to list recent cases")
		}

		views = make([]*entity.CaseView, 0, len(cases))
		for _, c := range cases {
			view, _, err := srv.assemble(ctx, repoFactory, requester, c)
			if err != nil {
				return err
			}
			views = append(views, view)
		}

		return nil
	})
	if err != nil {
		srv.observe("recent", queryOutcomeError)

		return nil, errors.Wrap(err, "failed to list recent cases")
	}

	srv.observe("recent", queryOutcomeOK)

	return views, nil
}

// CaseDetail returns the view of a case the requester participates in or presides over.
func (srv *caseService) CaseDetail(ctx context.Context, requester entity.Requester, caseID uuid.UUID) (*entity.CaseView, error) {
	var view *entity.CaseView

	err := srv.read(ctx, func(repoFactory repository.RepositoryFactory) error {
		c, err := findCase(ctx, repoFactory, caseID)
		if err != nil {
			return err
		}

		v, member, err := srv.assemble(ctx, repoFactory, requester, c)
		if err != nil {
			return err
		}
		if !member {
			return errors.WithStack(domainerrors.ErrForbidden)
		}
		view = v

		return nil
	})
	if err != nil {
		srv.observe("detail", queryOutcome(err))

		return nil, errors.Wrap(err, "failed to load case detail")
	}

	srv.observe("detail", queryOutcomeOK)

	return view, nil
}

// assemble joins a case with its roster, next hearing and the communications
// the requester may read. member reports whether the requester participates
// in the case or presides over it.
func (srv *caseService) assemble(ctx context.Context, repoFactory repository.RepositoryFactory, requester entity.Requester, c *entity.Case) (*entity.CaseView, bool, error) {
	roster, err := repoFactory.NewParticipantRepository().ListByCase(ctx, c.ID)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to list participants")
	}

	hearings, err := repoFactory.NewHearingRepository().ListByCase(ctx, c.ID)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to list hearings")
	}

	next := nextHearingView(hearings, srv.now())
	view := &entity.CaseView{
		Case:           c,
		NextHearing:    next,
		Participants:   roster,
		Communications: []*entity.Communication{},
	}

	member := isMember(requester, c, roster)
	if !member {
		// Outsiders learn when the case is heard, not where.
		view.NextHearing.Hearing = nil

		return view, false, nil
	}

	communications, err := repoFactory.NewCommunicationRepository().ListByCase(ctx, c.ID)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to list communications")
	}

	view.Hearings = hearings
	view.Communications = visibleCommunications(requester, c, roster, communications)

	return view, true, nil
}

func nextHearingView(hearings []*entity.Hearing, now time.Time) entity.NextHearingView {
	next := entity.NextHearing(hearings, now)
	if next == nil {
		return entity.NextHearingView{Label: entity.NotScheduled}
	}

	return entity.NextHearingView{
		Scheduled: true,
		Label:     next.ScheduledAt.UTC().Format(time.RFC3339),
		Hearing:   next,
	}
}

func isMember(requester entity.Requester, c *entity.Case, roster entity.Roster) bool {
	if c.IsAssignedJudge(requester.IdentityID) {
		return true
	}
	_, ok := roster.Find(requester.IdentityID)

	return ok
}

// seesPrivate reports whether the requester may read private communications of c.
func seesPrivate(requester entity.Requester, c *entity.Case, roster entity.Roster) bool {
	if c.IsAssignedJudge(requester.IdentityID) {
		return true
	}
	participant, ok := roster.Find(requester.IdentityID)

	return ok && participant.Role.SeesPrivate()
}

// visibleCommunications drops everything for non-members and private
// messages for members whose role in the case does not admit them.
func visibleCommunications(requester entity.Requester, c *entity.Case, roster entity.Roster, communications []*entity.Communication) []*entity.Communication {
	visible := make([]*entity.Communication, 0, len(communications))
	if !isMember(requester, c, roster) {
		return visible
	}

	private := seesPrivate(requester, c, roster)
	for _, msg := range communications {
		if msg.CaseID != c.ID {
			continue
		}
		if msg.Private && !private {
			continue
		}
		visible = append(visible, msg)
	}

	return visible
}

// CreateCase files a new case. Only lawyers file cases; the filer becomes
// the owner and a counsel participant.
func (srv *caseService) CreateCase(ctx context.Context, requester entity.Requester, input *usecase.CreateCaseInput) (*entity.CaseView, error) {
	switch requester.Role {
	case entity.RoleLawyer:
	case entity.RoleJudge:
		return nil, errors.Wrap(domainerrors.ErrForbidden, "only lawyers file cases")
	default:
		panic(fmt.Sprintf("case service: unhandled role %q", string(requester.Role)))
	}

	if err := srv.validate.Struct(input); err != nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(err.Error()))
	}
	if !input.Type.IsValid() {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("unknown case type"))
	}

	partyType := input.PartyType
	if partyType == "" {
		partyType = entity.ParticipantPetitionerCounsel
	}
	if !partyType.IsCounsel() {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("party type must be a counsel role"))
	}

	c := &entity.Case{
		CaseNumber:  strings.TrimSpace(input.CaseNumber),
		Title:       input.Title,
		Type:        input.Type,
		Status:      entity.CaseStatusPending,
		Petitioner:  input.Petitioner,
		Respondent:  input.Respondent,
		CourtName:   input.CourtName,
		Description: srv.sanitizer.Sanitize(input.Description),
		CreatedBy:   requester.IdentityID,
	}

	var view *entity.CaseView

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if err := repoFactory.NewCaseRepository().Create(ctx, c); err != nil {
			if errors.Is(err, repository.ErrCaseNumberExists) {
				return errors.WithStack(domainerrors.ErrCaseNumberTaken)
			}

			return errors.Wrap(err, "failed to create case")
		}

		err := repoFactory.NewParticipantRepository().Add(ctx, &entity.CaseParticipant{
			CaseID:     c.ID,
			IdentityID: requester.IdentityID,
			Role:       partyType,
		})
		if err != nil {
			return errors.Wrap(err, "failed to add filing counsel")
		}

		view, _, err = srv.assemble(ctx, repoFactory, requester, c)

		return err
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to create case", slog.String("cnr", c.CaseNumber), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to create case")
	}

	srv.log(ctx).Info("Case created", slog.String("case_id", c.ID.String()), slog.String("cnr", c.CaseNumber))

	return view, nil
}

// AddParticipant links another identity to a case the requester manages.
func (srv *caseService) AddParticipant(ctx context.Context, requester entity.Requester, caseID uuid.UUID, input *usecase.AddParticipantInput) error {
	if err := srv.validate.Struct(input); err != nil {
		return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(err.Error()))
	}
	if !input.Role.IsValid() || input.Role == entity.ParticipantJudge {
		return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("judges are assigned, not added"))
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		c, err := srv.findManaged(ctx, repoFactory, requester, caseID)
		if err != nil {
			return err
		}

		if _, err := repoFactory.NewIdentityRepository().FindByID(ctx, input.IdentityID); err != nil {
			if errors.Is(err, repository.ErrIdentityNotFound) {
				return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("identity does not exist"))
			}

			return errors.Wrap(err, "failed to find identity")
		}

		err = repoFactory.NewParticipantRepository().Add(ctx, &entity.CaseParticipant{
			CaseID:     c.ID,
			IdentityID: input.IdentityID,
			Role:       input.Role,
		})
		if errors.Is(err, repository.ErrParticipantExists) {
			return errors.WithStack(domainerrors.ErrAlreadyParticipant)
		}

		return err
	})
	if err != nil {
		return errors.Wrap(err, "failed to add participant")
	}

	srv.log(ctx).Info("Participant added",
		slog.String("case_id", caseID.String()),
		slog.String("identity_id", input.IdentityID.String()),
		slog.String("role", string(input.Role)))

	return nil
}

// UpdateCaseStatus changes the status of a case the requester manages. A
// closed case stays closed.
func (srv *caseService) UpdateCaseStatus(ctx context.Context, requester entity.Requester, caseID uuid.UUID, status entity.CaseStatus) error {
	if !status.IsValid() {
		return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("unknown case status"))
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		c, err := srv.findManaged(ctx, repoFactory, requester, caseID)
		if err != nil {
			return err
		}

		return repoFactory.NewCaseRepository().UpdateStatus(ctx, c.ID, status)
	})
	if err != nil {
		return errors.Wrap(err, "failed to update case status")
	}

	srv.log(ctx).Info("Case status updated", slog.String("case_id", caseID.String()), slog.String("status", string(status)))

	return nil
}

// AssignJudge sets the presiding judge, replacing any previous one.
func (srv *caseService) AssignJudge(ctx context.Context, requester entity.Requester, caseID, judgeID uuid.UUID) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		c, err := srv.findManaged(ctx, repoFactory, requester, caseID)
		if err != nil {
			return err
		}

		profiles, err := repoFactory.NewProfileRepository().ListByIdentityID(ctx, judgeID)
		if err != nil {
			return errors.Wrap(err, "failed to load judge profile")
		}
		if len(profiles) != 1 || profiles[0].Role != entity.RoleJudge {
			return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("assignee is not a judge"))
		}

		participants := repoFactory.NewParticipantRepository()
		if err := participants.RemoveRole(ctx, c.ID, entity.ParticipantJudge); err != nil {
			return errors.Wrap(err, "failed to remove previous judge")
		}

		err = participants.Add(ctx, &entity.CaseParticipant{
			CaseID:     c.ID,
			IdentityID: judgeID,
			Role:       entity.ParticipantJudge,
		})
		if errors.Is(err, repository.ErrParticipantExists) {
			return errors.WithStack(domainerrors.ErrConflict.WithDetails("assignee already takes part in the case"))
		}
		if err != nil {
			return errors.Wrap(err, "failed to add judge participant")
		}

		return repoFactory.NewCaseRepository().AssignJudge(ctx, c.ID, judgeID)
	})
	if err != nil {
		return errors.Wrap(err, "failed to assign judge")
	}

	srv.log(ctx).Info("Judge assigned", slog.String("case_id", caseID.String()), slog.String("judge_id", judgeID.String()))

	return nil
}

// ScheduleHearing adds a future hearing. Only the assigned judge schedules.
func (srv *caseService) ScheduleHearing(ctx context.Context, requester entity.Requester, caseID uuid.UUID, input *usecase.ScheduleHearingInput) (*entity.Hearing, error) {
	if err := srv.validate.Struct(input); err != nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(err.Error()))
	}
	if !input.ScheduledAt.After(srv.now()) {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("hearing must be scheduled in the future"))
	}

	hearing := &entity.Hearing{
		CaseID:      caseID,
		ScheduledAt: input.ScheduledAt,
		Status:      entity.HearingScheduled,
		Location:    input.Location,
		MeetingLink: input.MeetingLink,
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		c, err := findCase(ctx, repoFactory, caseID)
		if err != nil {
			return err
		}
		if !c.IsAssignedJudge(requester.IdentityID) {
			return errors.Wrap(domainerrors.ErrForbidden, "only the assigned judge schedules hearings")
		}
		if c.Status == entity.CaseStatusClosed {
			return errors.WithStack(domainerrors.ErrCaseClosed)
		}

		return repoFactory.NewHearingRepository().Create(ctx, hearing)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to schedule hearing")
	}

	srv.log(ctx).Info("Hearing scheduled",
		slog.String("case_id", caseID.String()),
		slog.String("hearing_id", hearing.ID.String()),
		slog.Time("scheduled_at", hearing.ScheduledAt))

	return hearing, nil
}

// PostCommunication adds a message to a case. Only counsel and judges may
// post private messages.
func (srv *caseService) PostCommunication(ctx context.Context, requester entity.Requester, caseID uuid.UUID, input *usecase.PostCommunicationInput) (*entity.Communication, error) {
	if err := srv.validate.Struct(input); err != nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(err.Error()))
	}

	message := strings.TrimSpace(srv.sanitizer.Sanitize(input.Message))
	if message == "" {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("message is empty"))
	}

	communication := &entity.Communication{
		CaseID:         caseID,
		SenderID:       requester.IdentityID,
		RecipientParty: srv.sanitizer.Sanitize(input.RecipientParty),
		Message:        message,
		Private:        input.Private,
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		c, err := findCase(ctx, repoFactory, caseID)
		if err != nil {
			return err
		}

		roster, err := repoFactory.NewParticipantRepository().ListByCase(ctx, c.ID)
		if err != nil {
			return errors.Wrap(err, "failed to list participants")
		}
		if !isMember(requester, c, roster) {
			return errors.WithStack(domainerrors.ErrForbidden)
		}
		if input.Private && !seesPrivate(requester, c, roster) {
			return errors.Wrap(domainerrors.ErrForbidden, "role cannot post private messages")
		}
		if c.Status == entity.CaseStatusClosed {
			return errors.WithStack(domainerrors.ErrCaseClosed)
		}

		return repoFactory.NewCommunicationRepository().Create(ctx, communication)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to post communication")
	}

	srv.log(ctx).Info("Communication posted",
		slog.String("case_id", caseID.String()),
		slog.Bool("private", communication.Private))

	return communication, nil
}

// JoinHearing returns a hearing of a case the requester takes part in.
func (srv *caseService) JoinHearing(ctx context.Context, requester entity.Requester, hearingID uuid.UUID) (*entity.Hearing, error) {
	var hearing *entity.Hearing

	err := srv.read(ctx, func(repoFactory repository.RepositoryFactory) error {
		h, err := repoFactory.NewHearingRepository().FindByID(ctx, hearingID)
		if errors.Is(err, repository.ErrHearingNotFound) {
			return errors.WithStack(domainerrors.ErrHearingNotFound)
		}
		if err != nil {
			return errors.Wrap(err, "failed to find hearing")
		}

		c, err := findCase(ctx, repoFactory, h.CaseID)
		if err != nil {
			return err
		}

		roster, err := repoFactory.NewParticipantRepository().ListByCase(ctx, c.ID)
		if err != nil {
			return errors.Wrap(err, "failed to list participants")
		}
		if !isMember(requester, c, roster) {
			return errors.WithStack(domainerrors.ErrForbidden)
		}
		if h.Status == entity.HearingClosed {
			return errors.Wrap(domainerrors.ErrHearingNotFound, "hearing is closed")
		}
		hearing = h

		return nil
	})
	if err != nil {
		srv.observe("join_hearing", queryOutcome(err))

		return nil, errors.Wrap(err, "failed to join hearing")
	}

	srv.observe("join_hearing", queryOutcomeOK)

	return hearing, nil
}

// findManaged loads a case the requester may change and that is still open.
func (srv *caseService) findManaged(ctx context.Context, repoFactory repository.RepositoryFactory, requester entity.Requester, caseID uuid.UUID) (*entity.Case, error) {
	c, err := findCase(ctx, repoFactory, caseID)
	if err != nil {
		return nil, err
	}
	if !c.CanManage(requester.IdentityID) {
		return nil, errors.WithStack(domainerrors.ErrForbidden)
	}
	if c.Status == entity.CaseStatusClosed {
		return nil, errors.WithStack(domainerrors.ErrCaseClosed)
	}

	return c, nil
}

func findCase(ctx context.Context, repoFactory repository.RepositoryFactory, caseID uuid.UUID) (*entity.Case, error) {
	c, err := repoFactory.NewCaseRepository().FindByID(ctx, caseID)
	if errors.Is(err, repository.ErrCaseNotFound) {
		return nil, errors.WithStack(domainerrors.ErrCaseNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find case")
	}

	return c, nil
}

func (srv *caseService) observe(operation, outcome string) {
	if srv.metrics != nil {
		srv.metrics.ObserveCaseQuery(operation, outcome)
	}
}

func queryOutcome(err error) string {
	switch {
	case errors.Is(err, domainerrors.ErrForbidden):
		return queryOutcomeForbidden
	case errors.IsAny(err, domainerrors.ErrCaseNotFound, domainerrors.ErrHearingNotFound):
		return queryOutcomeNotFound
	default:
		return queryOutcomeError
	}
}
