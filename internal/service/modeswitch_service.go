// Package service contains the business logic for the application.
package service

import (
	"context"
	"errors"
	"time"

	"foreman/internal/cache"
	"foreman/internal/models"
	"foreman/internal/observability"
	"foreman/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// resolveAttempts bounds retries when the storage layer reports a
// serialization conflict.
const resolveAttempts = 3

// ModeSwitchService owns the lifecycle of mode-switch requests: opening them
// on behalf of non-master accounts and resolving them on behalf of master
// administrators.
//
// Resolution runs inside a single database transaction with the request row
// locked FOR UPDATE, so concurrent resolvers serialize and the first one
// wins; the loser sees a terminal status and gets AlreadyResolvedError.
type ModeSwitchService struct {
	db       *gorm.DB
	requests repository.ModeRequestRepository
	users    repository.UserRepository

	// txHook, when set, runs between the account write and the request write
	// of an approval transaction. Tests use it to force a mid-transaction
	// failure and assert that both writes roll back together.
	txHook func() error
}

// NewModeSwitchService returns a new ModeSwitchService.
func NewModeSwitchService(db *gorm.DB, requests repository.ModeRequestRepository, users repository.UserRepository) *ModeSwitchService {
	return &ModeSwitchService{
		db:       db,
		requests: requests,
		users:    users,
	}
}

// CreateRequest opens a PENDING mode-switch request for the account.
//
// It fails with ValidationError for an unknown mode or a master-admin
// requester, DuplicateRequestError when a pending request is already open,
// and AlreadyInModeError when the account already holds the requested mode.
// An open request is checked first, so it wins over already-in-mode.
// The duplicate check is advisory; the real guarantee is the partial unique
// index enforced on insert, which closes the race between two concurrent
// creates.
func (s *ModeSwitchService) CreateRequest(ctx context.Context, accountID uint, requestedMode models.ViewMode) (_ *models.ModeSwitchRequest, err error) {
	ctx, span := observability.GetTraceLayer().TraceServiceMethod(ctx, "ModeSwitchService", "CreateRequest")
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	if !requestedMode.Valid() {
		return nil, models.NewValidationError("requested_mode must be DEVELOPER or ADMIN")
	}

	account, err := s.users.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if account.IsMasterAdmin {
		return nil, models.NewValidationError("master administrators do not use view modes")
	}

	// An outstanding request takes precedence over every other refusal:
	// while one is open the account gets DuplicateRequestError no matter
	// which mode the second create asks for.
	pending, err := s.requests.FindPending(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		observability.ModeRequestConflicts.WithLabelValues("duplicate").Inc()
		return nil, models.NewDuplicateRequestError()
	}

	if account.ViewMode == requestedMode {
		observability.ModeRequestConflicts.WithLabelValues("already_in_mode").Inc()
		return nil, models.NewAlreadyInModeError(requestedMode)
	}

	req := &models.ModeSwitchRequest{
		AccountID:     accountID,
		RequestedMode: requestedMode,
	}
	if err := s.requests.Insert(ctx, req); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeDuplicateRequest {
			observability.ModeRequestConflicts.WithLabelValues("duplicate").Inc()
		}
		return nil, err
	}

	cache.InvalidateActiveRequest(ctx, accountID)
	observability.ModeRequestsCreated.WithLabelValues(string(requestedMode)).Inc()

	return req, nil
}

// ResolveRequest applies a master administrator's decision to a pending
// request. APPROVE switches the account's view mode and closes the request
// in one transaction; REJECT closes the request and leaves the account
// untouched. Either way resolved_at and resolved_by are recorded.
func (s *ModeSwitchService) ResolveRequest(ctx context.Context, requestID, resolverID uint, decision models.Decision) (_ *models.ModeSwitchRequest, err error) {
	ctx, span := observability.GetTraceLayer().TraceServiceMethod(ctx, "ModeSwitchService", "ResolveRequest")
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	if !decision.Valid() {
		return nil, models.NewValidationError("decision must be APPROVE or REJECT")
	}

	resolver, err := s.users.GetByID(ctx, resolverID)
	if err != nil {
		return nil, err
	}
	if !resolver.IsMasterAdmin {
		return nil, models.NewNotAuthorizedError("only a master administrator may resolve mode-switch requests")
	}

	var resolved *models.ModeSwitchRequest
	for attempt := 0; attempt < resolveAttempts; attempt++ {
		resolved, err = s.resolveOnce(ctx, requestID, resolverID, decision)
		if err == nil || !models.IsTransient(err) {
			break
		}
	}
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeAlreadyResolved {
			observability.ModeRequestConflicts.WithLabelValues("already_resolved").Inc()
		}
		return nil, err
	}

	cache.InvalidateActiveRequest(ctx, resolved.AccountID)
	cache.InvalidateUser(ctx, resolved.AccountID)
	observability.ModeRequestsResolved.WithLabelValues(string(decision)).Inc()

	return resolved, nil
}

func (s *ModeSwitchService) resolveOnce(ctx context.Context, requestID, resolverID uint, decision models.Decision) (*models.ModeSwitchRequest, error) {
	span, ctx := observability.NewSpan(ctx, "ModeSwitchService.resolveTx")
	span.AddAttributes(
		attribute.Int("mode_request.id", int(requestID)),
		attribute.String("mode_request.decision", string(decision)),
	)
	defer span.End()

	var request models.ModeSwitchRequest

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Mode-switch request", requestID)
			}
			return err
		}

		if request.Status.Terminal() {
			return models.NewAlreadyResolvedError(request.Status)
		}

		if decision == models.DecisionApprove {
			var account models.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&account, request.AccountID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return models.NewNotFoundError("User", request.AccountID)
				}
				return err
			}

			account.ViewMode = request.RequestedMode
			if err := tx.Save(&account).Error; err != nil {
				return err
			}

			if s.txHook != nil {
				if err := s.txHook(); err != nil {
					return err
				}
			}

			request.Status = models.ModeRequestStatusApproved
		} else {
			request.Status = models.ModeRequestStatusRejected
		}

		now := time.Now().UTC()
		request.ResolvedAt = &now
		request.ResolvedByID = &resolverID
		return tx.Save(&request).Error
	})
	if txErr != nil {
		span.SetError(txErr)
		var appErr *models.AppError
		if errors.As(txErr, &appErr) {
			return nil, appErr
		}
		if isSerializationFailure(txErr) {
			return nil, models.NewStorageConflictError(txErr)
		}
		return nil, models.NewInternalError(txErr)
	}

	return &request, nil
}

// isSerializationFailure reports whether the transaction lost a concurrency
// race and is safe to retry. 40001 is serialization_failure, 40P01 is
// deadlock_detected.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// GetActiveRequest returns the account's pending request, or nil when the
// account has none. Results are cached briefly; create and resolve both
// invalidate the entry.
func (s *ModeSwitchService) GetActiveRequest(ctx context.Context, accountID uint) (*models.ModeSwitchRequest, error) {
	var cached models.ModeSwitchRequest
	key := cache.ActiveRequestKey(accountID)
	if found, err := cache.GetJSON(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	pending, err := s.requests.FindPending(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		_ = cache.SetJSON(ctx, key, pending, cache.ActiveRequestTTL)
	}
	return pending, nil
}

// ListByStatus returns requests in the given status, oldest first.
func (s *ModeSwitchService) ListByStatus(ctx context.Context, status models.ModeRequestStatus) ([]models.ModeSwitchRequest, error) {
	if !status.Valid() {
		return nil, models.NewValidationError("status must be PENDING, APPROVED, or REJECTED")
	}
	return s.requests.ListByStatus(ctx, status)
}

// ListByAccount returns the account's full request history, newest first.
func (s *ModeSwitchService) ListByAccount(ctx context.Context, accountID uint) ([]models.ModeSwitchRequest, error) {
	return s.requests.ListByAccount(ctx, accountID)
}
