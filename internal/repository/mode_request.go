package repository

import (
	"context"
	"errors"
	"strings"

	"foreman/internal/models"
	"foreman/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ModeRequestRepository defines persistence operations for mode-switch
// requests. Requests are append-then-resolve records; there is no delete.
type ModeRequestRepository interface {
	Insert(ctx context.Context, req *models.ModeSwitchRequest) error
	GetByID(ctx context.Context, id uint) (*models.ModeSwitchRequest, error)
	FindPending(ctx context.Context, accountID uint) (*models.ModeSwitchRequest, error)
	ListByStatus(ctx context.Context, status models.ModeRequestStatus) ([]models.ModeSwitchRequest, error)
	ListByAccount(ctx context.Context, accountID uint) ([]models.ModeSwitchRequest, error)
}

type modeRequestRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewModeRequestRepository returns a new ModeRequestRepository implementation.
func NewModeRequestRepository(db *gorm.DB) ModeRequestRepository {
	return &modeRequestRepository{db: db, metrics: observability.NewDatabaseMetrics(db)}
}

// Insert creates the request as PENDING. The partial unique index on
// (account_id) WHERE status = 'PENDING' rejects a second open request even
// when two inserts race; the violation is surfaced as DuplicateRequestError.
func (r *modeRequestRepository) Insert(ctx context.Context, req *models.ModeSwitchRequest) error {
	defer r.metrics.TrackQuery("insert", "mode_switch_requests")()

	req.Status = models.ModeRequestStatusPending
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		if isPendingUniqueViolation(err) {
			return models.NewDuplicateRequestError()
		}
		return models.NewInternalError(err)
	}
	return nil
}

// isPendingUniqueViolation detects a unique-index violation from either
// backend. PostgreSQL reports SQLSTATE 23505 through pgconn; the SQLite
// driver only exposes a message string.
func isPendingUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "23505")
}

func (r *modeRequestRepository) GetByID(ctx context.Context, id uint) (*models.ModeSwitchRequest, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "get_by_id", "mode_switch_requests")
	defer span.End()
	defer r.metrics.TrackQuery("get_by_id", "mode_switch_requests")()

	var req models.ModeSwitchRequest
	if err := r.db.WithContext(ctx).
		Preload("Account").
		Preload("ResolvedBy").
		First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Mode-switch request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

// FindPending returns the account's open request, or nil when there is none.
func (r *modeRequestRepository) FindPending(ctx context.Context, accountID uint) (*models.ModeSwitchRequest, error) {
	defer r.metrics.TrackQuery("find_pending", "mode_switch_requests")()

	var req models.ModeSwitchRequest
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, models.ModeRequestStatusPending).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

func (r *modeRequestRepository) ListByStatus(ctx context.Context, status models.ModeRequestStatus) ([]models.ModeSwitchRequest, error) {
	var requests []models.ModeSwitchRequest
	if err := r.db.WithContext(ctx).
		Preload("Account").
		Preload("ResolvedBy").
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *modeRequestRepository) ListByAccount(ctx context.Context, accountID uint) ([]models.ModeSwitchRequest, error) {
	var requests []models.ModeSwitchRequest
	if err := r.db.WithContext(ctx).
		Preload("ResolvedBy").
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}
