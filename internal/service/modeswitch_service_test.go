package service

import (
	"context"
	"errors"
	"testing"

	"foreman/internal/database"
	"foreman/internal/models"
	"foreman/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupModeSwitchTest(t *testing.T) (*ModeSwitchService, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	svc := NewModeSwitchService(db, repository.NewModeRequestRepository(db), repository.NewUserRepository(db))
	return svc, db
}

func seedUser(t *testing.T, db *gorm.DB, username string, mode models.ViewMode, master bool) *models.User {
	t.Helper()
	user := &models.User{
		Username:      username,
		Email:         username + "@example.com",
		Password:      "pw",
		ViewMode:      mode,
		IsMasterAdmin: master,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func assertAppErrCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestCreateRequest(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	ctx := context.Background()

	dev := seedUser(t, db, "dev", models.ViewModeDeveloper, false)

	req, err := svc.CreateRequest(ctx, dev.ID, models.ViewModeAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.ModeRequestStatusPending, req.Status)
	assert.Equal(t, dev.ID, req.AccountID)
	assert.Equal(t, models.ViewModeAdmin, req.RequestedMode)
	assert.Nil(t, req.ResolvedAt)
	assert.Nil(t, req.ResolvedByID)

	// The account's mode is untouched until a master admin approves.
	var reloaded models.User
	require.NoError(t, db.First(&reloaded, dev.ID).Error)
	assert.Equal(t, models.ViewModeDeveloper, reloaded.ViewMode)
}

func TestCreateRequest_InvalidMode(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	dev := seedUser(t, db, "dev", models.ViewModeDeveloper, false)

	_, err := svc.CreateRequest(context.Background(), dev.ID, models.ViewMode("SUPERUSER"))
	assertAppErrCode(t, err, models.CodeValidation)
}

func TestCreateRequest_MasterAdmin(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	master := seedUser(t, db, "root", models.ViewModeDeveloper, true)

	_, err := svc.CreateRequest(context.Background(), master.ID, models.ViewModeAdmin)
	assertAppErrCode(t, err, models.CodeValidation)
}

func TestCreateRequest_AlreadyInMode(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	dev := seedUser(t, db, "dev", models.ViewModeDeveloper, false)

	_, err := svc.CreateRequest(context.Background(), dev.ID, models.ViewModeDeveloper)
	assertAppErrCode(t, err, models.CodeAlreadyInMode)
}

func TestCreateRequest_DuplicatePending(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	ctx := context.Background()
	dev := seedUser(t, db, "dev", models.ViewModeDeveloper, false)

	_, err := svc.CreateRequest(ctx, dev.ID, models.ViewModeAdmin)
	require.NoError(t, err)

	_, err = svc.CreateRequest(ctx, dev.ID, models.ViewModeAdmin)
	assertAppErrCode(t, err, models.CodeDuplicateRequest)

	// The open request wins over the already-in-mode refusal: DEVELOPER is
	// the account's current mode, and the answer is still DUPLICATE_REQUEST.
	_, err = svc.CreateRequest(ctx, dev.ID, models.ViewModeDeveloper)
	assertAppErrCode(t, err, models.CodeDuplicateRequest)
}

func TestCreateRequest_UnknownAccount(t *testing.T) {
	t.Parallel()
	svc, _ := setupModeSwitchTest(t)

	_, err := svc.CreateRequest(context.Background(), 999, models.ViewModeAdmin)
	assertAppErrCode(t, err, models.CodeNotFound)
}

func TestResolveRequest_Approve(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	ctx := context.Background()

	dev := seedUser(t, db, "dev", models.ViewModeDeveloper, false)
	master := seedUser(t, db, "root", models.ViewModeDeveloper, true)

	req, err := svc.CreateRequest(ctx, dev.ID, models.ViewModeAdmin)
	require.NoError(t, err)

	resolved, err := svc.ResolveRequest(ctx, req.ID, master.ID, models.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, models.ModeRequestStatusApproved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.ResolvedByID)
	assert.Equal(t, master.ID, *resolved.ResolvedByID)

	// The account's view mode switched in the same transaction.
	var account models.User
	require.NoError(t, db.First(&account, dev.ID).Error)
	assert.Equal(t, models.ViewModeAdmin, account.ViewMode)
}

func TestResolveRequest_Reject(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	ctx := context.Background()

	dev := seedUser(t, db, "dev", models.ViewModeDeveloper, false)
	master := seedUser(t, db, "root", models.ViewModeDeveloper, true)

	req, err := svc.CreateRequest(ctx, dev.ID, models.ViewModeAdmin)
	require.NoError(t, err)

	resolved, err := svc.ResolveRequest(ctx, req.ID, master.ID, models.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, models.ModeRequestStatusRejected, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.ResolvedByID)

	var account models.User
	require.NoError(t, db.First(&account, dev.ID).Error)
	assert.Equal(t, models.ViewModeDeveloper, account.ViewMode)

	// A rejected request no longer blocks a new one.
	_, err = svc.CreateRequest(ctx, dev.ID, models.ViewModeAdmin)
	require.NoError(t, err)
}

func TestResolveRequest_NonMasterDenied(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	ctx := context.Background()

	dev := seedUser(t, db, "dev", models.ViewModeDeveloper, false)
	other := seedUser(t, db, "peer", models.ViewModeAdmin, false)

	req, err := svc.CreateRequest(ctx, dev.ID, models.ViewModeAdmin)
	require.NoError(t, err)

	_, err = svc.ResolveRequest(ctx, req.ID, other.ID, models.DecisionApprove)
	assertAppErrCode(t, err, models.CodeNotAuthorized)

	// Requesters cannot resolve their own requests either.
	_, err = svc.ResolveRequest(ctx, req.ID, dev.ID, models.DecisionApprove)
	assertAppErrCode(t, err, models.CodeNotAuthorized)

	var reloaded models.ModeSwitchRequest
	require.NoError(t, db.First(&reloaded, req.ID).Error)
	assert.Equal(t, models.ModeRequestStatusPending, reloaded.Status)
}

func TestResolveRequest_AlreadyResolved(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	ctx := context.Background()

	dev := seedUser(t, db, "dev", models.ViewModeDeveloper, false)
	master := seedUser(t, db, "root", models.ViewModeDeveloper, true)
	second := seedUser(t, db, "root2", models.ViewModeDeveloper, true)

	req, err := svc.CreateRequest(ctx, dev.ID, models.ViewModeAdmin)
	require.NoError(t, err)

	first, err := svc.ResolveRequest(ctx, req.ID, master.ID, models.DecisionApprove)
	require.NoError(t, err)

	// The second resolver loses, regardless of decision.
	_, err = svc.ResolveRequest(ctx, req.ID, second.ID, models.DecisionReject)
	assertAppErrCode(t, err, models.CodeAlreadyResolved)

	// The first resolution stands.
	var reloaded models.ModeSwitchRequest
	require.NoError(t, db.First(&reloaded, req.ID).Error)
	assert.Equal(t, models.ModeRequestStatusApproved, reloaded.Status)
	assert.Equal(t, master.ID, *reloaded.ResolvedByID)
	assert.Equal(t, first.ResolvedAt.Unix(), reloaded.ResolvedAt.Unix())
}

func TestResolveRequest_NotFound(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	master := seedUser(t, db, "root", models.ViewModeDeveloper, true)

	_, err := svc.ResolveRequest(context.Background(), 12345, master.ID, models.DecisionApprove)
	assertAppErrCode(t, err, models.CodeNotFound)
}

func TestResolveRequest_InvalidDecision(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	master := seedUser(t, db, "root", models.ViewModeDeveloper, true)

	_, err := svc.ResolveRequest(context.Background(), 1, master.ID, models.Decision("MAYBE"))
	assertAppErrCode(t, err, models.CodeValidation)
}

func TestResolveRequest_ApproveRollsBackAtomically(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	ctx := context.Background()

	dev := seedUser(t, db, "dev", models.ViewModeDeveloper, false)
	master := seedUser(t, db, "root", models.ViewModeDeveloper, true)

	req, err := svc.CreateRequest(ctx, dev.ID, models.ViewModeAdmin)
	require.NoError(t, err)

	// Fail the transaction after the account write but before the request
	// write. Neither side may survive.
	svc.txHook = func() error { return errors.New("injected failure") }

	_, err = svc.ResolveRequest(ctx, req.ID, master.ID, models.DecisionApprove)
	require.Error(t, err)

	var account models.User
	require.NoError(t, db.First(&account, dev.ID).Error)
	assert.Equal(t, models.ViewModeDeveloper, account.ViewMode, "account write must roll back")

	var reloaded models.ModeSwitchRequest
	require.NoError(t, db.First(&reloaded, req.ID).Error)
	assert.Equal(t, models.ModeRequestStatusPending, reloaded.Status, "request must stay pending")
	assert.Nil(t, reloaded.ResolvedAt)

	// With the hook removed the same request resolves cleanly.
	svc.txHook = nil
	resolved, err := svc.ResolveRequest(ctx, req.ID, master.ID, models.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, models.ModeRequestStatusApproved, resolved.Status)
}

func TestGetActiveRequest(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	ctx := context.Background()

	dev := seedUser(t, db, "dev", models.ViewModeDeveloper, false)
	master := seedUser(t, db, "root", models.ViewModeDeveloper, true)

	active, err := svc.GetActiveRequest(ctx, dev.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	req, err := svc.CreateRequest(ctx, dev.ID, models.ViewModeAdmin)
	require.NoError(t, err)

	active, err = svc.GetActiveRequest(ctx, dev.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, req.ID, active.ID)

	_, err = svc.ResolveRequest(ctx, req.ID, master.ID, models.DecisionApprove)
	require.NoError(t, err)

	active, err = svc.GetActiveRequest(ctx, dev.ID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestListByStatus(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	ctx := context.Background()

	a := seedUser(t, db, "a", models.ViewModeDeveloper, false)
	b := seedUser(t, db, "b", models.ViewModeDeveloper, false)
	master := seedUser(t, db, "root", models.ViewModeDeveloper, true)

	reqA, err := svc.CreateRequest(ctx, a.ID, models.ViewModeAdmin)
	require.NoError(t, err)
	_, err = svc.CreateRequest(ctx, b.ID, models.ViewModeAdmin)
	require.NoError(t, err)

	_, err = svc.ResolveRequest(ctx, reqA.ID, master.ID, models.DecisionApprove)
	require.NoError(t, err)

	pending, err := svc.ListByStatus(ctx, models.ModeRequestStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].AccountID)

	approved, err := svc.ListByStatus(ctx, models.ModeRequestStatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, a.ID, approved[0].AccountID)

	_, err = svc.ListByStatus(ctx, models.ModeRequestStatus("OPEN"))
	assertAppErrCode(t, err, models.CodeValidation)
}

func TestListByAccount_AuditTrailSurvivesResolution(t *testing.T) {
	t.Parallel()
	svc, db := setupModeSwitchTest(t)
	ctx := context.Background()

	dev := seedUser(t, db, "dev", models.ViewModeDeveloper, false)
	master := seedUser(t, db, "root", models.ViewModeDeveloper, true)

	first, err := svc.CreateRequest(ctx, dev.ID, models.ViewModeAdmin)
	require.NoError(t, err)
	_, err = svc.ResolveRequest(ctx, first.ID, master.ID, models.DecisionReject)
	require.NoError(t, err)

	second, err := svc.CreateRequest(ctx, dev.ID, models.ViewModeAdmin)
	require.NoError(t, err)
	_, err = svc.ResolveRequest(ctx, second.ID, master.ID, models.DecisionApprove)
	require.NoError(t, err)

	history, err := svc.ListByAccount(ctx, dev.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.ModeRequestStatusApproved, history[0].Status)
	assert.Equal(t, models.ModeRequestStatusRejected, history[1].Status)
}
