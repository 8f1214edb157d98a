package models

import "time"

// ModeRequestStatus defines lifecycle states for mode-switch requests.
type ModeRequestStatus string

const (
	// ModeRequestStatusPending indicates the request is awaiting a master
	// administrator's decision.
	ModeRequestStatusPending ModeRequestStatus = "PENDING"
	// ModeRequestStatusApproved indicates the request was approved and the
	// account's view mode was switched.
	ModeRequestStatusApproved ModeRequestStatus = "APPROVED"
	// ModeRequestStatusRejected indicates the request was denied.
	ModeRequestStatusRejected ModeRequestStatus = "REJECTED"
)

// Terminal reports whether the status admits no further transition.
func (s ModeRequestStatus) Terminal() bool {
	return s == ModeRequestStatusApproved || s == ModeRequestStatusRejected
}

// Valid reports whether the status is one of the recognized literals.
func (s ModeRequestStatus) Valid() bool {
	return s == ModeRequestStatusPending || s.Terminal()
}

// Decision is a resolver's verdict on a pending mode-switch request.
type Decision string

const (
	// DecisionApprove switches the account's view mode and closes the request.
	DecisionApprove Decision = "APPROVE"
	// DecisionReject closes the request without touching the account.
	DecisionReject Decision = "REJECT"
)

// Valid reports whether the decision is one of the recognized literals.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// ModeSwitchRequest is a durable record of a user's intent to change view
// mode. It is created PENDING, resolved exactly once by a master
// administrator, and never deleted: resolved requests form the audit trail.
//
// At most one PENDING request may exist per account; the constraint is a
// partial unique index on (account_id) where status = 'PENDING', created in
// database.Migrate, so the invariant holds under concurrent inserts.
type ModeSwitchRequest struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	AccountID     uint              `gorm:"not null;index" json:"account_id"`
	Account       *User             `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	RequestedMode ViewMode          `gorm:"type:varchar(20);not null" json:"requested_mode"`
	Status        ModeRequestStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ResolvedByID  *uint             `json:"resolved_by_id"`
	ResolvedBy    *User             `gorm:"foreignKey:ResolvedByID" json:"resolved_by,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	ResolvedAt    *time.Time        `json:"resolved_at"`
}

// TableName specifies the table name for GORM
func (ModeSwitchRequest) TableName() string {
	return "mode_switch_requests"
}
