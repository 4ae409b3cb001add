package models

import "time"

// MembershipRole is the role a person holds within a group.
type MembershipRole string

// MembershipStatus is the lifecycle state of a membership.
type MembershipStatus string

const (
	MembershipRoleMember      MembershipRole = "MEMBER"
	MembershipRoleLeader      MembershipRole = "LEADER"
	MembershipRoleCoordinator MembershipRole = "COORDINATOR"

	MembershipStatusActive    MembershipStatus = "ACTIVE"
	MembershipStatusInactive  MembershipStatus = "INACTIVE"
	MembershipStatusSuspended MembershipStatus = "SUSPENDED"
)

// GroupMembership joins a person to a group for a date interval.
type GroupMembership struct {
	ID           string           `db:"id" json:"id"`
	TenantID     string           `db:"tenant_id" json:"tenant_id"`
	PersonID     string           `db:"person_id" json:"person_id"`
	GroupID      string           `db:"group_id" json:"group_id"`
	Role         MembershipRole   `db:"role" json:"role"`
	Status       MembershipStatus `db:"status" json:"status"`
	StartDate    time.Time        `db:"start_date" json:"start_date"`
	EndDate      *time.Time       `db:"end_date" json:"end_date,omitempty"`
	StatusReason *string          `db:"status_reason" json:"status_reason,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// MembershipFilter captures list criteria for memberships.
type MembershipFilter struct {
	PersonID string
	GroupID  string
	Status   MembershipStatus
	PageRequest
}

// CreateMembershipRequest is the payload for adding a person to a group.
type CreateMembershipRequest struct {
	PersonID  string         `json:"person_id" validate:"required,uuid"`
	GroupID   string         `json:"group_id" validate:"required,uuid"`
	Role      MembershipRole `json:"role" validate:"omitempty,oneof=MEMBER LEADER COORDINATOR"`
	StartDate *time.Time     `json:"start_date"`
	EndDate   *time.Time     `json:"end_date"`
}

// EndMembershipRequest closes a membership at a date.
type EndMembershipRequest struct {
	EndDate *time.Time `json:"end_date"`
}

// SuspendMembershipRequest suspends a membership.
type SuspendMembershipRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}
