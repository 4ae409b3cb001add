package models

import "time"

// Group is a named collection of persons arranged in a tree.
type Group struct {
	ID          string     `db:"id" json:"id"`
	TenantID    string     `db:"tenant_id" json:"tenant_id"`
	Name        string     `db:"name" json:"name"`
	Type        string     `db:"type" json:"type"`
	Description *string    `db:"description" json:"description,omitempty"`
	ParentID    *string    `db:"parent_id" json:"parent_id,omitempty"`
	LeaderID    *string    `db:"leader_id" json:"leader_id,omitempty"`
	MaxMembers  *int       `db:"max_members" json:"max_members,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// GroupFilter captures list criteria for groups.
type GroupFilter struct {
	Type     string
	ParentID string
	RootOnly bool
	Search   string
	PageRequest
}

// GroupNode is a parent/child edge used for hierarchy traversal.
type GroupNode struct {
	ID       string  `db:"id"`
	ParentID *string `db:"parent_id"`
}

// CreateGroupRequest is the payload for creating a group.
type CreateGroupRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Type        string  `json:"type" validate:"required,max=64"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid"`
	LeaderID    *string `json:"leader_id" validate:"omitempty,uuid"`
	MaxMembers  *int    `json:"max_members" validate:"omitempty,min=1"`
}
