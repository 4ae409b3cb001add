package models

import "time"

// Person is an identity record; students, instructors and group members are persons.
type Person struct {
	ID                    string     `db:"id" json:"id"`
	TenantID              string     `db:"tenant_id" json:"tenant_id"`
	FirstName             string     `db:"first_name" json:"first_name"`
	LastName              string     `db:"last_name" json:"last_name"`
	Email                 string     `db:"email" json:"email"`
	Phone                 *string    `db:"phone" json:"phone,omitempty"`
	NationalID            *string    `db:"national_id" json:"national_id,omitempty"`
	DateOfBirth           *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Address               *string    `db:"address" json:"address,omitempty"`
	EmergencyContactName  *string    `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string    `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt             *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// FullName joins first and last name.
func (p Person) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// PersonFilter captures list criteria for persons.
type PersonFilter struct {
	Search         string
	IncludeDeleted bool
	PageRequest
}

// CreatePersonRequest is the registration payload for a person.
type CreatePersonRequest struct {
	FirstName             string     `json:"first_name" validate:"required,max=100"`
	LastName              string     `json:"last_name" validate:"required,max=100"`
	Email                 string     `json:"email" validate:"required,email"`
	Phone                 *string    `json:"phone" validate:"omitempty,max=32"`
	NationalID            *string    `json:"national_id" validate:"omitempty,max=64"`
	DateOfBirth           *time.Time `json:"date_of_birth"`
	Address               *string    `json:"address" validate:"omitempty,max=500"`
	EmergencyContactName  *string    `json:"emergency_contact_name" validate:"omitempty,max=200"`
	EmergencyContactPhone *string    `json:"emergency_contact_phone" validate:"omitempty,max=32"`
}
