package models

import "time"

// CourseInstanceStatus is the lifecycle state of a course offering.
type CourseInstanceStatus string

const (
	CourseInstanceStatusDraft            CourseInstanceStatus = "DRAFT"
	CourseInstanceStatusScheduled        CourseInstanceStatus = "SCHEDULED"
	CourseInstanceStatusEnrollmentOpen   CourseInstanceStatus = "ENROLLMENT_OPEN"
	CourseInstanceStatusEnrollmentClosed CourseInstanceStatus = "ENROLLMENT_CLOSED"
	CourseInstanceStatusInProgress       CourseInstanceStatus = "IN_PROGRESS"
	CourseInstanceStatusCompleted        CourseInstanceStatus = "COMPLETED"
	CourseInstanceStatusCancelled        CourseInstanceStatus = "CANCELLED"
)

// Course is a catalogue entry that instances are scheduled from.
type Course struct {
	ID          string     `db:"id" json:"id"`
	TenantID    string     `db:"tenant_id" json:"tenant_id"`
	Code        string     `db:"code" json:"code"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description,omitempty"`
	Credits     *float64   `db:"credits" json:"credits,omitempty"`
	MaxStudents *int       `db:"max_students" json:"max_students,omitempty"`
	Active      bool       `db:"active" json:"active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// CourseFilter captures list criteria for courses.
type CourseFilter struct {
	Search string
	Active *bool
	PageRequest
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Code        string   `json:"code" validate:"required,max=32"`
	Name        string   `json:"name" validate:"required,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=4000"`
	Credits     *float64 `json:"credits" validate:"omitempty,gte=0"`
	MaxStudents *int     `json:"max_students" validate:"omitempty,min=1"`
}

// CourseInstance is a scheduled offering of a course.
type CourseInstance struct {
	ID              string               `db:"id" json:"id"`
	TenantID        string               `db:"tenant_id" json:"tenant_id"`
	CourseID        string               `db:"course_id" json:"course_id"`
	Name            string               `db:"name" json:"name"`
	InstructorID    *string              `db:"instructor_id" json:"instructor_id,omitempty"`
	StartDate       time.Time            `db:"start_date" json:"start_date"`
	EndDate         time.Time            `db:"end_date" json:"end_date"`
	EnrollmentStart *time.Time           `db:"enrollment_start" json:"enrollment_start,omitempty"`
	EnrollmentEnd   *time.Time           `db:"enrollment_end" json:"enrollment_end,omitempty"`
	MaxStudents     *int                 `db:"max_students" json:"max_students,omitempty"`
	Location        *string              `db:"location" json:"location,omitempty"`
	Status          CourseInstanceStatus `db:"status" json:"status"`
	CreatedAt       time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time           `db:"deleted_at" json:"deleted_at,omitempty"`
}

// CourseInstanceDetail adds course data and seat counts to an instance.
type CourseInstanceDetail struct {
	CourseInstance
	CourseCode        string `db:"course_code" json:"course_code"`
	CourseName        string `db:"course_name" json:"course_name"`
	CourseMaxStudents *int   `db:"course_max_students" json:"-"`
	EnrolledCount     int    `db:"enrolled_count" json:"enrolled_count"`
	WaitlistedCount   int    `db:"waitlisted_count" json:"waitlisted_count"`
	Capacity          int    `db:"-" json:"capacity"`
}

// CourseInstanceFilter captures list criteria for course instances.
type CourseInstanceFilter struct {
	CourseID     string
	InstructorID string
	Status       CourseInstanceStatus
	PageRequest
}

// CreateCourseInstanceRequest is the payload for scheduling an offering.
type CreateCourseInstanceRequest struct {
	CourseID        string     `json:"course_id" validate:"required,uuid"`
	Name            string     `json:"name" validate:"required,max=200"`
	InstructorID    *string    `json:"instructor_id" validate:"omitempty,uuid"`
	StartDate       time.Time  `json:"start_date" validate:"required"`
	EndDate         time.Time  `json:"end_date" validate:"required"`
	EnrollmentStart *time.Time `json:"enrollment_start"`
	EnrollmentEnd   *time.Time `json:"enrollment_end"`
	MaxStudents     *int       `json:"max_students" validate:"omitempty,min=1"`
	Location        *string    `json:"location" validate:"omitempty,max=200"`
}

// ChangeInstanceStatusRequest moves an instance through its lifecycle.
type ChangeInstanceStatusRequest struct {
	Status CourseInstanceStatus `json:"status" validate:"required"`
}

// RosterEntry is one line of a course instance roster.
type RosterEntry struct {
	EnrollmentID   string           `db:"enrollment_id" json:"enrollment_id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	FirstName      string           `db:"first_name" json:"first_name"`
	LastName       string           `db:"last_name" json:"last_name"`
	Email          string           `db:"email" json:"email"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	PaymentStatus  PaymentStatus    `db:"payment_status" json:"payment_status"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"enrollment_date"`
}
