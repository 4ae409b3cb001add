package models

import "time"

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

// PaymentStatus tracks payment independently of the enrollment status.
type PaymentStatus string

const (
	EnrollmentStatusPending    EnrollmentStatus = "PENDING"
	EnrollmentStatusEnrolled   EnrollmentStatus = "ENROLLED"
	EnrollmentStatusWaitlisted EnrollmentStatus = "WAITLISTED"
	EnrollmentStatusDropped    EnrollmentStatus = "DROPPED"
	EnrollmentStatusCompleted  EnrollmentStatus = "COMPLETED"
	EnrollmentStatusFailed     EnrollmentStatus = "FAILED"
	EnrollmentStatusCancelled  EnrollmentStatus = "CANCELLED"

	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPartial  PaymentStatus = "PARTIAL"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusOverdue  PaymentStatus = "OVERDUE"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Enrollment joins a student to a course instance.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	TenantID         string           `db:"tenant_id" json:"tenant_id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	CourseInstanceID string           `db:"course_instance_id" json:"course_instance_id"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	PaymentStatus    PaymentStatus    `db:"payment_status" json:"payment_status"`
	AmountPaid       float64          `db:"amount_paid" json:"amount_paid"`
	EnrollmentDate   time.Time        `db:"enrollment_date" json:"enrollment_date"`
	DropDate         *time.Time       `db:"drop_date" json:"drop_date,omitempty"`
	DropReason       *string          `db:"drop_reason" json:"drop_reason,omitempty"`
	CompletionDate   *time.Time       `db:"completion_date" json:"completion_date,omitempty"`
	Notes            *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
	DeletedAt        *time.Time       `db:"deleted_at" json:"deleted_at,omitempty"`
}

// EnrollmentFilter captures list criteria for enrollments.
type EnrollmentFilter struct {
	StudentID        string
	CourseInstanceID string
	Status           EnrollmentStatus
	PageRequest
}

// EnrollRequest enrolls a student in a course instance.
type EnrollRequest struct {
	StudentID        string  `json:"student_id" validate:"required,uuid"`
	CourseInstanceID string  `json:"course_instance_id" validate:"required,uuid"`
	Notes            *string `json:"notes" validate:"omitempty,max=2000"`
}

// DropEnrollmentRequest drops an enrollment.
type DropEnrollmentRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=1000"`
}

// ChangeEnrollmentStatusRequest applies a lifecycle transition.
type ChangeEnrollmentStatusRequest struct {
	Status EnrollmentStatus `json:"status" validate:"required,oneof=ENROLLED WAITLISTED DROPPED COMPLETED FAILED CANCELLED"`
	Reason *string          `json:"reason" validate:"omitempty,max=1000"`
}

// UpdatePaymentRequest records payment progress.
type UpdatePaymentRequest struct {
	PaymentStatus PaymentStatus `json:"payment_status" validate:"required,oneof=PENDING PARTIAL PAID OVERDUE REFUNDED"`
	AmountPaid    *float64      `json:"amount_paid" validate:"omitempty,gte=0"`
}

// WaitlistResult reports the outcome of a waitlist promotion pass.
type WaitlistResult struct {
	CourseInstanceID string   `json:"course_instance_id"`
	Capacity         int      `json:"capacity"`
	AvailableSlots   int      `json:"available_slots"`
	Promoted         []string `json:"promoted"`
}

// InstanceCapacity is the seat policy of a course instance read under lock.
type InstanceCapacity struct {
	CourseInstanceID  string               `db:"id"`
	Name              string               `db:"name"`
	Status            CourseInstanceStatus `db:"status"`
	MaxStudents       *int                 `db:"max_students"`
	CourseMaxStudents *int                 `db:"course_max_students"`
}
