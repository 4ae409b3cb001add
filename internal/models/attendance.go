package models

import "time"

// AttendanceStatus is the outcome recorded for a session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceExcused AttendanceStatus = "EXCUSED"
)

// AttendanceRecord is a student's attendance for one session.
type AttendanceRecord struct {
	ID           string           `db:"id" json:"id"`
	TenantID     string           `db:"tenant_id" json:"tenant_id"`
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	ScheduleID   *string          `db:"schedule_id" json:"schedule_id,omitempty"`
	SessionDate  time.Time        `db:"session_date" json:"session_date"`
	Status       AttendanceStatus `db:"status" json:"status"`
	Notes        *string          `db:"notes" json:"notes,omitempty"`
	RecordedBy   *string          `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter captures list criteria for attendance records.
type AttendanceFilter struct {
	EnrollmentID     string
	CourseInstanceID string
	ScheduleID       string
	Status           AttendanceStatus
	DateFrom         *time.Time
	DateTo           *time.Time
	PageRequest
}

// RecordAttendanceRequest records attendance for a session.
type RecordAttendanceRequest struct {
	EnrollmentID string           `json:"enrollment_id" validate:"required,uuid"`
	ScheduleID   *string          `json:"schedule_id" validate:"omitempty,uuid"`
	SessionDate  time.Time        `json:"session_date" validate:"required"`
	Status       AttendanceStatus `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EXCUSED"`
	Notes        *string          `json:"notes" validate:"omitempty,max=1000"`
}

// UpdateAttendanceRequest changes the status or notes of a record.
type UpdateAttendanceRequest struct {
	Status *AttendanceStatus `json:"status" validate:"omitempty,oneof=PRESENT ABSENT LATE EXCUSED"`
	Notes  *string           `json:"notes" validate:"omitempty,max=1000"`
}

// AttendanceCount is a per-status tally.
type AttendanceCount struct {
	Status AttendanceStatus `db:"status"`
	Total  int              `db:"total"`
}

// AttendanceSummary aggregates an enrollment's attendance.
type AttendanceSummary struct {
	EnrollmentID   string  `json:"enrollment_id"`
	Total          int     `json:"total"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Late           int     `json:"late"`
	Excused        int     `json:"excused"`
	AttendanceRate float64 `json:"attendance_rate"`
}
