package models

import "time"

// Schedule is a recurring weekly session slot of a course instance.
type Schedule struct {
	ID               string     `db:"id" json:"id"`
	TenantID         string     `db:"tenant_id" json:"tenant_id"`
	CourseInstanceID string     `db:"course_instance_id" json:"course_instance_id"`
	DayOfWeek        int        `db:"day_of_week" json:"day_of_week"`
	StartTime        string     `db:"start_time" json:"start_time"`
	EndTime          string     `db:"end_time" json:"end_time"`
	Room             *string    `db:"room" json:"room,omitempty"`
	EffectiveFrom    *time.Time `db:"effective_from" json:"effective_from,omitempty"`
	EffectiveUntil   *time.Time `db:"effective_until" json:"effective_until,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// ScheduleFilter captures list criteria for schedules.
type ScheduleFilter struct {
	CourseInstanceID string
	Room             string
	DayOfWeek        *int
	PageRequest
}

// CreateScheduleRequest is the payload for adding a session slot.
type CreateScheduleRequest struct {
	CourseInstanceID string     `json:"course_instance_id" validate:"required,uuid"`
	DayOfWeek        int        `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime        string     `json:"start_time" validate:"required,datetime=15:04"`
	EndTime          string     `json:"end_time" validate:"required,datetime=15:04"`
	Room             *string    `json:"room" validate:"omitempty,max=100"`
	EffectiveFrom    *time.Time `json:"effective_from"`
	EffectiveUntil   *time.Time `json:"effective_until"`
}
