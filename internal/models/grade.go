package models

import "time"

// Grade is a scored item belonging to one enrollment.
type Grade struct {
	ID            string     `db:"id" json:"id"`
	TenantID      string     `db:"tenant_id" json:"tenant_id"`
	EnrollmentID  string     `db:"enrollment_id" json:"enrollment_id"`
	Title         string     `db:"title" json:"title"`
	GradeType     string     `db:"grade_type" json:"grade_type"`
	Score         float64    `db:"score" json:"score"`
	MaxScore      float64    `db:"max_score" json:"max_score"`
	Weight        float64    `db:"weight" json:"weight"`
	IsDropped     bool       `db:"is_dropped" json:"is_dropped"`
	IsExtraCredit bool       `db:"is_extra_credit" json:"is_extra_credit"`
	GradedAt      time.Time  `db:"graded_at" json:"graded_at"`
	Feedback      *string    `db:"feedback" json:"feedback,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt     *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// CreateGradeRequest records a grade against an enrollment.
type CreateGradeRequest struct {
	EnrollmentID  string     `json:"enrollment_id" validate:"required,uuid"`
	Title         string     `json:"title" validate:"required,max=200"`
	GradeType     string     `json:"grade_type" validate:"required,max=64"`
	Score         float64    `json:"score" validate:"gte=0"`
	MaxScore      float64    `json:"max_score" validate:"gt=0"`
	Weight        float64    `json:"weight" validate:"gte=0,lte=100"`
	IsExtraCredit bool       `json:"is_extra_credit"`
	GradedAt      *time.Time `json:"graded_at"`
	Feedback      *string    `json:"feedback" validate:"omitempty,max=4000"`
}

// GradeTypeBreakdown aggregates grades of one type.
type GradeTypeBreakdown struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Weight  float64 `json:"weight"`
}

// GradeSummary is the aggregate over an enrollment's non-dropped grades.
type GradeSummary struct {
	EnrollmentID    string                        `json:"enrollment_id"`
	TotalGrades     int                           `json:"total_grades"`
	AverageScore    float64                       `json:"average_score"`
	WeightedAverage float64                       `json:"weighted_average"`
	LetterGrade     string                        `json:"letter_grade"`
	IsPassing       bool                          `json:"is_passing"`
	Breakdown       map[string]GradeTypeBreakdown `json:"breakdown"`
}

// GradeExportRow is one line of a course instance grade export.
type GradeExportRow struct {
	EnrollmentID string  `db:"enrollment_id"`
	FirstName    string  `db:"first_name"`
	LastName     string  `db:"last_name"`
	Email        string  `db:"email"`
	Title        string  `db:"title"`
	GradeType    string  `db:"grade_type"`
	Score        float64 `db:"score"`
	MaxScore     float64 `db:"max_score"`
	Weight       float64 `db:"weight"`
	IsDropped    bool    `db:"is_dropped"`
}
