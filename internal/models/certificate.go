package models

import "time"

// CertificateStatus is the lifecycle state of a certificate.
type CertificateStatus string

const (
	CertificateStatusPending   CertificateStatus = "PENDING"
	CertificateStatusGenerated CertificateStatus = "GENERATED"
	CertificateStatusIssued    CertificateStatus = "ISSUED"
	CertificateStatusRevoked   CertificateStatus = "REVOKED"
)

// Verification failure reasons.
const (
	CertificateReasonRevoked = "revoked"
	CertificateReasonExpired = "expired"
)

// Certificate is a credential tied to one completed enrollment.
type Certificate struct {
	ID                string            `db:"id" json:"id"`
	TenantID          string            `db:"tenant_id" json:"tenant_id"`
	EnrollmentID      string            `db:"enrollment_id" json:"enrollment_id"`
	CertificateNumber string            `db:"certificate_number" json:"certificate_number"`
	Title             *string           `db:"title" json:"title,omitempty"`
	Status            CertificateStatus `db:"status" json:"status"`
	FilePath          *string           `db:"file_path" json:"-"`
	GeneratedAt       *time.Time        `db:"generated_at" json:"generated_at,omitempty"`
	IssuedAt          *time.Time        `db:"issued_at" json:"issued_at,omitempty"`
	ExpirationDate    *time.Time        `db:"expiration_date" json:"expiration_date,omitempty"`
	RevokedAt         *time.Time        `db:"revoked_at" json:"revoked_at,omitempty"`
	RevocationReason  *string           `db:"revocation_reason" json:"revocation_reason,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// CertificateDetail joins the data printed on the document.
type CertificateDetail struct {
	Certificate
	StudentID      string     `db:"student_id" json:"student_id"`
	HolderName     string     `db:"holder_name" json:"holder_name"`
	HolderEmail    string     `db:"holder_email" json:"-"`
	CourseName     string     `db:"course_name" json:"course_name"`
	InstanceName   string     `db:"instance_name" json:"instance_name"`
	CompletionDate *time.Time `db:"completion_date" json:"completion_date,omitempty"`
}

// CertificateFilter captures list criteria for certificates.
type CertificateFilter struct {
	EnrollmentID string
	Status       CertificateStatus
	PageRequest
}

// GenerateCertificateRequest creates a certificate for a completed enrollment.
type GenerateCertificateRequest struct {
	EnrollmentID   string     `json:"enrollment_id" validate:"required,uuid"`
	Title          *string    `json:"title" validate:"omitempty,max=200"`
	ExpirationDate *time.Time `json:"expiration_date"`
}

// RevokeCertificateRequest revokes a certificate.
type RevokeCertificateRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// CertificateVerification is the public verification result.
type CertificateVerification struct {
	CertificateNumber string     `json:"certificate_number"`
	IsValid           bool       `json:"is_valid"`
	Reason            string     `json:"reason,omitempty"`
	HolderName        string     `json:"holder_name,omitempty"`
	CourseName        string     `json:"course_name,omitempty"`
	IssuedAt          *time.Time `json:"issued_at,omitempty"`
	ExpirationDate    *time.Time `json:"expiration_date,omitempty"`
	RevokedAt         *time.Time `json:"revoked_at,omitempty"`
}

// CertificateDownload is a signed link to the rendered document.
type CertificateDownload struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
