package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eduorg-api/internal/models"
)

// CertificateStore is the set of certificate operations available inside a transaction.
type CertificateStore interface {
	LockSequence(ctx context.Context, prefix string) error
	LastSequence(ctx context.Context, prefix string) (int, error)
	ExistsLive(ctx context.Context, tenantID, enrollmentID string) (bool, error)
	Create(ctx context.Context, certificate *models.Certificate) error
}

// CertificateRepository handles persistence of certificates.
type CertificateRepository struct {
	db *sqlx.DB
	q  queryer
}

// NewCertificateRepository constructs the repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db, q: db}
}

// WithinTx runs fn with a store bound to a single transaction.
func (r *CertificateRepository) WithinTx(ctx context.Context, fn func(store CertificateStore) error) error {
	if inTx(r.q) {
		return fn(r)
	}
	return runInTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return fn(&CertificateRepository{db: r.db, q: tx})
	})
}

const certificateNumberKey = "certificates_certificate_number_key"

const certificateColumns = `c.id, c.tenant_id, c.enrollment_id, c.certificate_number, c.title, c.status, c.file_path, c.generated_at,
c.issued_at, c.expiration_date, c.revoked_at, c.revocation_reason, c.created_at, c.updated_at`

const certificateDetailSelect = `SELECT ` + certificateColumns + `,
e.student_id, (p.first_name || ' ' || p.last_name) AS holder_name, p.email AS holder_email,
co.name AS course_name, ci.name AS instance_name, e.completion_date
FROM certificates c
JOIN enrollments e ON e.id = c.enrollment_id AND e.tenant_id = c.tenant_id
JOIN persons p ON p.id = e.student_id AND p.tenant_id = e.tenant_id
JOIN course_instances ci ON ci.id = e.course_instance_id AND ci.tenant_id = e.tenant_id
JOIN courses co ON co.id = ci.course_id AND co.tenant_id = ci.tenant_id`

// LockSequence serializes number allocation for a number prefix
// (CERT-{TENANT4}-{YEAR}) until the transaction ends.
func (r *CertificateRepository) LockSequence(ctx context.Context, prefix string) error {
	if _, err := r.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "certificate:"+prefix); err != nil {
		return fmt.Errorf("lock certificate sequence: %w", err)
	}
	return nil
}

// LastSequence returns the highest sequence allocated under prefix across all
// tenants, or 0 when none exists.
func (r *CertificateRepository) LastSequence(ctx context.Context, prefix string) (int, error) {
	const query = `SELECT COALESCE(MAX(CAST(split_part(certificate_number, '-', 4) AS INTEGER)), 0)
FROM certificates WHERE certificate_number LIKE $1`
	var last int
	if err := r.q.GetContext(ctx, &last, query, prefix+"-%"); err != nil {
		return 0, fmt.Errorf("last certificate sequence: %w", err)
	}
	return last, nil
}

// ExistsLive reports whether the enrollment already has a non-revoked certificate.
func (r *CertificateRepository) ExistsLive(ctx context.Context, tenantID, enrollmentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM certificates WHERE tenant_id = $1 AND enrollment_id = $2 AND status <> $3)`
	var exists bool
	if err := r.q.GetContext(ctx, &exists, query, tenantID, enrollmentID, models.CertificateStatusRevoked); err != nil {
		return false, fmt.Errorf("check live certificate: %w", err)
	}
	return exists, nil
}

// Create inserts a certificate. CreatedAt is kept when preset so the row lands in
// the year its number was allocated for.
func (r *CertificateRepository) Create(ctx context.Context, certificate *models.Certificate) error {
	if certificate.ID == "" {
		certificate.ID = uuid.NewString()
	}
	if certificate.CreatedAt.IsZero() {
		certificate.CreatedAt = time.Now().UTC()
	}
	certificate.UpdatedAt = certificate.CreatedAt
	const query = `INSERT INTO certificates (id, tenant_id, enrollment_id, certificate_number, title, status, expiration_date, created_at, updated_at)
VALUES (:id, :tenant_id, :enrollment_id, :certificate_number, :title, :status, :expiration_date, :created_at, :updated_at)`
	if _, err := r.q.NamedExecContext(ctx, query, certificate); err != nil {
		if violatedConstraint(err) == certificateNumberKey {
			return fmt.Errorf("insert certificate: %w", ErrNumberTaken)
		}
		return writeErr("insert certificate", err)
	}
	return nil
}

// FindDetailByID returns a certificate with its holder and course.
func (r *CertificateRepository) FindDetailByID(ctx context.Context, tenantID, id string) (*models.CertificateDetail, error) {
	var detail models.CertificateDetail
	if err := r.q.GetContext(ctx, &detail, certificateDetailSelect+` WHERE c.tenant_id = $1 AND c.id = $2`, tenantID, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindDetailByNumber looks a certificate up by its globally unique number.
func (r *CertificateRepository) FindDetailByNumber(ctx context.Context, number string) (*models.CertificateDetail, error) {
	var detail models.CertificateDetail
	if err := r.q.GetContext(ctx, &detail, certificateDetailSelect+` WHERE c.certificate_number = $1`, number); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns certificates matching the filter.
func (r *CertificateRepository) List(ctx context.Context, tenantID string, filter models.CertificateFilter) ([]models.Certificate, int, error) {
	conditions := []string{"c.tenant_id = $1"}
	args := []interface{}{tenantID}
	if filter.EnrollmentID != "" {
		args = append(args, filter.EnrollmentID)
		conditions = append(conditions, fmt.Sprintf("c.enrollment_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	order := orderClause(map[string]string{"created_at": "c.created_at", "number": "c.certificate_number"}, filter.SortBy, "created_at", filter.SortOrder, "DESC")
	_, size, offset := filter.Normalize()

	var certificates []models.Certificate
	query := fmt.Sprintf(`SELECT %s FROM certificates c%s ORDER BY %s, c.id LIMIT %d OFFSET %d`, certificateColumns, where, order, size, offset)
	if err := r.q.SelectContext(ctx, &certificates, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list certificates: %w", err)
	}
	var total int
	if err := r.q.GetContext(ctx, &total, `SELECT COUNT(*) FROM certificates c`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count certificates: %w", err)
	}
	return certificates, total, nil
}

// MarkGenerated records the rendered file and flips PENDING to GENERATED.
func (r *CertificateRepository) MarkGenerated(ctx context.Context, tenantID, id, filePath string, at time.Time) error {
	const query = `UPDATE certificates SET status = $4, file_path = $5, generated_at = $6, updated_at = $6
WHERE tenant_id = $1 AND id = $2 AND status = $3`
	res, err := r.q.ExecContext(ctx, query, tenantID, id, models.CertificateStatusPending, models.CertificateStatusGenerated, filePath, at)
	if err != nil {
		return fmt.Errorf("mark certificate generated: %w", err)
	}
	return staleIfNone(res, "mark certificate generated")
}

// MarkIssued flips GENERATED to ISSUED.
func (r *CertificateRepository) MarkIssued(ctx context.Context, tenantID, id string, at time.Time) error {
	const query = `UPDATE certificates SET status = $4, issued_at = $5, updated_at = $5
WHERE tenant_id = $1 AND id = $2 AND status = $3`
	res, err := r.q.ExecContext(ctx, query, tenantID, id, models.CertificateStatusGenerated, models.CertificateStatusIssued, at)
	if err != nil {
		return fmt.Errorf("mark certificate issued: %w", err)
	}
	return staleIfNone(res, "mark certificate issued")
}

// MarkRevoked revokes a certificate that is not revoked yet.
func (r *CertificateRepository) MarkRevoked(ctx context.Context, tenantID, id, reason string, at time.Time) error {
	const query = `UPDATE certificates SET status = $3, revoked_at = $4, revocation_reason = $5, updated_at = $4
WHERE tenant_id = $1 AND id = $2 AND status <> $3`
	res, err := r.q.ExecContext(ctx, query, tenantID, id, models.CertificateStatusRevoked, at, reason)
	if err != nil {
		return fmt.Errorf("revoke certificate: %w", err)
	}
	return staleIfNone(res, "revoke certificate")
}
