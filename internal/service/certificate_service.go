package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/repository"
	"github.com/noah-isme/eduorg-api/pkg/cache"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/export"
	"github.com/noah-isme/eduorg-api/pkg/jobs"
	"github.com/noah-isme/eduorg-api/pkg/sanitize"
)

// JobTypeCertificateRender is the queue job type that renders a pending certificate.
const JobTypeCertificateRender = "certificate.render"

type certificateRepository interface {
	WithinTx(ctx context.Context, fn func(store repository.CertificateStore) error) error
	FindDetailByID(ctx context.Context, tenantID, id string) (*models.CertificateDetail, error)
	FindDetailByNumber(ctx context.Context, number string) (*models.CertificateDetail, error)
	List(ctx context.Context, tenantID string, filter models.CertificateFilter) ([]models.Certificate, int, error)
	MarkGenerated(ctx context.Context, tenantID, id, filePath string, at time.Time) error
	MarkIssued(ctx context.Context, tenantID, id string, at time.Time) error
	MarkRevoked(ctx context.Context, tenantID, id, reason string, at time.Time) error
}

type certificateRenderer interface {
	Render(doc export.CertificateDocument) ([]byte, error)
}

type fileStore interface {
	Save(relPath string, data []byte) (string, error)
	Open(relPath string) (*os.File, error)
}

type urlSigner interface {
	Generate(resourceID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (resourceID, relPath string, expiresAt time.Time, err error)
}

type issueNotifier interface {
	CertificateIssued(ctx context.Context, detail *models.CertificateDetail)
}

// CertificateOptions configures URLs and caching for certificates.
type CertificateOptions struct {
	DownloadURL    string
	VerifyCacheTTL time.Duration
}

// CertificateFile is an opened certificate document ready to stream.
type CertificateFile struct {
	Filename string
	File     *os.File
}

// CertificateService numbers, renders, issues, revokes and verifies certificates.
type CertificateService struct {
	repo        certificateRepository
	enrollments enrollmentFinder
	renderer    certificateRenderer
	storage     fileStore
	signer      urlSigner
	queue       jobEnqueuer
	notifier    issueNotifier
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	opts        CertificateOptions
	now         func() time.Time
}

// NewCertificateService wires the service. A nil queue renders inline.
func NewCertificateService(
	repo certificateRepository,
	enrollments enrollmentFinder,
	renderer certificateRenderer,
	storage fileStore,
	signer urlSigner,
	queue jobEnqueuer,
	notifier issueNotifier,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	opts CertificateOptions,
) *CertificateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		repo:        repo,
		enrollments: enrollments,
		renderer:    renderer,
		storage:     storage,
		signer:      signer,
		queue:       queue,
		notifier:    notifier,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		opts:        opts,
		now:         time.Now,
	}
}

// CertificateNumber formats the public number for a tenant, year and sequence.
func CertificateNumber(tenantID string, year, seq int) string {
	return fmt.Sprintf("%s-%04d", CertificateNumberPrefix(tenantID, year), seq)
}

// CertificateNumberPrefix is the CERT-{TENANT4}-{YEAR} part shared by every
// number of a tenant and year. Tenants whose ids start alike share a prefix,
// so sequences are allocated per prefix, not per tenant.
func CertificateNumberPrefix(tenantID string, year int) string {
	prefix := tenantID
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return fmt.Sprintf("CERT-%s-%d", strings.ToUpper(prefix), year)
}

// List returns certificates matching the filter.
func (s *CertificateService) List(ctx context.Context, tenantID string, filter models.CertificateFilter) ([]models.Certificate, *models.Pagination, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list certificates")
	}
	return items, filter.Pagination(total), nil
}

// Get returns a certificate with holder details.
func (s *CertificateService) Get(ctx context.Context, tenantID, id string) (*models.CertificateDetail, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	detail, err := s.repo.FindDetailByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "certificate not found", "failed to load certificate")
	}
	return detail, nil
}

// Generate allocates a number for a completed enrollment and schedules rendering.
func (s *CertificateService) Generate(ctx context.Context, tenantID string, req models.GenerateCertificateRequest) (*models.Certificate, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid certificate payload")
	}
	enrollment, err := s.enrollments.FindByID(ctx, tenantID, req.EnrollmentID)
	if err != nil {
		return nil, lookupErr(err, "enrollment not found", "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusCompleted {
		return nil, badRequest("enrollment not completed")
	}

	now := s.now().UTC()
	certificate := &models.Certificate{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		EnrollmentID:   enrollment.ID,
		Title:          sanitize.OptionalText(req.Title),
		Status:         models.CertificateStatusPending,
		ExpirationDate: req.ExpirationDate,
		CreatedAt:      now,
	}
	prefix := CertificateNumberPrefix(tenantID, now.Year())
	err = s.repo.WithinTx(ctx, func(store repository.CertificateStore) error {
		if err := store.LockSequence(ctx, prefix); err != nil {
			return appErrors.Internal(err, "failed to allocate certificate number")
		}
		exists, err := store.ExistsLive(ctx, tenantID, enrollment.ID)
		if err != nil {
			return appErrors.Internal(err, "failed to check existing certificate")
		}
		if exists {
			return conflict("enrollment already has a certificate")
		}
		last, err := store.LastSequence(ctx, prefix)
		if err != nil {
			return appErrors.Internal(err, "failed to allocate certificate number")
		}
		certificate.CertificateNumber = fmt.Sprintf("%s-%04d", prefix, last+1)
		if err := store.Create(ctx, certificate); err != nil {
			if errors.Is(err, repository.ErrNumberTaken) {
				return appErrors.Internal(err, "certificate number "+certificate.CertificateNumber+" already allocated")
			}
			return writeErr(err, "enrollment already has a certificate", "failed to create certificate")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCertificate(models.CertificateStatusPending)
	s.logger.Info("certificate allocated",
		zap.String("tenant_id", tenantID),
		zap.String("certificate_id", certificate.ID),
		zap.String("number", certificate.CertificateNumber),
	)
	s.scheduleRender(ctx, tenantID, certificate.ID)
	return certificate, nil
}

func (s *CertificateService) scheduleRender(ctx context.Context, tenantID, id string) {
	if s.queue == nil {
		if err := s.render(ctx, tenantID, id); err != nil {
			s.logger.Error("certificate render failed", zap.String("certificate_id", id), zap.Error(err))
		}
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeCertificateRender, TenantID: tenantID, Payload: id}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("certificate render enqueue failed", zap.String("certificate_id", id), zap.Error(err))
	}
}

// HandleRender is the queue handler for JobTypeCertificateRender.
func (s *CertificateService) HandleRender(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok || id == "" {
		s.logger.Error("unexpected certificate job payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.render(ctx, job.TenantID, id)
}

// OnRenderDrop logs a render job that exhausted its retries.
func (s *CertificateService) OnRenderDrop(job jobs.Job, err error) {
	s.logger.Error("certificate render dropped",
		zap.String("tenant_id", job.TenantID),
		zap.Any("certificate_id", job.Payload),
		zap.Int("attempt", job.Attempt),
		zap.Error(err),
	)
}

// Retry re-schedules rendering for a certificate still PENDING.
func (s *CertificateService) Retry(ctx context.Context, tenantID, id string) error {
	detail, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if detail.Status != models.CertificateStatusPending {
		return badRequest("certificate is not pending")
	}
	s.scheduleRender(ctx, tenantID, id)
	return nil
}

func (s *CertificateService) render(ctx context.Context, tenantID, id string) error {
	detail, err := s.repo.FindDetailByID(ctx, tenantID, id)
	if err != nil {
		return fmt.Errorf("load certificate %s: %w", id, err)
	}
	if detail.Status != models.CertificateStatusPending {
		return nil
	}
	now := s.now().UTC()
	doc := export.CertificateDocument{
		Number:         detail.CertificateNumber,
		HolderName:     detail.HolderName,
		CourseName:     detail.CourseName,
		InstanceName:   detail.InstanceName,
		OrganizationID: tenantID,
		CompletedAt:    detail.CompletionDate,
		GeneratedAt:    now,
		ExpiresAt:      detail.ExpirationDate,
	}
	if detail.Title != nil {
		doc.Title = *detail.Title
	}
	data, err := s.renderer.Render(doc)
	if err != nil {
		return fmt.Errorf("render certificate %s: %w", id, err)
	}
	relPath := fmt.Sprintf("%s/%d/%s.pdf", tenantID, detail.CreatedAt.Year(), detail.CertificateNumber)
	if _, err := s.storage.Save(relPath, data); err != nil {
		return fmt.Errorf("store certificate %s: %w", id, err)
	}
	if err := s.repo.MarkGenerated(ctx, tenantID, id, relPath, now); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil
		}
		return err
	}
	s.metrics.RecordCertificate(models.CertificateStatusGenerated)
	s.logger.Info("certificate generated", zap.String("tenant_id", tenantID), zap.String("certificate_id", id))
	return nil
}

// Issue marks a generated certificate issued and emails the holder.
func (s *CertificateService) Issue(ctx context.Context, tenantID, id string) (*models.CertificateDetail, error) {
	detail, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if detail.Status != models.CertificateStatusGenerated {
		return nil, badRequest("certificate must be generated before it is issued")
	}
	now := s.now().UTC()
	if err := s.repo.MarkIssued(ctx, tenantID, id, now); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil, conflict("certificate changed concurrently")
		}
		return nil, appErrors.Internal(err, "failed to issue certificate")
	}
	detail.Status = models.CertificateStatusIssued
	detail.IssuedAt = &now
	detail.UpdatedAt = now
	s.cache.Delete(ctx, verifyCacheKey(detail.CertificateNumber))
	s.metrics.RecordCertificate(models.CertificateStatusIssued)
	if s.notifier != nil {
		s.notifier.CertificateIssued(ctx, detail)
	}
	return detail, nil
}

// Revoke revokes a certificate and drops its cached verification.
func (s *CertificateService) Revoke(ctx context.Context, tenantID, id string, req models.RevokeCertificateRequest) (*models.CertificateDetail, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid revocation payload")
	}
	reason := sanitize.Text(req.Reason)
	if reason == "" {
		return nil, badRequest("revocation reason required")
	}
	detail, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if detail.Status == models.CertificateStatusRevoked {
		return nil, conflict("certificate already revoked")
	}
	now := s.now().UTC()
	if err := s.repo.MarkRevoked(ctx, tenantID, id, reason, now); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil, conflict("certificate already revoked")
		}
		return nil, appErrors.Internal(err, "failed to revoke certificate")
	}
	detail.Status = models.CertificateStatusRevoked
	detail.RevokedAt = &now
	detail.RevocationReason = &reason
	detail.UpdatedAt = now
	s.cache.Delete(ctx, verifyCacheKey(detail.CertificateNumber))
	s.metrics.RecordCertificate(models.CertificateStatusRevoked)
	return detail, nil
}

// Verify checks a certificate number. Unknown numbers are NotFound; known ones
// report validity with a reason.
func (s *CertificateService) Verify(ctx context.Context, number string) (*models.CertificateVerification, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, badRequest("certificate number required")
	}
	key := verifyCacheKey(number)
	var result models.CertificateVerification
	if !s.cache.Get(ctx, key, &result) {
		detail, err := s.repo.FindDetailByNumber(ctx, number)
		if err != nil {
			return nil, lookupErr(err, "certificate not found", "failed to verify certificate")
		}
		result = models.CertificateVerification{
			CertificateNumber: detail.CertificateNumber,
			IsValid:           detail.Status != models.CertificateStatusRevoked,
			HolderName:        detail.HolderName,
			CourseName:        detail.CourseName,
			IssuedAt:          detail.IssuedAt,
			ExpirationDate:    detail.ExpirationDate,
			RevokedAt:         detail.RevokedAt,
		}
		if !result.IsValid {
			result.Reason = models.CertificateReasonRevoked
		}
		s.cache.Set(ctx, key, result, s.opts.VerifyCacheTTL)
	}
	// expiry is evaluated on every read so a cached verdict cannot outlive it
	if result.IsValid && result.ExpirationDate != nil && result.ExpirationDate.Before(s.now()) {
		result.IsValid = false
		result.Reason = models.CertificateReasonExpired
	}
	return &result, nil
}

// DownloadURL returns a signed, expiring link to the rendered document.
func (s *CertificateService) DownloadURL(ctx context.Context, tenantID, id string) (*models.CertificateDownload, error) {
	detail, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if detail.Status == models.CertificateStatusRevoked {
		return nil, badRequest("certificate revoked")
	}
	if detail.FilePath == nil {
		return nil, badRequest("certificate document not generated yet")
	}
	token, expiresAt, err := s.signer.Generate(tenantID+":"+id, *detail.FilePath)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign download link")
	}
	return &models.CertificateDownload{
		URL:       s.opts.DownloadURL + "?token=" + url.QueryEscape(token),
		ExpiresAt: expiresAt,
	}, nil
}

// OpenDownload resolves a signed token to the stored document. The caller
// closes the returned file.
func (s *CertificateService) OpenDownload(ctx context.Context, token string) (*CertificateFile, error) {
	resource, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	tenantID, id, ok := strings.Cut(resource, ":")
	if !ok || tenantID == "" || id == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}
	detail, err := s.repo.FindDetailByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "certificate not found", "failed to load certificate")
	}
	if detail.Status == models.CertificateStatusRevoked {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "certificate revoked")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to open certificate document")
	}
	return &CertificateFile{Filename: detail.CertificateNumber + ".pdf", File: file}, nil
}

func verifyCacheKey(number string) string {
	return cache.Key("certificate", "verify", number)
}
