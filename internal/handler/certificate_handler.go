package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/service"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/response"
)

type certificateService interface {
	List(ctx context.Context, tenantID string, filter models.CertificateFilter) ([]models.Certificate, *models.Pagination, error)
	Get(ctx context.Context, tenantID, id string) (*models.CertificateDetail, error)
	Generate(ctx context.Context, tenantID string, req models.GenerateCertificateRequest) (*models.Certificate, error)
	Retry(ctx context.Context, tenantID, id string) error
	Issue(ctx context.Context, tenantID, id string) (*models.CertificateDetail, error)
	Revoke(ctx context.Context, tenantID, id string, req models.RevokeCertificateRequest) (*models.CertificateDetail, error)
	Verify(ctx context.Context, number string) (*models.CertificateVerification, error)
	DownloadURL(ctx context.Context, tenantID, id string) (*models.CertificateDownload, error)
	OpenDownload(ctx context.Context, token string) (*service.CertificateFile, error)
}

// CertificateHandler exposes certificate lifecycle and public verification endpoints.
type CertificateHandler struct {
	certificates certificateService
}

// NewCertificateHandler constructs CertificateHandler.
func NewCertificateHandler(certificates certificateService) *CertificateHandler {
	return &CertificateHandler{certificates: certificates}
}

// List godoc
// @Summary List certificates
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Param enrollment_id query string false "Enrollment"
// @Param status query string false "PENDING, GENERATED, ISSUED or REVOKED"
// @Success 200 {object} response.Envelope
// @Router /academic/certificates [get]
func (h *CertificateHandler) List(c *gin.Context) {
	filter := models.CertificateFilter{
		EnrollmentID: c.Query("enrollment_id"),
		Status:       models.CertificateStatus(c.Query("status")),
		PageRequest:  pageRequest(c),
	}
	items, pagination, err := h.certificates.List(c.Request.Context(), tenantFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	listResponse(c, items, pagination)
}

// Get godoc
// @Summary Get certificate
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Router /academic/certificates/{id} [get]
func (h *CertificateHandler) Get(c *gin.Context) {
	detail, err := h.certificates.Get(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Generate godoc
// @Summary Generate certificate for a completed enrollment
// @Tags Certificates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.GenerateCertificateRequest true "Certificate payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /academic/certificates [post]
func (h *CertificateHandler) Generate(c *gin.Context) {
	var req models.GenerateCertificateRequest
	if !bindJSON(c, &req, "invalid certificate payload") {
		return
	}
	cert, err := h.certificates.Generate(c.Request.Context(), tenantFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cert)
}

// Retry godoc
// @Summary Re-render a pending certificate
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Certificate ID"
// @Success 202 {object} response.Envelope
// @Router /academic/certificates/{id}/retry [post]
func (h *CertificateHandler) Retry(c *gin.Context) {
	if err := h.certificates.Retry(c.Request.Context(), tenantFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"message": "certificate render scheduled"}, nil)
}

// Issue godoc
// @Summary Issue certificate
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /academic/certificates/{id}/issue [post]
func (h *CertificateHandler) Issue(c *gin.Context) {
	detail, err := h.certificates.Issue(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Revoke godoc
// @Summary Revoke certificate
// @Tags Certificates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Certificate ID"
// @Param payload body models.RevokeCertificateRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /academic/certificates/{id}/revoke [post]
func (h *CertificateHandler) Revoke(c *gin.Context) {
	var req models.RevokeCertificateRequest
	if !bindJSON(c, &req, "invalid revoke payload") {
		return
	}
	detail, err := h.certificates.Revoke(c.Request.Context(), tenantFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// DownloadURL godoc
// @Summary Signed download link
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Router /academic/certificates/{id}/download-url [get]
func (h *CertificateHandler) DownloadURL(c *gin.Context) {
	link, err := h.certificates.DownloadURL(c.Request.Context(), tenantFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Verify godoc
// @Summary Verify certificate number
// @Description Public endpoint; no authentication or tenant header required
// @Tags Certificates
// @Produce json
// @Param number path string true "Certificate number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificates/verify/{number} [get]
func (h *CertificateHandler) Verify(c *gin.Context) {
	result, err := h.certificates.Verify(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download certificate document
// @Tags Certificates
// @Produce application/pdf
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /certificates/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "download token required"))
		return
	}
	doc, err := h.certificates.OpenDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer doc.File.Close()

	info, err := doc.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read certificate document"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", doc.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.Filename),
	})
}
