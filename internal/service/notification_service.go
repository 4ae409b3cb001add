package service

import (
	"bytes"
	"context"
	"fmt"
	netmail "net/mail"
	"net/url"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/pkg/jobs"
	"github.com/noah-isme/eduorg-api/pkg/mail"
)

// JobTypeNotification is the queue job type for outbound email.
const JobTypeNotification = "notification.send"

// Notification templates.
const (
	TemplateWelcome           = "welcome"
	TemplatePasswordReset     = "password_reset"
	TemplateCertificateIssued = "certificate_issued"
	TemplateWaitlistPromotion = "waitlist_promotion"
)

// Notification is the queued payload for one templated email.
type Notification struct {
	Template string
	To       netmail.Address
	Data     map[string]string
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type personReader interface {
	FindByID(ctx context.Context, tenantID, id string, includeDeleted bool) (*models.Person, error)
}

// NotificationService renders templated mail and hands it to the queue.
// Nothing it does is allowed to fail the calling operation.
type NotificationService struct {
	queue   jobEnqueuer
	sender  mail.Sender
	people  personReader
	baseURL string
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService wires the service. A nil queue delivers inline.
func NewNotificationService(queue jobEnqueuer, sender mail.Sender, people personReader, baseURL string, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		queue:   queue,
		sender:  sender,
		people:  people,
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// Handle is the queue handler for JobTypeNotification.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.deliver(ctx, n)
}

// OnDrop records a notification that exhausted its retries.
func (s *NotificationService) OnDrop(job jobs.Job, err error) {
	template := "unknown"
	if n, ok := job.Payload.(Notification); ok {
		template = n.Template
	}
	s.metrics.RecordNotification(template, "dropped")
}

// Notify queues n. Failures are logged and counted only.
func (s *NotificationService) Notify(ctx context.Context, tenantID string, n Notification) {
	if s == nil {
		return
	}
	if strings.TrimSpace(n.To.Address) == "" {
		s.logger.Warn("notification without recipient", zap.String("template", n.Template), zap.String("tenant_id", tenantID))
		return
	}
	if s.queue == nil {
		if err := s.deliver(ctx, n); err != nil {
			s.logger.Warn("notification send failed", zap.String("template", n.Template), zap.String("tenant_id", tenantID), zap.Error(err))
		}
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeNotification, TenantID: tenantID, Payload: n}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordNotification(n.Template, "dropped")
		s.logger.Warn("notification enqueue failed", zap.String("template", n.Template), zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

// Welcome greets a newly registered user.
func (s *NotificationService) Welcome(ctx context.Context, user *models.User) {
	if s == nil || user == nil {
		return
	}
	s.Notify(ctx, user.TenantID, Notification{
		Template: TemplateWelcome,
		To:       netmail.Address{Name: user.FullName, Address: user.Email},
		Data:     map[string]string{"name": user.FullName},
	})
}

// PasswordReset mails the reset link carrying token.
func (s *NotificationService) PasswordReset(ctx context.Context, user *models.User, token string) {
	if s == nil || user == nil {
		return
	}
	link := s.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	s.Notify(ctx, user.TenantID, Notification{
		Template: TemplatePasswordReset,
		To:       netmail.Address{Name: user.FullName, Address: user.Email},
		Data:     map[string]string{"name": user.FullName, "link": link},
	})
}

// CertificateIssued tells the holder their certificate is available.
func (s *NotificationService) CertificateIssued(ctx context.Context, detail *models.CertificateDetail) {
	if s == nil || detail == nil {
		return
	}
	s.Notify(ctx, detail.TenantID, Notification{
		Template: TemplateCertificateIssued,
		To:       netmail.Address{Name: detail.HolderName, Address: detail.HolderEmail},
		Data: map[string]string{
			"name":   detail.HolderName,
			"course": detail.CourseName,
			"number": detail.CertificateNumber,
			"link":   s.baseURL + "/certificates/verify/" + url.PathEscape(detail.CertificateNumber),
		},
	})
}

// WaitlistPromoted notifies each promoted student.
func (s *NotificationService) WaitlistPromoted(ctx context.Context, tenantID, instanceName string, promoted []models.Enrollment) {
	if s == nil || s.people == nil {
		return
	}
	for _, enrollment := range promoted {
		person, err := s.people.FindByID(ctx, tenantID, enrollment.StudentID, false)
		if err != nil {
			s.logger.Warn("promotion notice skipped", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
			continue
		}
		s.Notify(ctx, tenantID, Notification{
			Template: TemplateWaitlistPromotion,
			To:       netmail.Address{Name: person.FullName(), Address: person.Email},
			Data:     map[string]string{"name": person.FullName(), "course": instanceName},
		})
	}
}

func (s *NotificationService) deliver(ctx context.Context, n Notification) error {
	msg, err := renderNotification(n)
	if err != nil {
		s.metrics.RecordNotification(n.Template, "failed")
		s.logger.Error("notification render failed", zap.String("template", n.Template), zap.Error(err))
		return nil
	}
	if s.sender == nil {
		return nil
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.RecordNotification(n.Template, "failed")
		return err
	}
	s.metrics.RecordNotification(n.Template, "sent")
	return nil
}

type notificationTemplate struct {
	subject string
	body    *template.Template
}

var notificationTemplates = map[string]notificationTemplate{
	TemplateWelcome: {
		subject: "Welcome",
		body:    template.Must(template.New(TemplateWelcome).Parse("Hello {{.name}},\n\nYour account is ready.")),
	},
	TemplatePasswordReset: {
		subject: "Reset your password",
		body: template.Must(template.New(TemplatePasswordReset).Parse(
			"Hello {{.name}},\n\nUse the link below to choose a new password:\n{{.link}}\n\nIf you did not ask for this, ignore this email.")),
	},
	TemplateCertificateIssued: {
		subject: "Your certificate has been issued",
		body: template.Must(template.New(TemplateCertificateIssued).Parse(
			"Hello {{.name}},\n\nYour certificate {{.number}} for {{.course}} has been issued.\nAnyone can verify it at {{.link}}")),
	},
	TemplateWaitlistPromotion: {
		subject: "You have a seat",
		body: template.Must(template.New(TemplateWaitlistPromotion).Parse(
			"Hello {{.name}},\n\nA seat opened up and you are now enrolled in {{.course}}.")),
	},
}

func renderNotification(n Notification) (mail.Message, error) {
	tmpl, ok := notificationTemplates[n.Template]
	if !ok {
		return mail.Message{}, fmt.Errorf("unknown notification template %q", n.Template)
	}
	var body bytes.Buffer
	if err := tmpl.body.Execute(&body, n.Data); err != nil {
		return mail.Message{}, fmt.Errorf("render %s: %w", n.Template, err)
	}
	msg := mail.Message{To: []netmail.Address{n.To}, Subject: tmpl.subject, Text: body.String()}
	return msg, msg.Validate()
}
