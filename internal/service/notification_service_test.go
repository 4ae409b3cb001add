package service

import (
	"context"
	"errors"
	netmail "net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/pkg/jobs"
	"github.com/noah-isme/eduorg-api/pkg/mail"
)

type recordingSender struct {
	sent []mail.Message
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg mail.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

type capturingQueue struct {
	jobs []jobs.Job
}

func (q *capturingQueue) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func TestRenderNotificationTemplates(t *testing.T) {
	to := netmail.Address{Name: "Ada", Address: "ada@example.com"}

	msg, err := renderNotification(Notification{Template: TemplatePasswordReset, To: to, Data: map[string]string{"name": "Ada", "link": "https://app/reset?token=x"}})
	require.NoError(t, err)
	assert.Equal(t, "Reset your password", msg.Subject)
	assert.Contains(t, msg.Text, "https://app/reset?token=x")

	_, err = renderNotification(Notification{Template: "nope", To: to})
	assert.Error(t, err)

	_, err = renderNotification(Notification{Template: TemplateWelcome})
	assert.Error(t, err)
}

func TestNotificationServiceDeliversInline(t *testing.T) {
	sender := &recordingSender{}
	svc := NewNotificationService(nil, sender, nil, "https://app.example.com/", nil, zap.NewNop())

	svc.CertificateIssued(context.Background(), &models.CertificateDetail{
		Certificate: models.Certificate{TenantID: testTenant, CertificateNumber: "CERT-ABCD-2024-0001"},
		HolderName:  "Ada Lovelace",
		HolderEmail: "ada@example.com",
		CourseName:  "Engines",
	})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ada@example.com", sender.sent[0].To[0].Address)
	assert.Contains(t, sender.sent[0].Text, "https://app.example.com/certificates/verify/CERT-ABCD-2024-0001")
}

func TestNotificationServiceQueuesAndHandles(t *testing.T) {
	queue := &capturingQueue{}
	sender := &recordingSender{}
	svc := NewNotificationService(queue, sender, nil, "https://app.example.com", nil, zap.NewNop())

	svc.PasswordReset(context.Background(), &models.User{TenantID: testTenant, Email: "ada@example.com", FullName: "Ada"}, "tok en")
	require.Len(t, queue.jobs, 1)
	job := queue.jobs[0]
	assert.Equal(t, JobTypeNotification, job.Type)
	assert.Equal(t, testTenant, job.TenantID)
	assert.Empty(t, sender.sent)

	require.NoError(t, svc.Handle(context.Background(), job))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "reset-password?token=tok+en")

	sender.err = errors.New("provider down")
	assert.Error(t, svc.Handle(context.Background(), job))
}

func TestNotificationServiceSkipsMissingRecipient(t *testing.T) {
	queue := &capturingQueue{}
	svc := NewNotificationService(queue, nil, nil, "", nil, zap.NewNop())

	svc.Welcome(context.Background(), &models.User{TenantID: testTenant, FullName: "No Mail"})
	assert.Empty(t, queue.jobs)

	var nilSvc *NotificationService
	assert.NotPanics(t, func() { nilSvc.Welcome(context.Background(), &models.User{Email: "a@b.c"}) })
}

func TestNotificationServiceWaitlistPromoted(t *testing.T) {
	sender := &recordingSender{}
	people := newFakePeople(models.Person{ID: "p-1", TenantID: testTenant, FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"})
	svc := NewNotificationService(nil, sender, people, "", nil, zap.NewNop())

	svc.WaitlistPromoted(context.Background(), testTenant, "Spring cohort", []models.Enrollment{
		{ID: "e-1", StudentID: "p-1"},
		{ID: "e-2", StudentID: "missing"},
	})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "You have a seat", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Text, "Spring cohort")
}
