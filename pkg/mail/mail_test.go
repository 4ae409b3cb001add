package mail

import (
	"context"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageValidate(t *testing.T) {
	require.Error(t, Message{Subject: "hi", Text: "body"}.Validate())
	require.Error(t, Message{To: []mail.Address{{Address: ""}}, Text: "body"}.Validate())
	require.Error(t, Message{To: []mail.Address{{Address: "a@b.c"}}}.Validate())
	require.NoError(t, Message{To: []mail.Address{{Address: "a@b.c"}}, HTML: "<p>x</p>"}.Validate())
}

func TestLogSenderRecords(t *testing.T) {
	s := NewLogSender(nil)
	err := s.Send(context.Background(), Message{To: []mail.Address{{Name: "Ada", Address: "ada@example.com"}}, Subject: "Welcome", Text: "hello"})
	require.NoError(t, err)
	sent := s.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Welcome", sent[0].Subject)
}

func TestSendGridSenderPrepare(t *testing.T) {
	s := NewSendGridSender("key", "EduOrg", "no-reply@example.com")
	m := s.prepare(Message{To: []mail.Address{{Name: "Ada", Address: "ada@example.com"}}, Subject: "Welcome", Text: "hello"})
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[EduOrg] Welcome", m.Personalizations[0].Subject)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}
