package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	data := Dataset{Headers: []string{"student", "status"}}
	data.AddRow(map[string]string{"student": "Ada", "status": "ENROLLED"})
	data.AddRow(map[string]string{"student": "Grace"})

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "student,status\nAda,ENROLLED\nGrace,\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := Dataset{Headers: []string{"student", "status"}}
	data.AddRow(map[string]string{"student": "Ada", "status": "ENROLLED"})

	out, err := NewPDFExporter().Render(data, "Roster")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestCertificateRendererRender(t *testing.T) {
	completed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	out, err := NewCertificateRenderer().Render(CertificateDocument{
		Number:      "CERT-ABCD-2024-0001",
		HolderName:  "Ada Lovelace",
		CourseName:  "Analytical Engines",
		CompletedAt: &completed,
		GeneratedAt: completed,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewCertificateRenderer().Render(CertificateDocument{})
	require.Error(t, err)
}
