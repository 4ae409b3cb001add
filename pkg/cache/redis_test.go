package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "eduorg:tenant:acme", Key("tenant", "acme"))
	assert.Equal(t, "eduorg:certificate:verify:CERT-ABCD-2024-0001", Key("certificate", "verify", "CERT-ABCD-2024-0001"))
}
