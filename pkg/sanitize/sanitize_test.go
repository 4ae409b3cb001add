package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(""))
	assert.Equal(t, "moved away", Text("  moved away "))
	assert.Equal(t, "Hello", Text("<p>Hello</p><script>alert('x')</script>"))
	assert.Equal(t, "O'Brien & sons", Text("O'Brien & sons"))
}

func TestOptionalText(t *testing.T) {
	assert.Nil(t, OptionalText(nil))
	blank := "<b></b>"
	assert.Nil(t, OptionalText(&blank))
	reason := "<i>late</i> payment"
	got := OptionalText(&reason)
	if assert.NotNil(t, got) {
		assert.Equal(t, "late payment", *got)
	}
}
