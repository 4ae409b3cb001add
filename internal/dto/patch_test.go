package dto

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
)

func TestPatchAllowRejectsUnknownFields(t *testing.T) {
	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Math","bogus":1,"other":true}`), &p))

	err := p.Allow("name", "description")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrBadRequest))
	assert.Contains(t, err.Error(), "bogus, other")

	assert.Error(t, Patch{}.Allow("name"))
}

func TestPatchDecodeAndNull(t *testing.T) {
	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Math","max_students":null,"credits":"x"}`), &p))

	require.NoError(t, p.Allow("name", "max_students", "credits"))
	assert.Equal(t, []string{"credits", "max_students", "name"}, p.Fields())

	var name string
	require.NoError(t, p.Decode("name", &name))
	assert.Equal(t, "Math", name)

	assert.True(t, p.IsNull("max_students"))
	assert.False(t, p.IsNull("name"))
	var max *int
	require.NoError(t, p.Decode("max_students", &max))
	assert.Nil(t, max)

	var credits float64
	err := p.Decode("credits", &credits)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	assert.False(t, p.Has("missing"))
}
