package dto

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
)

// Patch is a partial update: the set of field names the caller wants to change
// mapped to their raw new values. A field present with a JSON null clears it.
type Patch map[string]json.RawMessage

// Fields returns the patched field names in sorted order.
func (p Patch) Fields() []string {
	fields := make([]string, 0, len(p))
	for k := range p {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Has reports whether field is part of the patch.
func (p Patch) Has(field string) bool {
	_, ok := p[field]
	return ok
}

// IsNull reports whether field is present and explicitly null.
func (p Patch) IsNull(field string) bool {
	raw, ok := p[field]
	return ok && strings.TrimSpace(string(raw)) == "null"
}

// Decode unmarshals the value of field into dest.
func (p Patch) Decode(field string, dest interface{}) error {
	raw, ok := p[field]
	if !ok {
		return appErrors.Clone(appErrors.ErrBadRequest, fmt.Sprintf("field %s not present", field))
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid value for %s", field))
	}
	return nil
}

// Allow rejects the patch when it is empty or names a field outside allowed.
func (p Patch) Allow(allowed ...string) error {
	if len(p) == 0 {
		return appErrors.Clone(appErrors.ErrBadRequest, "no fields to update")
	}
	set := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		set[f] = struct{}{}
	}
	var unknown []string
	for _, f := range p.Fields() {
		if _, ok := set[f]; !ok {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) > 0 {
		return appErrors.Clone(appErrors.ErrBadRequest, "unknown fields: "+strings.Join(unknown, ", "))
	}
	return nil
}
