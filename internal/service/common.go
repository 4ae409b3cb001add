package service

import (
	"database/sql"
	"errors"
	"time"

	"github.com/noah-isme/eduorg-api/internal/dto"
	"github.com/noah-isme/eduorg-api/internal/repository"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
)

func requireTenant(tenantID string) error {
	if tenantID == "" {
		return appErrors.Clone(appErrors.ErrTenantRequired, "tenant id required")
	}
	return nil
}

// lookupErr maps a repository read failure onto NotFound or Internal.
func lookupErr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, internal)
}

// writeErr maps a repository write failure; duplicates become Conflict.
func writeErr(err error, conflict, internal string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return appErrors.Clone(appErrors.ErrConflict, conflict)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "record not found")
	}
	return appErrors.Internal(err, internal)
}

func invalid(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func badRequest(message string) error {
	return appErrors.Clone(appErrors.ErrBadRequest, message)
}

func conflict(message string) error {
	return appErrors.Clone(appErrors.ErrConflict, message)
}

// dateOnly truncates t to midnight UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// patchValue decodes a required field; explicit null is rejected.
func patchValue[T any](p dto.Patch, field string, dest *T) error {
	if p.IsNull(field) {
		return badRequest(field + " cannot be null")
	}
	return p.Decode(field, dest)
}

// patchOptional decodes a nullable field; explicit null clears it.
func patchOptional[T any](p dto.Patch, field string, dest **T) error {
	if p.IsNull(field) {
		*dest = nil
		return nil
	}
	var v T
	if err := p.Decode(field, &v); err != nil {
		return err
	}
	*dest = &v
	return nil
}
