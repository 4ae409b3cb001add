package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/dto"
	"github.com/noah-isme/eduorg-api/internal/models"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/sanitize"
)

type personRepository interface {
	List(ctx context.Context, tenantID string, filter models.PersonFilter) ([]models.Person, int, error)
	FindByID(ctx context.Context, tenantID, id string, includeDeleted bool) (*models.Person, error)
	ExistsByEmail(ctx context.Context, tenantID, email, excludeID string) (bool, error)
	ExistsByNationalID(ctx context.Context, tenantID, nationalID, excludeID string) (bool, error)
	Create(ctx context.Context, person *models.Person) error
	Update(ctx context.Context, person *models.Person) error
	SoftDelete(ctx context.Context, tenantID, id string) error
	Restore(ctx context.Context, tenantID, id string) error
}

var personPatchFields = []string{
	"first_name", "last_name", "email", "phone", "national_id", "date_of_birth",
	"address", "emergency_contact_name", "emergency_contact_phone",
}

// PersonService manages identity records.
type PersonService struct {
	repo      personRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPersonService constructs a PersonService.
func NewPersonService(repo personRepository, validate *validator.Validate, logger *zap.Logger) *PersonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersonService{repo: repo, validator: validate, logger: logger}
}

// List returns persons matching the filter.
func (s *PersonService) List(ctx context.Context, tenantID string, filter models.PersonFilter) ([]models.Person, *models.Pagination, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, nil, err
	}
	persons, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list persons")
	}
	return persons, filter.Pagination(total), nil
}

// Get returns a live person.
func (s *PersonService) Get(ctx context.Context, tenantID, id string) (*models.Person, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	person, err := s.repo.FindByID(ctx, tenantID, id, false)
	if err != nil {
		return nil, lookupErr(err, "person not found", "failed to load person")
	}
	return person, nil
}

// Create registers a person; email and national id are unique per tenant.
func (s *PersonService) Create(ctx context.Context, tenantID string, req models.CreatePersonRequest) (*models.Person, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid person payload")
	}

	person := &models.Person{
		TenantID:              tenantID,
		FirstName:             sanitize.Text(req.FirstName),
		LastName:              sanitize.Text(req.LastName),
		Email:                 normalizeEmail(req.Email),
		Phone:                 sanitize.OptionalText(req.Phone),
		NationalID:            sanitize.OptionalText(req.NationalID),
		DateOfBirth:           req.DateOfBirth,
		Address:               sanitize.OptionalText(req.Address),
		EmergencyContactName:  sanitize.OptionalText(req.EmergencyContactName),
		EmergencyContactPhone: sanitize.OptionalText(req.EmergencyContactPhone),
	}
	if err := s.ensureUnique(ctx, tenantID, person, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, person); err != nil {
		return nil, writeErr(err, "person with this email or national id already exists", "failed to create person")
	}
	return person, nil
}

// Update applies a partial update to a live person.
func (s *PersonService) Update(ctx context.Context, tenantID, id string, patch dto.Patch) (*models.Person, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := patch.Allow(personPatchFields...); err != nil {
		return nil, err
	}
	person, err := s.repo.FindByID(ctx, tenantID, id, false)
	if err != nil {
		return nil, lookupErr(err, "person not found", "failed to load person")
	}

	for _, field := range patch.Fields() {
		switch field {
		case "first_name":
			err = patchValue(patch, field, &person.FirstName)
		case "last_name":
			err = patchValue(patch, field, &person.LastName)
		case "email":
			err = patchValue(patch, field, &person.Email)
		case "phone":
			err = patchOptional(patch, field, &person.Phone)
		case "national_id":
			err = patchOptional(patch, field, &person.NationalID)
		case "date_of_birth":
			err = patchOptional(patch, field, &person.DateOfBirth)
		case "address":
			err = patchOptional(patch, field, &person.Address)
		case "emergency_contact_name":
			err = patchOptional(patch, field, &person.EmergencyContactName)
		case "emergency_contact_phone":
			err = patchOptional(patch, field, &person.EmergencyContactPhone)
		}
		if err != nil {
			return nil, err
		}
	}

	check := models.CreatePersonRequest{
		FirstName:             person.FirstName,
		LastName:              person.LastName,
		Email:                 person.Email,
		Phone:                 person.Phone,
		NationalID:            person.NationalID,
		DateOfBirth:           person.DateOfBirth,
		Address:               person.Address,
		EmergencyContactName:  person.EmergencyContactName,
		EmergencyContactPhone: person.EmergencyContactPhone,
	}
	if err := s.validator.Struct(check); err != nil {
		return nil, invalid(err, "invalid person payload")
	}

	person.FirstName = sanitize.Text(person.FirstName)
	person.LastName = sanitize.Text(person.LastName)
	person.Email = normalizeEmail(person.Email)
	person.Phone = sanitize.OptionalText(person.Phone)
	person.NationalID = sanitize.OptionalText(person.NationalID)
	person.Address = sanitize.OptionalText(person.Address)
	person.EmergencyContactName = sanitize.OptionalText(person.EmergencyContactName)
	person.EmergencyContactPhone = sanitize.OptionalText(person.EmergencyContactPhone)

	if patch.Has("email") || patch.Has("national_id") {
		if err := s.ensureUnique(ctx, tenantID, person, person.ID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, person); err != nil {
		return nil, writeErr(err, "person with this email or national id already exists", "failed to update person")
	}
	return person, nil
}

// Delete soft-deletes a person.
func (s *PersonService) Delete(ctx context.Context, tenantID, id string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, tenantID, id); err != nil {
		return lookupErr(err, "person not found", "failed to delete person")
	}
	return nil
}

// Restore brings back a soft-deleted person unless another live person took
// its email or national id in the meantime.
func (s *PersonService) Restore(ctx context.Context, tenantID, id string) (*models.Person, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	person, err := s.repo.FindByID(ctx, tenantID, id, true)
	if err != nil {
		return nil, lookupErr(err, "person not found", "failed to load person")
	}
	if person.DeletedAt == nil {
		return nil, conflict("person is not deleted")
	}
	if err := s.ensureUnique(ctx, tenantID, person, person.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Restore(ctx, tenantID, id); err != nil {
		return nil, writeErr(err, "person with this email or national id already exists", "failed to restore person")
	}
	person.DeletedAt = nil
	return person, nil
}

func (s *PersonService) ensureUnique(ctx context.Context, tenantID string, person *models.Person, excludeID string) error {
	taken, err := s.repo.ExistsByEmail(ctx, tenantID, person.Email, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check email")
	}
	if taken {
		return conflict("person with this email already exists")
	}
	if person.NationalID != nil && strings.TrimSpace(*person.NationalID) != "" {
		taken, err = s.repo.ExistsByNationalID(ctx, tenantID, *person.NationalID, excludeID)
		if err != nil {
			return appErrors.Internal(err, "failed to check national id")
		}
		if taken {
			return conflict("person with this national id already exists")
		}
	}
	return nil
}
