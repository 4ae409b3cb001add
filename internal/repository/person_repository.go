package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/eduorg-api/internal/models"
)

// PersonRepository handles persistence of persons.
type PersonRepository struct {
	db *sqlx.DB
}

// NewPersonRepository constructs the repository.
func NewPersonRepository(db *sqlx.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

const personColumns = `id, tenant_id, first_name, last_name, email, phone, national_id, date_of_birth, address,
emergency_contact_name, emergency_contact_phone, created_at, updated_at, deleted_at`

// List returns persons matching the filter along with the total count.
func (r *PersonRepository) List(ctx context.Context, tenantID string, filter models.PersonFilter) ([]models.Person, int, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{tenantID}
	if !filter.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf("(lower(first_name) LIKE $%d OR lower(last_name) LIKE $%d OR lower(email) LIKE $%d OR national_id LIKE $%d)", idx, idx, idx, idx))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	order := orderClause(map[string]string{
		"last_name":  "last_name",
		"first_name": "first_name",
		"email":      "email",
		"created_at": "created_at",
	}, filter.SortBy, "last_name", filter.SortOrder, "ASC")
	_, size, offset := filter.Normalize()

	query := fmt.Sprintf(`SELECT %s FROM persons%s ORDER BY %s, id LIMIT %d OFFSET %d`, personColumns, where, order, size, offset)
	var persons []models.Person
	if err := r.db.SelectContext(ctx, &persons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list persons: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM persons`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count persons: %w", err)
	}
	return persons, total, nil
}

// FindByID returns a person; soft-deleted rows are returned only when includeDeleted is set.
func (r *PersonRepository) FindByID(ctx context.Context, tenantID, id string, includeDeleted bool) (*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons WHERE tenant_id = $1 AND id = $2`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	var person models.Person
	if err := r.db.GetContext(ctx, &person, query, tenantID, id); err != nil {
		return nil, err
	}
	return &person, nil
}

// ExistsByEmail reports whether a live person other than excludeID uses the email.
func (r *PersonRepository) ExistsByEmail(ctx context.Context, tenantID, email, excludeID string) (bool, error) {
	return r.exists(ctx, "lower(email) = lower($2)", tenantID, email, excludeID)
}

// ExistsByNationalID reports whether a live person other than excludeID uses the national ID.
func (r *PersonRepository) ExistsByNationalID(ctx context.Context, tenantID, nationalID, excludeID string) (bool, error) {
	return r.exists(ctx, "national_id = $2", tenantID, nationalID, excludeID)
}

func (r *PersonRepository) exists(ctx context.Context, predicate, tenantID, value, excludeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM persons WHERE tenant_id = $1 AND ` + predicate + ` AND deleted_at IS NULL AND id::text <> $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, tenantID, value, excludeID); err != nil {
		return false, fmt.Errorf("check person uniqueness: %w", err)
	}
	return exists, nil
}

// Create inserts a new person.
func (r *PersonRepository) Create(ctx context.Context, person *models.Person) error {
	if person.ID == "" {
		person.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	person.CreatedAt = now
	person.UpdatedAt = now
	const query = `INSERT INTO persons (id, tenant_id, first_name, last_name, email, phone, national_id, date_of_birth, address,
emergency_contact_name, emergency_contact_phone, created_at, updated_at)
VALUES (:id, :tenant_id, :first_name, :last_name, :email, :phone, :national_id, :date_of_birth, :address,
:emergency_contact_name, :emergency_contact_phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, person); err != nil {
		return writeErr("insert person", err)
	}
	return nil
}

// Update persists the mutable fields of a live person.
func (r *PersonRepository) Update(ctx context.Context, person *models.Person) error {
	person.UpdatedAt = time.Now().UTC()
	const query = `UPDATE persons SET first_name = :first_name, last_name = :last_name, email = :email, phone = :phone,
national_id = :national_id, date_of_birth = :date_of_birth, address = :address,
emergency_contact_name = :emergency_contact_name, emergency_contact_phone = :emergency_contact_phone, updated_at = :updated_at
WHERE tenant_id = :tenant_id AND id = :id AND deleted_at IS NULL`
	res, err := r.db.NamedExecContext(ctx, query, person)
	if err != nil {
		return writeErr("update person", err)
	}
	return expectAffected(res, "update person")
}

// SoftDelete marks a live person deleted.
func (r *PersonRepository) SoftDelete(ctx context.Context, tenantID, id string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE persons SET deleted_at = $3, updated_at = $3 WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`, tenantID, id, now)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return expectAffected(res, "delete person")
}

// Restore clears the deleted marker. The partial unique indexes reject a restore
// that would collide with a live person.
func (r *PersonRepository) Restore(ctx context.Context, tenantID, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE persons SET deleted_at = NULL, updated_at = $3 WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NOT NULL`, tenantID, id, time.Now().UTC())
	if err != nil {
		return writeErr("restore person", err)
	}
	return expectAffected(res, "restore person")
}
