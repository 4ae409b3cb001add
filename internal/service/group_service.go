package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/dto"
	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/repository"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/sanitize"
)

type groupRepository interface {
	List(ctx context.Context, tenantID string, filter models.GroupFilter) ([]models.Group, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.Group, error)
	ListChildren(ctx context.Context, tenantID string, parentIDs []string) ([]models.GroupNode, error)
	Create(ctx context.Context, group *models.Group) error
	Update(ctx context.Context, group *models.Group) error
	SoftDelete(ctx context.Context, tenantID, id string) error
}

var groupPatchFields = []string{"name", "type", "description", "parent_id", "leader_id", "max_members"}

// GroupService manages the group hierarchy.
type GroupService struct {
	repo      groupRepository
	people    personReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService constructs a GroupService.
func NewGroupService(repo groupRepository, people personReader, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{repo: repo, people: people, validator: validate, logger: logger}
}

// List returns groups matching the filter.
func (s *GroupService) List(ctx context.Context, tenantID string, filter models.GroupFilter) ([]models.Group, *models.Pagination, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, nil, err
	}
	groups, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list groups")
	}
	return groups, filter.Pagination(total), nil
}

// Get returns a live group.
func (s *GroupService) Get(ctx context.Context, tenantID, id string) (*models.Group, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	group, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "group not found", "failed to load group")
	}
	return group, nil
}

// Create adds a group under an optional parent.
func (s *GroupService) Create(ctx context.Context, tenantID string, req models.CreateGroupRequest) (*models.Group, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid group payload")
	}
	group := &models.Group{
		TenantID:    tenantID,
		Name:        sanitize.Text(req.Name),
		Type:        sanitize.Text(req.Type),
		Description: sanitize.OptionalText(req.Description),
		ParentID:    req.ParentID,
		LeaderID:    req.LeaderID,
		MaxMembers:  req.MaxMembers,
	}
	if err := s.checkReferences(ctx, tenantID, group); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, group); err != nil {
		return nil, writeErr(err, "group already exists", "failed to create group")
	}
	return group, nil
}

// Update applies a partial update; reparenting is rejected when it would
// create a cycle.
func (s *GroupService) Update(ctx context.Context, tenantID, id string, patch dto.Patch) (*models.Group, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := patch.Allow(groupPatchFields...); err != nil {
		return nil, err
	}
	group, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "group not found", "failed to load group")
	}

	for _, field := range patch.Fields() {
		switch field {
		case "name":
			err = patchValue(patch, field, &group.Name)
		case "type":
			err = patchValue(patch, field, &group.Type)
		case "description":
			err = patchOptional(patch, field, &group.Description)
		case "parent_id":
			err = patchOptional(patch, field, &group.ParentID)
		case "leader_id":
			err = patchOptional(patch, field, &group.LeaderID)
		case "max_members":
			err = patchOptional(patch, field, &group.MaxMembers)
		}
		if err != nil {
			return nil, err
		}
	}

	check := models.CreateGroupRequest{
		Name:        group.Name,
		Type:        group.Type,
		Description: group.Description,
		ParentID:    group.ParentID,
		LeaderID:    group.LeaderID,
		MaxMembers:  group.MaxMembers,
	}
	if err := s.validator.Struct(check); err != nil {
		return nil, invalid(err, "invalid group payload")
	}
	group.Name = sanitize.Text(group.Name)
	group.Type = sanitize.Text(group.Type)
	group.Description = sanitize.OptionalText(group.Description)

	if patch.Has("parent_id") && group.ParentID != nil {
		if err := s.checkNoCycle(ctx, tenantID, group.ID, *group.ParentID); err != nil {
			return nil, err
		}
	}
	if err := s.checkReferences(ctx, tenantID, group); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, group); err != nil {
		return nil, lookupErr(err, "group not found", "failed to update group")
	}
	return group, nil
}

// Delete soft-deletes a group without live children.
func (s *GroupService) Delete(ctx context.Context, tenantID, id string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if _, err := s.repo.FindByID(ctx, tenantID, id); err != nil {
		return lookupErr(err, "group not found", "failed to load group")
	}
	if err := s.repo.SoftDelete(ctx, tenantID, id); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return badRequest("group has child groups")
		}
		return appErrors.Internal(err, "failed to delete group")
	}
	return nil
}

// Descendants returns the ids of every live group below id, breadth first.
func (s *GroupService) Descendants(ctx context.Context, tenantID, id string) ([]string, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, tenantID, id); err != nil {
		return nil, lookupErr(err, "group not found", "failed to load group")
	}
	ids, err := s.descendants(ctx, tenantID, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to walk group hierarchy")
	}
	return ids, nil
}

func (s *GroupService) descendants(ctx context.Context, tenantID, id string) ([]string, error) {
	seen := map[string]bool{id: true}
	var out []string
	frontier := []string{id}
	for len(frontier) > 0 {
		children, err := s.repo.ListChildren(ctx, tenantID, frontier)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, child := range children {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			out = append(out, child.ID)
			next = append(next, child.ID)
		}
		frontier = next
	}
	return out, nil
}

func (s *GroupService) checkNoCycle(ctx context.Context, tenantID, groupID, parentID string) error {
	if parentID == groupID {
		return badRequest("circular reference")
	}
	below, err := s.descendants(ctx, tenantID, groupID)
	if err != nil {
		return appErrors.Internal(err, "failed to walk group hierarchy")
	}
	for _, id := range below {
		if id == parentID {
			return badRequest("circular reference")
		}
	}
	return nil
}

func (s *GroupService) checkReferences(ctx context.Context, tenantID string, group *models.Group) error {
	if group.ParentID != nil {
		if _, err := s.repo.FindByID(ctx, tenantID, *group.ParentID); err != nil {
			return lookupErr(err, "parent group not found", "failed to load parent group")
		}
	}
	if group.LeaderID != nil && s.people != nil {
		if _, err := s.people.FindByID(ctx, tenantID, *group.LeaderID, false); err != nil {
			return lookupErr(err, "leader not found", "failed to load leader")
		}
	}
	return nil
}
