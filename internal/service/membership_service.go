package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/repository"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
	"github.com/noah-isme/eduorg-api/pkg/sanitize"
)

type membershipRepository interface {
	repository.MembershipStore
	WithinTx(ctx context.Context, fn func(store repository.MembershipStore) error) error
	List(ctx context.Context, tenantID string, filter models.MembershipFilter) ([]models.GroupMembership, int, error)
}

// MembershipService manages person-to-group memberships.
type MembershipService struct {
	repo      membershipRepository
	people    personReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewMembershipService constructs a MembershipService.
func NewMembershipService(repo membershipRepository, people personReader, validate *validator.Validate, logger *zap.Logger) *MembershipService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipService{repo: repo, people: people, validator: validate, logger: logger, now: time.Now}
}

// List returns memberships matching the filter.
func (s *MembershipService) List(ctx context.Context, tenantID string, filter models.MembershipFilter) ([]models.GroupMembership, *models.Pagination, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list memberships")
	}
	return items, filter.Pagination(total), nil
}

// Get returns a membership.
func (s *MembershipService) Get(ctx context.Context, tenantID, id string) (*models.GroupMembership, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	m, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupErr(err, "membership not found", "failed to load membership")
	}
	return m, nil
}

// Create adds a person to a group. The group row stays locked while capacity
// and overlap are checked so concurrent joins serialise.
func (s *MembershipService) Create(ctx context.Context, tenantID string, req models.CreateMembershipRequest) (*models.GroupMembership, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid membership payload")
	}

	today := dateOnly(s.now())
	start := today
	if req.StartDate != nil {
		start = dateOnly(*req.StartDate)
	}
	var end *time.Time
	if req.EndDate != nil {
		e := dateOnly(*req.EndDate)
		if !e.After(start) {
			return nil, badRequest("end date must be after start date")
		}
		end = &e
	}
	role := req.Role
	if role == "" {
		role = models.MembershipRoleMember
	}

	if _, err := s.people.FindByID(ctx, tenantID, req.PersonID, false); err != nil {
		return nil, lookupErr(err, "person not found", "failed to load person")
	}

	membership := &models.GroupMembership{
		TenantID:  tenantID,
		PersonID:  req.PersonID,
		GroupID:   req.GroupID,
		Role:      role,
		Status:    models.MembershipStatusActive,
		StartDate: start,
		EndDate:   end,
	}

	err := s.repo.WithinTx(ctx, func(store repository.MembershipStore) error {
		group, err := store.LockGroup(ctx, tenantID, req.GroupID)
		if err != nil {
			return lookupErr(err, "group not found", "failed to load group")
		}
		if group.MaxMembers != nil {
			active, err := store.CountActive(ctx, tenantID, group.ID, today)
			if err != nil {
				return appErrors.Internal(err, "failed to count memberships")
			}
			if active >= *group.MaxMembers {
				return appErrors.Clone(appErrors.ErrCapacityExceeded, "group has reached maximum members")
			}
		}
		if err := s.checkOverlap(ctx, store, membership, ""); err != nil {
			return err
		}
		if err := store.Create(ctx, membership); err != nil {
			return writeErr(err, "membership already exists", "failed to create membership")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// End closes a membership at the given date, today by default.
func (s *MembershipService) End(ctx context.Context, tenantID, id string, req models.EndMembershipRequest) (*models.GroupMembership, error) {
	end := dateOnly(s.now())
	if req.EndDate != nil {
		end = dateOnly(*req.EndDate)
	}
	return s.transition(ctx, tenantID, id, func(m *models.GroupMembership) error {
		if m.Status == models.MembershipStatusInactive {
			return conflict("membership already ended")
		}
		if end.Before(m.StartDate) {
			return badRequest("end date cannot precede start date")
		}
		m.Status = models.MembershipStatusInactive
		m.EndDate = &end
		return nil
	}, nil)
}

// Suspend marks a membership suspended with a reason, whatever its status.
func (s *MembershipService) Suspend(ctx context.Context, tenantID, id string, req models.SuspendMembershipRequest) (*models.GroupMembership, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid suspend payload")
	}
	reason := sanitize.Text(req.Reason)
	if reason == "" {
		return nil, badRequest("reason is required")
	}
	return s.transition(ctx, tenantID, id, func(m *models.GroupMembership) error {
		m.Status = models.MembershipStatusSuspended
		m.StatusReason = &reason
		return nil
	}, nil)
}

// Reactivate returns a suspended membership to ACTIVE.
func (s *MembershipService) Reactivate(ctx context.Context, tenantID, id string) (*models.GroupMembership, error) {
	return s.transition(ctx, tenantID, id, func(m *models.GroupMembership) error {
		if m.Status != models.MembershipStatusSuspended {
			return badRequest("only suspended memberships can be reactivated")
		}
		m.Status = models.MembershipStatusActive
		m.StatusReason = nil
		return nil
	}, func(ctx context.Context, store repository.MembershipStore, m *models.GroupMembership) error {
		return s.checkOverlap(ctx, store, m, m.ID)
	})
}

func (s *MembershipService) transition(
	ctx context.Context,
	tenantID, id string,
	apply func(m *models.GroupMembership) error,
	check func(ctx context.Context, store repository.MembershipStore, m *models.GroupMembership) error,
) (*models.GroupMembership, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	var result *models.GroupMembership
	err := s.repo.WithinTx(ctx, func(store repository.MembershipStore) error {
		m, err := store.FindByID(ctx, tenantID, id)
		if err != nil {
			return lookupErr(err, "membership not found", "failed to load membership")
		}
		from := m.Status
		if err := apply(m); err != nil {
			return err
		}
		if check != nil {
			if err := check(ctx, store, m); err != nil {
				return err
			}
		}
		if err := store.UpdateState(ctx, m, from); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return conflict("membership was modified concurrently")
			}
			return appErrors.Internal(err, "failed to update membership")
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *MembershipService) checkOverlap(ctx context.Context, store repository.MembershipStore, m *models.GroupMembership, excludeID string) error {
	existing, err := store.ListActiveForPair(ctx, m.TenantID, m.PersonID, m.GroupID, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check membership overlap")
	}
	for _, other := range existing {
		if intervalsOverlap(m.StartDate, m.EndDate, other.StartDate, other.EndDate) {
			return conflict("overlapping active membership exists")
		}
	}
	return nil
}

// intervalsOverlap reports whether [aStart, aEnd) and [bStart, bEnd) share any
// instant. A nil end is unbounded.
func intervalsOverlap(aStart time.Time, aEnd *time.Time, bStart time.Time, bEnd *time.Time) bool {
	aBeforeBEnds := bEnd == nil || aStart.Before(*bEnd)
	bBeforeAEnds := aEnd == nil || bStart.Before(*aEnd)
	return aBeforeBEnds && bBeforeAEnds
}
