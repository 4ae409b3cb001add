package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/eduorg-api/internal/models"
	"github.com/noah-isme/eduorg-api/internal/repository"
	appErrors "github.com/noah-isme/eduorg-api/pkg/errors"
)

type fakeMembershipRepo struct {
	groups      map[string]*models.Group
	memberships map[string]*models.GroupMembership
}

func (f *fakeMembershipRepo) WithinTx(ctx context.Context, fn func(store repository.MembershipStore) error) error {
	return fn(f)
}

func (f *fakeMembershipRepo) List(ctx context.Context, tenantID string, filter models.MembershipFilter) ([]models.GroupMembership, int, error) {
	var out []models.GroupMembership
	for _, m := range f.memberships {
		out = append(out, *m)
	}
	return out, len(out), nil
}

func (f *fakeMembershipRepo) LockGroup(ctx context.Context, tenantID, groupID string) (*models.Group, error) {
	g, ok := f.groups[groupID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return g, nil
}

func (f *fakeMembershipRepo) CountActive(ctx context.Context, tenantID, groupID string, asOf time.Time) (int, error) {
	n := 0
	for _, m := range f.memberships {
		if m.GroupID == groupID && m.Status == models.MembershipStatusActive && !m.StartDate.After(asOf) && (m.EndDate == nil || m.EndDate.After(asOf)) {
			n++
		}
	}
	return n, nil
}

func (f *fakeMembershipRepo) ListActiveForPair(ctx context.Context, tenantID, personID, groupID, excludeID string) ([]models.GroupMembership, error) {
	var out []models.GroupMembership
	for _, m := range f.memberships {
		if m.PersonID == personID && m.GroupID == groupID && m.ID != excludeID && m.Status == models.MembershipStatusActive {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMembershipRepo) FindByID(ctx context.Context, tenantID, id string) (*models.GroupMembership, error) {
	m, ok := f.memberships[id]
	if !ok || m.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMembershipRepo) Create(ctx context.Context, membership *models.GroupMembership) error {
	membership.ID = uuid.NewString()
	cp := *membership
	f.memberships[membership.ID] = &cp
	return nil
}

func (f *fakeMembershipRepo) UpdateState(ctx context.Context, membership *models.GroupMembership, from models.MembershipStatus) error {
	current, ok := f.memberships[membership.ID]
	if !ok || current.Status != from {
		return repository.ErrStaleWrite
	}
	if membership.EndDate != nil && membership.EndDate.Before(membership.StartDate) {
		return errors.New("group_memberships_check violated")
	}
	cp := *membership
	f.memberships[membership.ID] = &cp
	return nil
}

type membershipFixture struct {
	svc     *MembershipService
	repo    *fakeMembershipRepo
	group   string
	persons []string
}

func newMembershipFixture(t *testing.T, maxMembers *int) *membershipFixture {
	t.Helper()
	group := uuid.NewString()
	persons := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	people := make([]models.Person, len(persons))
	for i, id := range persons {
		people[i] = models.Person{ID: id, TenantID: testTenant, FirstName: "Member", LastName: id[:4]}
	}
	repo := &fakeMembershipRepo{
		groups:      map[string]*models.Group{group: {ID: group, TenantID: testTenant, Name: "Robotics", MaxMembers: maxMembers}},
		memberships: map[string]*models.GroupMembership{},
	}
	svc := NewMembershipService(repo, newFakePeople(people...), nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC) }
	return &membershipFixture{svc: svc, repo: repo, group: group, persons: persons}
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestIntervalsOverlap(t *testing.T) {
	jan, mar, may, jul := *day(2024, 1, 1), *day(2024, 3, 1), *day(2024, 5, 1), *day(2024, 7, 1)

	assert.True(t, intervalsOverlap(jan, &may, mar, &jul))
	assert.True(t, intervalsOverlap(jan, nil, jul, nil))
	assert.True(t, intervalsOverlap(mar, nil, jan, &may))
	assert.False(t, intervalsOverlap(jan, &mar, mar, &may))
	assert.False(t, intervalsOverlap(may, nil, jan, &mar))
}

func TestMembershipServiceCreateDefaults(t *testing.T) {
	f := newMembershipFixture(t, nil)

	m, err := f.svc.Create(context.Background(), testTenant, models.CreateMembershipRequest{PersonID: f.persons[0], GroupID: f.group})
	require.NoError(t, err)
	assert.Equal(t, models.MembershipRoleMember, m.Role)
	assert.Equal(t, models.MembershipStatusActive, m.Status)
	assert.Equal(t, *day(2024, 5, 10), m.StartDate)
	assert.Nil(t, m.EndDate)
}

func TestMembershipServiceRejectsOverlap(t *testing.T) {
	f := newMembershipFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, testTenant, models.CreateMembershipRequest{PersonID: f.persons[0], GroupID: f.group, StartDate: day(2024, 1, 1), EndDate: day(2024, 6, 1)})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, testTenant, models.CreateMembershipRequest{PersonID: f.persons[0], GroupID: f.group, StartDate: day(2024, 5, 1)})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = f.svc.Create(ctx, testTenant, models.CreateMembershipRequest{PersonID: f.persons[0], GroupID: f.group, StartDate: day(2024, 6, 1)})
	assert.NoError(t, err)
}

func TestMembershipServiceCapacity(t *testing.T) {
	f := newMembershipFixture(t, intPtr(2))
	ctx := context.Background()

	for _, person := range f.persons[:2] {
		_, err := f.svc.Create(ctx, testTenant, models.CreateMembershipRequest{PersonID: person, GroupID: f.group})
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, testTenant, models.CreateMembershipRequest{PersonID: f.persons[2], GroupID: f.group})
	assert.ErrorIs(t, err, appErrors.ErrCapacityExceeded)
}

func TestMembershipServiceCreateValidation(t *testing.T) {
	f := newMembershipFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, testTenant, models.CreateMembershipRequest{PersonID: f.persons[0], GroupID: f.group, StartDate: day(2024, 6, 1), EndDate: day(2024, 6, 1)})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)

	_, err = f.svc.Create(ctx, testTenant, models.CreateMembershipRequest{PersonID: uuid.NewString(), GroupID: f.group})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Create(ctx, testTenant, models.CreateMembershipRequest{PersonID: f.persons[0], GroupID: uuid.NewString()})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Create(ctx, testTenant, models.CreateMembershipRequest{PersonID: f.persons[0], GroupID: f.group, Role: "OWNER"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestMembershipServiceLifecycle(t *testing.T) {
	f := newMembershipFixture(t, nil)
	ctx := context.Background()
	m, err := f.svc.Create(ctx, testTenant, models.CreateMembershipRequest{PersonID: f.persons[0], GroupID: f.group, StartDate: day(2024, 1, 1)})
	require.NoError(t, err)

	_, err = f.svc.Reactivate(ctx, testTenant, m.ID)
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)

	suspended, err := f.svc.Suspend(ctx, testTenant, m.ID, models.SuspendMembershipRequest{Reason: "<em>late</em> fees"})
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusSuspended, suspended.Status)
	require.NotNil(t, suspended.StatusReason)
	assert.Equal(t, "late fees", *suspended.StatusReason)

	active, err := f.svc.Reactivate(ctx, testTenant, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusActive, active.Status)
	assert.Nil(t, active.StatusReason)

	_, err = f.svc.End(ctx, testTenant, m.ID, models.EndMembershipRequest{EndDate: day(2023, 12, 1)})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)

	ended, err := f.svc.End(ctx, testTenant, m.ID, models.EndMembershipRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusInactive, ended.Status)
	assert.Equal(t, day(2024, 5, 10), ended.EndDate)

	_, err = f.svc.End(ctx, testTenant, m.ID, models.EndMembershipRequest{})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestMembershipServiceEndOnStartDate(t *testing.T) {
	f := newMembershipFixture(t, nil)
	ctx := context.Background()
	m, err := f.svc.Create(ctx, testTenant, models.CreateMembershipRequest{PersonID: f.persons[0], GroupID: f.group, StartDate: day(2024, 5, 10)})
	require.NoError(t, err)

	ended, err := f.svc.End(ctx, testTenant, m.ID, models.EndMembershipRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusInactive, ended.Status)
	assert.Equal(t, day(2024, 5, 10), ended.EndDate)
}

func TestMembershipServiceReactivateChecksOverlap(t *testing.T) {
	f := newMembershipFixture(t, nil)
	ctx := context.Background()
	first, err := f.svc.Create(ctx, testTenant, models.CreateMembershipRequest{PersonID: f.persons[0], GroupID: f.group, StartDate: day(2024, 1, 1)})
	require.NoError(t, err)
	_, err = f.svc.Suspend(ctx, testTenant, first.ID, models.SuspendMembershipRequest{Reason: "leave"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, testTenant, models.CreateMembershipRequest{PersonID: f.persons[0], GroupID: f.group, StartDate: day(2024, 2, 1)})
	require.NoError(t, err)

	_, err = f.svc.Reactivate(ctx, testTenant, first.ID)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}
