package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-tracker/internal/domain"
)

func newRequest(id, title, description string) *domain.Request {
	owner := &domain.User{ID: "owner-1", Email: "consumer@x.com", Role: domain.RoleConsumer}
	return domain.NewRequest(id, owner, domain.RequestTypeRepair, title, description, time.Now())
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	user := &domain.User{ID: "u-1", Email: "consumer@x.com", Role: domain.RoleConsumer}
	require.NoError(t, repo.Create(ctx, user))
	assert.False(t, user.CreatedAt.IsZero())

	err := repo.Create(ctx, &domain.User{ID: "u-2", Email: "consumer@x.com"})
	assert.ErrorIs(t, err, ErrDuplicate)

	byEmail, err := repo.GetByEmail(ctx, "consumer@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byEmail.ID)

	require.NoError(t, repo.UpdateRole(ctx, "u-1", domain.RoleAdministrator))
	require.NoError(t, repo.UpdatePassword(ctx, "u-1", "new-hash"))
	byID, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdministrator, byID.Role)
	assert.Equal(t, "new-hash", byID.PasswordHash)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.UpdateRole(ctx, "missing", domain.RoleConsumer), ErrNotFound)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestMemoryUserRepositoryConcurrentDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Create(ctx, &domain.User{ID: fmt.Sprintf("u-%d", i), Email: "race@x.com"})
			if err == nil {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), created.Load())
}

func TestMemoryRequestRepositorySimilarity(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRequestRepository()
	const title, description = "Laptop Repair", "Water spilled onto my keyboard. I need it replaced"

	first := newRequest("r-1", title, description)
	require.NoError(t, repo.Create(ctx, first))
	assert.ErrorIs(t, repo.Create(ctx, newRequest("r-2", title, description)), ErrDuplicate)

	similar, err := repo.FindSimilar(ctx, title, description)
	require.NoError(t, err)
	assert.Equal(t, "r-1", similar.ID)

	// Closing the first request frees the pair.
	previous, err := first.Apply(domain.RequestActionCancel, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, first, previous))
	_, err = repo.FindSimilar(ctx, title, description)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, repo.Create(ctx, newRequest("r-2", title, description)))

	// An edit onto an active pair is rejected.
	third := newRequest("r-3", "Projector bulb", description)
	require.NoError(t, repo.Create(ctx, third))
	third.Title = title
	assert.ErrorIs(t, repo.Update(ctx, third, domain.RequestStatusPendingApproval), ErrDuplicate)
}

func TestMemoryRequestRepositoryListAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRequestRepository()
	const description = "Water spilled onto my keyboard. I need it replaced"

	a := newRequest("r-1", "Laptop Repair", description)
	b := newRequest("r-2", "Desktop Repair", description)
	b.OwnerID = "owner-2"
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	owned, err := repo.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "r-1", owned[0].ID)

	previous, err := a.Apply(domain.RequestActionApprove, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, a, previous))

	approved := domain.RequestStatusApproved
	filtered, err := repo.List(ctx, domain.RequestFilter{Status: &approved})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "r-1", filtered[0].ID)

	all, err := repo.List(ctx, domain.RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.Delete(ctx, "r-2"))
	assert.ErrorIs(t, repo.Delete(ctx, "r-2"), ErrNotFound)
	_, err = repo.GetByID(ctx, "r-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRequestRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRequestRepository()
	require.NoError(t, repo.Create(ctx, newRequest("r-1", "Laptop Repair", "Water spilled onto my keyboard. I need it replaced")))

	loaded, err := repo.GetByID(ctx, "r-1")
	require.NoError(t, err)
	loaded.Status = domain.RequestStatusResolved

	again, err := repo.GetByID(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPendingApproval, again.Status)
}

func TestMemoryRequestRepositoryConcurrentDuplicateCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRequestRepository()

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := newRequest(fmt.Sprintf("r-%d", i), "Laptop Repair", "Water spilled onto my keyboard. I need it replaced")
			if repo.Create(ctx, req) == nil {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), created.Load())
}

func TestMemoryRequestHistoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRequestHistoryRepository()

	require.NoError(t, repo.Create(ctx, &domain.RequestHistory{ID: "h-1", RequestID: "r-1", ChangeType: domain.ChangeTypeCreated}))
	require.NoError(t, repo.Create(ctx, &domain.RequestHistory{ID: "h-2", RequestID: "r-1", ChangeType: domain.ChangeTypeStatus}))

	entries, err := repo.ListByRequest(ctx, "r-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "h-1", entries[0].ID)

	empty, err := repo.ListByRequest(ctx, "r-2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryRequestRepositoryUpdateComparesStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRequestRepository()
	const description = "Water spilled onto my keyboard. I need it replaced"

	stored := newRequest("r-1", "Laptop Repair", description)
	require.NoError(t, repo.Create(ctx, stored))

	// Two writers load the same pending request.
	approver, err := repo.GetByID(ctx, "r-1")
	require.NoError(t, err)
	editor, err := repo.GetByID(ctx, "r-1")
	require.NoError(t, err)

	previous, err := approver.Apply(domain.RequestActionApprove, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, approver, previous))

	editor.Title = "Desktop Repair"
	assert.ErrorIs(t, repo.Update(ctx, editor, domain.RequestStatusPendingApproval), ErrStale)

	current, err := repo.GetByID(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, current.Status)
	assert.Equal(t, "Laptop Repair", current.Title)

	missing := newRequest("r-2", "Projector bulb", description)
	assert.ErrorIs(t, repo.Update(ctx, missing, domain.RequestStatusPendingApproval), ErrNotFound)
}
