package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-tracker/internal/domain"
	"github.com/spec-kit/maintenance-tracker/internal/policy"
	"github.com/spec-kit/maintenance-tracker/internal/repository"
)

func ptr(s string) *string { return &s }

func TestCreateRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	consumer := f.register(t, "consumer@x.com", domain.RoleConsumer)

	request := f.createRequest(t, consumer, testTitle)
	assert.Equal(t, domain.RequestStatusPendingApproval, request.Status)
	assert.Equal(t, domain.RequestTypeRepair, request.Type)
	assert.Equal(t, "consumer@x.com", request.RequestedBy)
	assert.Equal(t, consumer.UserID, request.OwnerID)
	assert.Nil(t, request.LastModified)
	assert.False(t, request.CreatedAt.IsZero())

	_, err := f.requests.Create(ctx, consumer, consumer.UserID, CreateRequestInput{Title: testTitle, Description: testDescription})
	requireDomainError(t, err, http.StatusBadRequest, "similar request exists")

	maintenance, err := f.requests.Create(ctx, consumer, consumer.UserID, CreateRequestInput{
		Type: "Maintenance", Title: "Projector bulb", Description: testDescription,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestTypeMaintenance, maintenance.Type)
}

func TestCreateRequestRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "admin@x.com", domain.RoleAdministrator)
	consumer := f.register(t, "consumer@x.com", domain.RoleConsumer)
	other := f.register(t, "other@x.com", domain.RoleConsumer)

	cases := []struct {
		name    string
		actor   *policy.Actor
		ownerID string
		input   CreateRequestInput
		status  int
		message string
	}{
		{"anonymous", nil, consumer.UserID, CreateRequestInput{Title: testTitle, Description: testDescription},
			http.StatusUnauthorized, "authentication required"},
		{"administrator", admin, admin.UserID, CreateRequestInput{Title: "XX"},
			http.StatusForbidden, "Administrators cannot make requests!"},
		{"for someone else", consumer, other.UserID, CreateRequestInput{Title: testTitle, Description: testDescription},
			http.StatusForbidden, "Consumer not allowed to create another user's request"},
		{"missing title", consumer, consumer.UserID, CreateRequestInput{Description: testDescription},
			http.StatusBadRequest, "missing 'title' parameter"},
		{"unknown type", consumer, consumer.UserID, CreateRequestInput{Type: "Painting", Title: testTitle, Description: testDescription},
			http.StatusBadRequest, "Cannot recognize the request type given: Painting"},
		{"short title", consumer, consumer.UserID, CreateRequestInput{Title: "XX", Description: testDescription},
			http.StatusBadRequest, "title too short. Min of 10 characters allowed"},
		{"short description", consumer, consumer.UserID, CreateRequestInput{Title: testTitle, Description: "A"},
			http.StatusBadRequest, "description too short. Min of 40 characters allowed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.requests.Create(ctx, tc.actor, tc.ownerID, tc.input)
			requireDomainError(t, err, tc.status, tc.message)
		})
	}
}

func TestCreateRequestConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	consumers := make([]*policy.Actor, 10)
	for i := range consumers {
		consumers[i] = f.register(t, fmt.Sprintf("c%d@x.com", i), domain.RoleConsumer)
	}

	var created atomic.Int32
	var wg sync.WaitGroup
	for _, c := range consumers {
		wg.Add(1)
		go func(c *policy.Actor) {
			defer wg.Done()
			_, err := f.requests.Create(context.Background(), c, c.UserID, CreateRequestInput{Title: testTitle, Description: testDescription})
			if err == nil {
				created.Add(1)
			}
		}(c)
	}
	wg.Wait()
	assert.Equal(t, int32(1), created.Load())
}

func TestRespondWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "admin@x.com", domain.RoleAdministrator)
	consumer := f.register(t, "consumer@x.com", domain.RoleConsumer)
	request := f.createRequest(t, consumer, testTitle)

	_, err := f.requests.Respond(ctx, admin, request.ID, "resolve")
	requireDomainError(t, err, http.StatusConflict, "cannot resolve a request which is Pending Approval")

	updated, err := f.requests.Respond(ctx, admin, request.ID, "approve")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, updated.Status)
	require.NotNil(t, updated.LastModified)

	_, err = f.requests.Respond(ctx, admin, request.ID, "approve")
	requireDomainError(t, err, http.StatusConflict, "cannot approve a request which is Approved")

	_, err = f.requests.Respond(ctx, admin, request.ID, "in_progress")
	require.NoError(t, err)
	resolved, err := f.requests.Respond(ctx, admin, request.ID, "resolve")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusResolved, resolved.Status)

	stored, err := f.requests.Get(ctx, admin, request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusResolved, stored.Status)

	history, err := f.requests.History(ctx, consumer, request.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, domain.ChangeTypeCreated, history[0].ChangeType)
	assert.Equal(t, "approve", history[1].Action)
	assert.Equal(t, map[string]any{"status": "Approved"}, history[1].NewValue)
	assert.Equal(t, admin.UserID, history[3].ChangedByID)
}

func TestRespondCheckOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "admin@x.com", domain.RoleAdministrator)
	consumer := f.register(t, "consumer@x.com", domain.RoleConsumer)
	other := f.register(t, "other@x.com", domain.RoleConsumer)
	request := f.createRequest(t, consumer, testTitle)

	cases := []struct {
		name      string
		actor     *policy.Actor
		requestID string
		action    string
		status    int
		message   string
	}{
		{"anonymous", nil, request.ID, "explode", http.StatusUnauthorized, "authentication required"},
		{"unknown action", consumer, "missing", "explode", http.StatusBadRequest, "action given is not recognized"},
		{"consumer approves missing", consumer, "missing", "approve", http.StatusForbidden, "Consumer not allowed to change status request"},
		{"admin cancels missing", admin, "missing", "cancel", http.StatusForbidden, "Administrator not allowed to cancel request"},
		{"admin approves missing", admin, "missing", "approve", http.StatusNotFound, "request not found"},
		{"consumer cancels other", other, request.ID, "cancel", http.StatusForbidden, "Consumer not allowed to cancel another user's request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.requests.Respond(ctx, tc.actor, tc.requestID, tc.action)
			requireDomainError(t, err, tc.status, tc.message)
		})
	}

	rejected, err := f.requests.Respond(ctx, admin, request.ID, "disapprove")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, rejected.Status)
}

func TestEditRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "admin@x.com", domain.RoleAdministrator)
	consumer := f.register(t, "consumer@x.com", domain.RoleConsumer)
	other := f.register(t, "other@x.com", domain.RoleConsumer)
	request := f.createRequest(t, consumer, testTitle)
	f.createRequest(t, consumer, "Projector bulb")

	_, err := f.requests.Edit(ctx, admin, consumer.UserID, "missing", EditRequestInput{Title: ptr("Desktop Repair")})
	requireDomainError(t, err, http.StatusForbidden, "Administrator not allowed to edit request")

	_, err = f.requests.Edit(ctx, other, consumer.UserID, request.ID, EditRequestInput{Title: ptr("Desktop Repair")})
	requireDomainError(t, err, http.StatusForbidden, "Consumer not allowed to edit another user's request")

	// Naming their own collection in the path does not hide whose request it is.
	_, err = f.requests.Edit(ctx, other, other.UserID, request.ID, EditRequestInput{Title: ptr("Desktop Repair")})
	requireDomainError(t, err, http.StatusForbidden, "Consumer not allowed to edit another user's request")

	_, err = f.requests.Edit(ctx, other, other.UserID, "missing", EditRequestInput{Title: ptr("Desktop Repair")})
	requireDomainError(t, err, http.StatusNotFound, "request not found")

	_, err = f.requests.Edit(ctx, consumer, consumer.UserID, request.ID, EditRequestInput{})
	requireDomainError(t, err, http.StatusBadRequest, "could not edit request, please insert title or description")

	_, err = f.requests.Edit(ctx, consumer, consumer.UserID, request.ID, EditRequestInput{Title: ptr(testTitle)})
	requireDomainError(t, err, http.StatusBadRequest, "title given matches the previous title")

	_, err = f.requests.Edit(ctx, consumer, consumer.UserID, request.ID, EditRequestInput{Title: ptr("Projector bulb")})
	requireDomainError(t, err, http.StatusBadRequest, "similar request exists")

	edited, err := f.requests.Edit(ctx, consumer, consumer.UserID, request.ID, EditRequestInput{Title: ptr("Desktop Repair")})
	require.NoError(t, err)
	assert.Equal(t, "Desktop Repair", edited.Title)
	require.NotNil(t, edited.LastModified)

	_, err = f.requests.Respond(ctx, consumer, request.ID, "cancel")
	require.NoError(t, err)
	_, err = f.requests.Edit(ctx, consumer, consumer.UserID, request.ID, EditRequestInput{Title: ptr("Keyboard Repair")})
	requireDomainError(t, err, http.StatusConflict, "cannot edit a request which is Cancelled")
}

func TestDeleteRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "admin@x.com", domain.RoleAdministrator)
	consumer := f.register(t, "consumer@x.com", domain.RoleConsumer)
	other := f.register(t, "other@x.com", domain.RoleConsumer)
	request := f.createRequest(t, consumer, testTitle)

	err := f.requests.Delete(ctx, admin, consumer.UserID, request.ID)
	requireDomainError(t, err, http.StatusForbidden, "Administrator not allowed to delete request")

	err = f.requests.Delete(ctx, consumer, consumer.UserID, request.ID)
	requireDomainError(t, err, http.StatusConflict, "cannot delete a request which is Pending Approval")

	err = f.requests.Delete(ctx, other, other.UserID, request.ID)
	requireDomainError(t, err, http.StatusForbidden, "Consumer not allowed to delete another user's request")

	err = f.requests.Delete(ctx, other, consumer.UserID, request.ID)
	requireDomainError(t, err, http.StatusForbidden, "Consumer not allowed to delete another user's request")

	_, err = f.requests.Respond(ctx, consumer, request.ID, "cancel")
	require.NoError(t, err)
	require.NoError(t, f.requests.Delete(ctx, consumer, consumer.UserID, request.ID))

	_, err = f.requests.GetForOwner(ctx, consumer, consumer.UserID, request.ID)
	requireDomainError(t, err, http.StatusNotFound, "request not found")
}

func TestListingRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "admin@x.com", domain.RoleAdministrator)
	consumer := f.register(t, "consumer@x.com", domain.RoleConsumer)
	other := f.register(t, "other@x.com", domain.RoleConsumer)
	first := f.createRequest(t, consumer, testTitle)
	f.createRequest(t, consumer, "Projector bulb")
	f.createRequest(t, other, "Broken window pane")

	own, err := f.requests.ListForOwner(ctx, consumer, consumer.UserID)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	_, err = f.requests.ListForOwner(ctx, consumer, other.UserID)
	requireDomainError(t, err, http.StatusForbidden, "Consumer not allowed to view another user's request")

	_, err = f.requests.ListForOwner(ctx, admin, admin.UserID)
	requireDomainError(t, err, http.StatusForbidden, "Administrators do not have requests")

	viaAdmin, err := f.requests.ListForOwner(ctx, admin, other.UserID)
	require.NoError(t, err)
	assert.Len(t, viaAdmin, 1)

	_, err = f.requests.ListAll(ctx, consumer, domain.RequestFilter{})
	requireDomainError(t, err, http.StatusForbidden, "Consumer not allowed to view all requests")

	_, err = f.requests.Respond(ctx, admin, first.ID, "approve")
	require.NoError(t, err)

	all, err := f.requests.ListAll(ctx, admin, domain.RequestFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	approved := domain.RequestStatusApproved
	filtered, err := f.requests.ListAll(ctx, admin, domain.RequestFilter{Status: &approved})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, first.ID, filtered[0].ID)

	got, err := f.requests.GetForOwner(ctx, consumer, consumer.UserID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, testTitle, got.Title)

	_, err = f.requests.GetForOwner(ctx, other, other.UserID, first.ID)
	requireDomainError(t, err, http.StatusForbidden, "Consumer not allowed to view another user's request")

	// An administrator may look anywhere, but only finds a request under its owner.
	_, err = f.requests.GetForOwner(ctx, admin, other.UserID, first.ID)
	requireDomainError(t, err, http.StatusNotFound, "request not found")

	_, err = f.requests.Get(ctx, consumer, first.ID)
	requireDomainError(t, err, http.StatusForbidden, "Consumer not allowed to view all requests")

	_, err = f.requests.History(ctx, other, first.ID)
	requireDomainError(t, err, http.StatusForbidden, "Consumer not allowed to view another user's request")
}

// interleavingRequests runs a competing write right after the first load of the
// request, before the caller gets to write its own change.
type interleavingRequests struct {
	repository.RequestRepository
	once   sync.Once
	before func()
}

func (r *interleavingRequests) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	request, err := r.RequestRepository.GetByID(ctx, id)
	r.once.Do(r.before)
	return request, err
}

func (f *fixture) requestServiceWith(repo repository.RequestRepository) *RequestService {
	return NewRequestService(RequestDependencies{
		RequestRepo: repo,
		UserRepo:    f.stores.Users,
		HistoryRepo: f.stores.History,
	})
}

func TestEditLosesToConcurrentApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "admin@x.com", domain.RoleAdministrator)
	consumer := f.register(t, "consumer@x.com", domain.RoleConsumer)
	request := f.createRequest(t, consumer, testTitle)

	racing := f.requestServiceWith(&interleavingRequests{
		RequestRepository: f.stores.Requests,
		before: func() {
			_, err := f.requests.Respond(ctx, admin, request.ID, "approve")
			require.NoError(t, err)
		},
	})

	_, err := racing.Edit(ctx, consumer, consumer.UserID, request.ID, EditRequestInput{Title: ptr("Desktop Repair")})
	requireDomainError(t, err, http.StatusConflict, "cannot edit a request which is Approved")

	stored, err := f.requests.Get(ctx, admin, request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, stored.Status)
	assert.Equal(t, testTitle, stored.Title)
}

func TestCancelLosesToConcurrentApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "admin@x.com", domain.RoleAdministrator)
	consumer := f.register(t, "consumer@x.com", domain.RoleConsumer)
	request := f.createRequest(t, consumer, testTitle)

	racing := f.requestServiceWith(&interleavingRequests{
		RequestRepository: f.stores.Requests,
		before: func() {
			_, err := f.requests.Respond(ctx, admin, request.ID, "approve")
			require.NoError(t, err)
		},
	})

	_, err := racing.Respond(ctx, consumer, request.ID, "cancel")
	requireDomainError(t, err, http.StatusConflict, "cannot cancel a request which is Approved")

	stored, err := f.requests.Get(ctx, admin, request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, stored.Status)

	history, err := f.requests.History(ctx, consumer, request.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2, "only the winning transition is recorded")
}

func TestConcurrentRespondHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "admin@x.com", domain.RoleAdministrator)
	consumer := f.register(t, "consumer@x.com", domain.RoleConsumer)
	request := f.createRequest(t, consumer, testTitle)

	var succeeded atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := f.requests.Respond(ctx, admin, request.ID, "approve"); err == nil {
				succeeded.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := f.requests.Respond(ctx, consumer, request.ID, "cancel"); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), succeeded.Load())
}
