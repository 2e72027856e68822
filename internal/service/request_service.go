package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-tracker/internal/domain"
	"github.com/spec-kit/maintenance-tracker/internal/events"
	"github.com/spec-kit/maintenance-tracker/internal/observability"
	"github.com/spec-kit/maintenance-tracker/internal/policy"
	"github.com/spec-kit/maintenance-tracker/internal/repository"
	"github.com/spec-kit/maintenance-tracker/internal/validation"
	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

const similarRequestMessage = "similar request exists"

// RequestService coordinates the request workflow.
// Every operation authorizes before it loads, validates or writes anything.
type RequestService struct {
	requests repository.RequestRepository
	users    repository.UserRepository
	history  repository.RequestHistoryRepository
	metrics  *observability.Metrics
	events   eventPublisher
	now      func() time.Time
}

// RequestDependencies bundles repositories for the request service.
type RequestDependencies struct {
	RequestRepo repository.RequestRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.RequestHistoryRepository
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Now         func() time.Time
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	now := defaultClock(deps.Now)
	return &RequestService{
		requests: deps.RequestRepo,
		users:    deps.UserRepo,
		history:  deps.HistoryRepo,
		metrics:  deps.Metrics,
		events:   eventPublisher{dispatcher: deps.Dispatcher, logger: defaultLogger(deps.Logger), now: now},
		now:      now,
	}
}

// CreateRequestInput describes request creation payload.
type CreateRequestInput struct {
	Type        string
	Title       string
	Description string
}

// EditRequestInput carries the fields to replace. Nil means unchanged.
type EditRequestInput struct {
	Title       *string
	Description *string
}

// Create files a new request for ownerID.
func (s *RequestService) Create(ctx context.Context, actor *policy.Actor, ownerID string, input CreateRequestInput) (*domain.Request, error) {
	if err := policy.Authorize(actor, policy.ActionCreateRequest, policy.Resource{OwnerID: ownerID}); err != nil {
		return nil, err
	}
	if err := required("title", input.Title, "description", input.Description); err != nil {
		return nil, err
	}
	kind, err := domain.ParseRequestType(input.Type)
	if err != nil {
		return nil, err
	}
	if err := validation.Title(input.Title); err != nil {
		return nil, err
	}
	if err := validation.Description(input.Description); err != nil {
		return nil, err
	}

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, storeError(err, "user")
	}
	if owner.IsAdministrator() {
		return nil, apperrors.NewForbidden("Administrators cannot make requests!")
	}

	// Fast path; the store constraint decides under concurrency.
	if _, err := s.requests.FindSimilar(ctx, input.Title, input.Description); err == nil {
		return nil, apperrors.NewDuplicate(similarRequestMessage)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	request := domain.NewRequest(uuid.NewString(), owner, kind, input.Title, input.Description, s.now())
	if err := s.requests.Create(ctx, request); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewDuplicate(similarRequestMessage)
		}
		return nil, apperrors.NewInternalError(err)
	}

	if err := s.record(ctx, actor, request.ID, domain.ChangeTypeCreated, "", nil,
		map[string]any{"status": string(request.Status)}); err != nil {
		return nil, err
	}
	s.metrics.RecordRequestCreated(string(request.Type))
	s.events.publish(ctx, events.Event{
		Type:      events.EventRequestCreated,
		SubjectID: request.ID,
		Actor:     eventActor(actor),
		Payload: events.RequestCreatedPayload{
			OwnerID:     request.OwnerID,
			RequestedBy: request.RequestedBy,
			Type:        request.Type,
			Title:       request.Title,
		},
	})
	return request, nil
}

// ListForOwner returns the requests filed by ownerID.
func (s *RequestService) ListForOwner(ctx context.Context, actor *policy.Actor, ownerID string) ([]domain.Request, error) {
	if err := policy.Authorize(actor, policy.ActionListOwnRequests, policy.Resource{OwnerID: ownerID}); err != nil {
		return nil, err
	}
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, storeError(err, "user")
	}
	if owner.IsAdministrator() {
		return nil, apperrors.NewForbidden("Administrators do not have requests")
	}
	requests, err := s.requests.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return requests, nil
}

// GetForOwner returns one of ownerID's requests.
func (s *RequestService) GetForOwner(ctx context.Context, actor *policy.Actor, ownerID, requestID string) (*domain.Request, error) {
	if err := policy.Authorize(actor, policy.ActionViewOwnRequest, policy.Resource{OwnerID: ownerID}); err != nil {
		return nil, err
	}
	return s.loadOwned(ctx, actor, policy.ActionViewOwnRequest, ownerID, requestID)
}

// ListAll returns every request, optionally filtered by status. Administrators only.
func (s *RequestService) ListAll(ctx context.Context, actor *policy.Actor, filter domain.RequestFilter) ([]domain.Request, error) {
	if err := policy.Authorize(actor, policy.ActionListAllRequests, policy.Resource{}); err != nil {
		return nil, err
	}
	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return requests, nil
}

// Get returns any request. Administrators only.
func (s *RequestService) Get(ctx context.Context, actor *policy.Actor, requestID string) (*domain.Request, error) {
	if err := policy.Authorize(actor, policy.ActionViewAnyRequest, policy.Resource{}); err != nil {
		return nil, err
	}
	return s.load(ctx, requestID)
}

// Respond applies a workflow action.
// Role rules are checked before the request is loaded so that existence is not leaked.
func (s *RequestService) Respond(ctx context.Context, actor *policy.Actor, requestID, rawAction string) (*domain.Request, error) {
	if err := authenticated(actor); err != nil {
		return nil, err
	}
	action, err := domain.ParseRequestAction(rawAction)
	if err != nil {
		return nil, err
	}
	policyAction := policy.ActionChangeStatus
	if action.RequiredRole() == domain.RoleConsumer {
		policyAction = policy.ActionCancelRequest
	}
	if err := policy.Authorize(actor, policyAction, policy.Resource{}); err != nil {
		return nil, err
	}

	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policyAction, policy.Resource{OwnerID: request.OwnerID}); err != nil {
		return nil, err
	}

	previous, err := request.Apply(action, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.requests.Update(ctx, request, previous); err != nil {
		return nil, s.writeError(ctx, err, request.ID, string(action))
	}

	if err := s.record(ctx, actor, request.ID, domain.ChangeTypeStatus, string(action),
		map[string]any{"status": string(previous)},
		map[string]any{"status": string(request.Status)}); err != nil {
		return nil, err
	}
	s.metrics.RecordTransition(string(action))
	s.events.publish(ctx, events.Event{
		Type:      events.EventRequestStatusChanged,
		SubjectID: request.ID,
		Actor:     eventActor(actor),
		Payload: events.RequestStatusChangedPayload{
			RequestedBy: request.RequestedBy,
			Action:      action,
			OldStatus:   previous,
			NewStatus:   request.Status,
		},
	})
	return request, nil
}

// Edit replaces the title and/or description of a pending request.
func (s *RequestService) Edit(ctx context.Context, actor *policy.Actor, ownerID, requestID string, input EditRequestInput) (*domain.Request, error) {
	if err := policy.Authorize(actor, policy.ActionEditRequest, policy.Resource{OwnerID: ownerID}); err != nil {
		return nil, err
	}
	request, err := s.loadOwned(ctx, actor, policy.ActionEditRequest, ownerID, requestID)
	if err != nil {
		return nil, err
	}
	if err := request.CanEdit(); err != nil {
		return nil, err
	}

	old := map[string]any{}
	changed := map[string]any{}
	var fields []string
	if input.Title != nil {
		old["title"], changed["title"] = request.Title, *input.Title
		fields = append(fields, "title")
	}
	if input.Description != nil {
		old["description"], changed["description"] = request.Description, *input.Description
		fields = append(fields, "description")
	}

	if err := request.Edit(input.Title, input.Description, s.now()); err != nil {
		return nil, err
	}
	if err := s.requests.Update(ctx, request, request.Status); err != nil {
		return nil, s.writeError(ctx, err, request.ID, "edit")
	}

	if err := s.record(ctx, actor, request.ID, domain.ChangeTypeEdit, "", old, changed); err != nil {
		return nil, err
	}
	s.events.publish(ctx, events.Event{
		Type:      events.EventRequestEdited,
		SubjectID: request.ID,
		Actor:     eventActor(actor),
		Payload:   events.RequestEditedPayload{Fields: fields},
	})
	return request, nil
}

// Delete removes a closed request.
func (s *RequestService) Delete(ctx context.Context, actor *policy.Actor, ownerID, requestID string) error {
	if err := policy.Authorize(actor, policy.ActionDeleteRequest, policy.Resource{OwnerID: ownerID}); err != nil {
		return err
	}
	request, err := s.loadOwned(ctx, actor, policy.ActionDeleteRequest, ownerID, requestID)
	if err != nil {
		return err
	}
	if err := request.CanDelete(); err != nil {
		return err
	}
	if err := s.requests.Delete(ctx, request.ID); err != nil {
		return storeError(err, "request")
	}

	s.events.publish(ctx, events.Event{
		Type:      events.EventRequestDeleted,
		SubjectID: request.ID,
		Actor:     eventActor(actor),
	})
	return nil
}

// History returns the audit trail of a request to an administrator or its owner.
func (s *RequestService) History(ctx context.Context, actor *policy.Actor, requestID string) ([]domain.RequestHistory, error) {
	if err := authenticated(actor); err != nil {
		return nil, err
	}
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionViewHistory, policy.Resource{OwnerID: request.OwnerID}); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}

func (s *RequestService) load(ctx context.Context, requestID string) (*domain.Request, error) {
	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, storeError(err, "request")
	}
	return request, nil
}

// loadOwned applies the ownership rules of action to the stored owner, so a consumer
// reaching another user's request gets 403 whatever owner the path names.
// Past that, a request outside ownerID's collection is absent from it.
func (s *RequestService) loadOwned(ctx context.Context, actor *policy.Actor, action policy.Action, ownerID, requestID string) (*domain.Request, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, action, policy.Resource{OwnerID: request.OwnerID}); err != nil {
		return nil, err
	}
	if request.OwnerID != ownerID {
		return nil, apperrors.NewNotFound("request", nil)
	}
	return request, nil
}

// writeError maps a failed request write. A stale write is reported against the
// status that won the race.
func (s *RequestService) writeError(ctx context.Context, err error, requestID, verb string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewDuplicate(similarRequestMessage)
	case errors.Is(err, repository.ErrStale):
		current, loadErr := s.load(ctx, requestID)
		if loadErr != nil {
			return loadErr
		}
		return domain.TransitionConflict(verb, current.Status)
	default:
		return storeError(err, "request")
	}
}

func (s *RequestService) record(ctx context.Context, actor *policy.Actor, requestID string, change domain.RequestChangeType, action string, oldValue, newValue map[string]any) error {
	if s.history == nil {
		return nil
	}
	entry := &domain.RequestHistory{
		ID:          uuid.NewString(),
		RequestID:   requestID,
		ChangedByID: actor.UserID,
		ChangedBy:   actor.Role,
		ChangeType:  change,
		Action:      action,
		OldValue:    oldValue,
		NewValue:    newValue,
		CreatedAt:   s.now(),
	}
	if err := s.history.Create(ctx, entry); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}
