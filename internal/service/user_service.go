package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-tracker/internal/auth"
	"github.com/spec-kit/maintenance-tracker/internal/domain"
	"github.com/spec-kit/maintenance-tracker/internal/events"
	"github.com/spec-kit/maintenance-tracker/internal/observability"
	"github.com/spec-kit/maintenance-tracker/internal/policy"
	"github.com/spec-kit/maintenance-tracker/internal/repository"
	"github.com/spec-kit/maintenance-tracker/internal/validation"
	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

// UserService coordinates registration, sessions, password resets and role changes.
type UserService struct {
	users    repository.UserRepository
	sessions *auth.SessionStore
	hasher   *auth.Hasher
	metrics  *observability.Metrics
	events   eventPublisher
	now      func() time.Time
}

// UserDependencies encapsulates requirements for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Sessions   *auth.SessionStore
	Hasher     *auth.Hasher
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	now := defaultClock(deps.Now)
	return &UserService{
		users:    deps.UserRepo,
		sessions: deps.Sessions,
		hasher:   deps.Hasher,
		metrics:  deps.Metrics,
		events:   eventPublisher{dispatcher: deps.Dispatcher, logger: defaultLogger(deps.Logger), now: now},
		now:      now,
	}
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email            string
	Password         string
	ConfirmPassword  string
	SecurityQuestion string
	SecurityAnswer   string
	Role             string
}

// Register creates a user. Email uniqueness is enforced by the store.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.UserView, error) {
	if err := required(
		"email", input.Email,
		"password", input.Password,
		"confirm_password", input.ConfirmPassword,
		"security_question", input.SecurityQuestion,
		"security_answer", input.SecurityAnswer,
	); err != nil {
		return domain.UserView{}, err
	}
	if input.Password != input.ConfirmPassword {
		return domain.UserView{}, apperrors.NewBadRequest("passwords do not match")
	}
	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return domain.UserView{}, err
	}
	for _, check := range []error{
		validation.Email(input.Email),
		validation.Password(input.Password),
		validation.SecurityQuestion(input.SecurityQuestion),
		validation.SecurityAnswer(input.SecurityAnswer),
	} {
		if check != nil {
			return domain.UserView{}, check
		}
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.UserView{}, apperrors.NewInternalError(err)
	}
	answerHash, err := s.hasher.Hash(input.SecurityAnswer)
	if err != nil {
		return domain.UserView{}, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		ID:                 uuid.NewString(),
		Email:              input.Email,
		PasswordHash:       passwordHash,
		SecurityQuestion:   input.SecurityQuestion,
		SecurityAnswerHash: answerHash,
		Role:               role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.UserView{}, apperrors.NewDuplicate("user with similar email exists")
		}
		return domain.UserView{}, apperrors.NewInternalError(err)
	}

	s.metrics.RecordRegistration()
	s.events.publish(ctx, events.Event{
		Type:      events.EventUserRegistered,
		SubjectID: user.ID,
		Actor:     events.Actor{UserID: user.ID, Role: user.Role},
		Payload:   events.UserRegisteredPayload{Email: user.Email, Role: user.Role},
	})
	return user.SafeView(), nil
}

// LoginResult carries the issued session and the user it belongs to.
type LoginResult struct {
	Session domain.Session
	User    domain.UserView
}

// Login verifies credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := required("email", email, "password", password); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.RecordLogin("not_found")
		}
		return nil, storeError(err, "user")
	}
	ok, err := s.hasher.Matches(user.PasswordHash, password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !ok {
		s.metrics.RecordLogin("invalid_password")
		return nil, apperrors.NewUnauthorized("invalid password")
	}

	session, err := s.sessions.Issue(user)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLogin("success")
	return &LoginResult{Session: session, User: user.SafeView()}, nil
}

// Logout revokes the token the caller authenticated with.
func (s *UserService) Logout(ctx context.Context, identity *domain.Identity) error {
	if identity == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	return s.sessions.Revoke(ctx, *identity)
}

// ResetPasswordInput is the security-question reset payload.
type ResetPasswordInput struct {
	Email            string
	SecurityQuestion string
	SecurityAnswer   string
	NewPassword      string
}

// ResetPassword replaces the password of the user who answers their security question.
func (s *UserService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if err := required(
		"email", input.Email,
		"security_question", input.SecurityQuestion,
		"security_answer", input.SecurityAnswer,
		"new_password", input.NewPassword,
	); err != nil {
		return err
	}
	if err := validation.Password(input.NewPassword); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return storeError(err, "user")
	}
	if user.SecurityQuestion != input.SecurityQuestion {
		return apperrors.NewBadRequest("wrong security question!")
	}
	ok, err := s.hasher.Matches(user.SecurityAnswerHash, input.SecurityAnswer)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !ok {
		return apperrors.NewBadRequest("wrong security answer!")
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return storeError(err, "user")
	}

	s.events.publish(ctx, events.Event{
		Type:      events.EventUserPasswordReset,
		SubjectID: user.ID,
		Actor:     events.Actor{UserID: user.ID, Role: user.Role},
	})
	return nil
}

// ListUsers returns every user. Administrators only.
func (s *UserService) ListUsers(ctx context.Context, actor *policy.Actor) ([]domain.UserView, error) {
	if err := policy.Authorize(actor, policy.ActionListUsers, policy.Resource{}); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	views := make([]domain.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].SafeView())
	}
	return views, nil
}

// GetUser returns one user. Consumers may only look themselves up.
func (s *UserService) GetUser(ctx context.Context, actor *policy.Actor, userID string) (domain.UserView, error) {
	if err := policy.Authorize(actor, policy.ActionViewUser, policy.Resource{OwnerID: userID}); err != nil {
		return domain.UserView{}, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.UserView{}, storeError(err, "user")
	}
	return user.SafeView(), nil
}

// RoleChangeResult describes the outcome of promote/demote.
type RoleChangeResult struct {
	User    domain.UserView
	Changed bool
	Message string
}

// ChangeRole promotes or demotes a user. Targeting a user already in the role is a no-op.
func (s *UserService) ChangeRole(ctx context.Context, actor *policy.Actor, targetID, rawAction string) (*RoleChangeResult, error) {
	if err := policy.Authorize(actor, policy.ActionChangeRole, policy.Resource{}); err != nil {
		return nil, err
	}
	action, err := domain.ParseRoleAction(rawAction)
	if err != nil {
		return nil, err
	}
	if targetID == actor.UserID {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("cannot %s yourself", action))
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, storeError(err, "user")
	}

	newRole := action.TargetRole()
	if target.Role == newRole {
		s.metrics.RecordRoleChange(string(action), "unchanged")
		return &RoleChangeResult{User: target.SafeView(), Message: action.AlreadyMessage(target.Email)}, nil
	}

	oldRole := target.Role
	if err := s.users.UpdateRole(ctx, target.ID, newRole); err != nil {
		return nil, storeError(err, "user")
	}
	target.Role = newRole

	s.metrics.RecordRoleChange(string(action), "changed")
	s.events.publish(ctx, events.Event{
		Type:      events.EventUserRoleChanged,
		SubjectID: target.ID,
		Actor:     eventActor(actor),
		Payload:   events.UserRoleChangedPayload{Email: target.Email, OldRole: oldRole, NewRole: newRole},
	})
	return &RoleChangeResult{User: target.SafeView(), Changed: true, Message: action.DoneMessage(target.Email)}, nil
}
