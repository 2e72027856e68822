package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/maintenance-tracker/internal/auth"
	"github.com/spec-kit/maintenance-tracker/internal/config"
	"github.com/spec-kit/maintenance-tracker/internal/domain"
	"github.com/spec-kit/maintenance-tracker/internal/events"
	"github.com/spec-kit/maintenance-tracker/internal/policy"
	"github.com/spec-kit/maintenance-tracker/internal/repository"
	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

const (
	testPassword    = "password.Pa55word"
	testQuestion    = "What is your favourite company?"
	testAnswer      = "company"
	testTitle       = "Laptop Repair"
	testDescription = "Water spilled onto my keyboard. I need it replaced"
)

type fixture struct {
	stores   repository.Stores
	sessions *auth.SessionStore
	users    *UserService
	requests *RequestService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := repository.NewMemoryStores()
	sessions := auth.NewSessionStore(auth.NewTokenManager("test-secret", time.Hour), auth.NewMemoryRevocationList())
	dispatcher := events.NewBus()
	NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{EmailFrom: "noreply@x.com"}).RegisterHandlers()

	return &fixture{
		stores:   stores,
		sessions: sessions,
		users: NewUserService(UserDependencies{
			UserRepo:   stores.Users,
			Sessions:   sessions,
			Hasher:     auth.NewHasher(bcrypt.MinCost),
			Dispatcher: dispatcher,
		}),
		requests: NewRequestService(RequestDependencies{
			RequestRepo: stores.Requests,
			UserRepo:    stores.Users,
			HistoryRepo: stores.History,
			Dispatcher:  dispatcher,
		}),
	}
}

func registerInput(email string) RegisterInput {
	return RegisterInput{
		Email:            email,
		Password:         testPassword,
		ConfirmPassword:  testPassword,
		SecurityQuestion: testQuestion,
		SecurityAnswer:   testAnswer,
	}
}

func (f *fixture) register(t *testing.T, email string, role domain.Role) *policy.Actor {
	t.Helper()
	input := registerInput(email)
	input.Role = string(role)
	view, err := f.users.Register(context.Background(), input)
	require.NoError(t, err)
	return &policy.Actor{UserID: view.UserID, Role: view.Role}
}

func (f *fixture) createRequest(t *testing.T, owner *policy.Actor, title string) *domain.Request {
	t.Helper()
	request, err := f.requests.Create(context.Background(), owner, owner.UserID, CreateRequestInput{
		Title:       title,
		Description: testDescription,
	})
	require.NoError(t, err)
	return request
}

func requireDomainError(t *testing.T, err error, status int, message string) {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, status, domainErr.HTTPStatus, "unexpected status for %q", err.Error())
	assert.Equal(t, message, domainErr.Message)
}

