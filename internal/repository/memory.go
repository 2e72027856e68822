package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/maintenance-tracker/internal/domain"
)

// The in-memory stores back the service when no database is configured and in tests.
// Each store guards its state with one mutex so uniqueness checks and writes are atomic.
// Values are copied on the way in and out.

// MemoryUserRepository keeps users in maps keyed by id and email.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string
	order   []string
}

// NewMemoryUserRepository returns an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return ErrDuplicate
	}
	if _, exists := r.byID[user.ID]; exists {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	r.order = append(r.order, user.ID)
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	user := r.byID[id]
	return &user, nil
}

func (r *MemoryUserRepository) UpdateRole(_ context.Context, id string, role domain.Role) error {
	return r.update(id, func(u *domain.User) { u.Role = role })
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.update(id, func(u *domain.User) { u.PasswordHash = passwordHash })
}

func (r *MemoryUserRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.User, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.byID[id])
	}
	return result, nil
}

func (r *MemoryUserRepository) update(id string, mutate func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	mutate(&user)
	user.UpdatedAt = time.Now().UTC()
	r.byID[id] = user
	return nil
}

type similarityKey struct {
	title       string
	description string
}

// MemoryRequestRepository keeps requests with an index of active (title, description) pairs.
type MemoryRequestRepository struct {
	mu     sync.RWMutex
	byID   map[string]domain.Request
	active map[similarityKey]string
	order  []string
}

// NewMemoryRequestRepository returns an empty store.
func NewMemoryRequestRepository() *MemoryRequestRepository {
	return &MemoryRequestRepository{
		byID:   make(map[string]domain.Request),
		active: make(map[similarityKey]string),
	}
}

func (r *MemoryRequestRepository) Create(_ context.Context, request *domain.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[request.ID]; exists {
		return ErrDuplicate
	}
	key := similarityKey{request.Title, request.Description}
	if request.IsActive() {
		if _, exists := r.active[key]; exists {
			return ErrDuplicate
		}
		r.active[key] = request.ID
	}
	r.byID[request.ID] = copyRequest(*request)
	r.order = append(r.order, request.ID)
	return nil
}

func (r *MemoryRequestRepository) Update(_ context.Context, request *domain.Request, expected domain.RequestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[request.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != expected {
		return ErrStale
	}
	oldKey := similarityKey{current.Title, current.Description}
	newKey := similarityKey{request.Title, request.Description}
	if request.IsActive() {
		if owner, exists := r.active[newKey]; exists && owner != request.ID {
			return ErrDuplicate
		}
	}
	if current.IsActive() && r.active[oldKey] == request.ID {
		delete(r.active, oldKey)
	}
	if request.IsActive() {
		r.active[newKey] = request.ID
	}
	r.byID[request.ID] = copyRequest(*request)
	return nil
}

func (r *MemoryRequestRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	key := similarityKey{current.Title, current.Description}
	if r.active[key] == id {
		delete(r.active, key)
	}
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRequestRepository) GetByID(_ context.Context, id string) (*domain.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	request = copyRequest(request)
	return &request, nil
}

func (r *MemoryRequestRepository) FindSimilar(_ context.Context, title, description string) (*domain.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.active[similarityKey{title, description}]
	if !ok {
		return nil, ErrNotFound
	}
	request := copyRequest(r.byID[id])
	return &request, nil
}

func (r *MemoryRequestRepository) ListByOwner(_ context.Context, ownerID string) ([]domain.Request, error) {
	return r.list(func(req *domain.Request) bool { return req.OwnerID == ownerID }), nil
}

func (r *MemoryRequestRepository) List(_ context.Context, filter domain.RequestFilter) ([]domain.Request, error) {
	return r.list(filter.Matches), nil
}

func (r *MemoryRequestRepository) list(keep func(*domain.Request) bool) []domain.Request {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []domain.Request{}
	for _, id := range r.order {
		request := r.byID[id]
		if keep(&request) {
			result = append(result, copyRequest(request))
		}
	}
	return result
}

func copyRequest(r domain.Request) domain.Request {
	if r.LastModified != nil {
		t := *r.LastModified
		r.LastModified = &t
	}
	return r
}

// MemoryRequestHistoryRepository appends audit entries per request.
type MemoryRequestHistoryRepository struct {
	mu      sync.RWMutex
	entries map[string][]domain.RequestHistory
}

// NewMemoryRequestHistoryRepository returns an empty store.
func NewMemoryRequestHistoryRepository() *MemoryRequestHistoryRepository {
	return &MemoryRequestHistoryRepository{entries: make(map[string][]domain.RequestHistory)}
}

func (r *MemoryRequestHistoryRepository) Create(_ context.Context, history *domain.RequestHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[history.RequestID] = append(r.entries[history.RequestID], *history)
	return nil
}

func (r *MemoryRequestHistoryRepository) ListByRequest(_ context.Context, requestID string) ([]domain.RequestHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.RequestHistory, len(r.entries[requestID]))
	copy(result, r.entries[requestID])
	return result, nil
}

var (
	_ UserRepository           = (*MemoryUserRepository)(nil)
	_ RequestRepository        = (*MemoryRequestRepository)(nil)
	_ RequestHistoryRepository = (*MemoryRequestHistoryRepository)(nil)
)
