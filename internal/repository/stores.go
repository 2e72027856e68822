package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Stores groups the repositories the services depend on.
type Stores struct {
	Users    UserRepository
	Requests RequestRepository
	History  RequestHistoryRepository
}

// NewStores returns Postgres repositories, or in-memory ones when pool is nil.
func NewStores(pool *pgxpool.Pool) Stores {
	if pool == nil {
		return NewMemoryStores()
	}
	return Stores{
		Users:    NewUserRepository(pool),
		Requests: NewRequestRepository(pool),
		History:  NewRequestHistoryRepository(pool),
	}
}

// NewMemoryStores returns empty in-memory repositories.
func NewMemoryStores() Stores {
	return Stores{
		Users:    NewMemoryUserRepository(),
		Requests: NewMemoryRequestRepository(),
		History:  NewMemoryRequestHistoryRepository(),
	}
}
