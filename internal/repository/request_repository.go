package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-tracker/internal/domain"
)

// RequestRepository encapsulates request persistence.
// Title and description are unique among active requests.
type RequestRepository interface {
	Create(ctx context.Context, request *domain.Request) error
	// Update writes request only while the stored status is still expected.
	// A row that moved on returns ErrStale.
	Update(ctx context.Context, request *domain.Request, expected domain.RequestStatus) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	FindSimilar(ctx context.Context, title, description string) (*domain.Request, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Request, error)
	List(ctx context.Context, filter domain.RequestFilter) ([]domain.Request, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `id, owner_id, requested_by, type, title, description, status, created_at, last_modified`

// activeStatuses mirrors the predicate of the partial unique index on (title, description).
var activeStatuses = []domain.RequestStatus{
	domain.RequestStatusPendingApproval,
	domain.RequestStatusApproved,
	domain.RequestStatusInProgress,
}

func (r *requestRepository) Create(ctx context.Context, request *domain.Request) error {
	const query = `
        INSERT INTO requests (id, owner_id, requested_by, type, title, description, status, created_at, last_modified)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.pool.Exec(ctx, query,
		request.ID,
		request.OwnerID,
		request.RequestedBy,
		request.Type,
		request.Title,
		request.Description,
		request.Status,
		request.CreatedAt,
		request.LastModified,
	)
	return mapError(err)
}

func (r *requestRepository) Update(ctx context.Context, request *domain.Request, expected domain.RequestStatus) error {
	const query = `
        UPDATE requests SET type=$1, title=$2, description=$3, status=$4, last_modified=$5
        WHERE id=$6 AND status=$7`
	cmd, err := r.pool.Exec(ctx, query,
		request.Type,
		request.Title,
		request.Description,
		request.Status,
		request.LastModified,
		request.ID,
		expected,
	)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM requests WHERE id=$1)`, request.ID).Scan(&exists); err != nil {
		return mapError(err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStale
}

func (r *requestRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM requests WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	request, err := scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id=$1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return request, nil
}

func (r *requestRepository) FindSimilar(ctx context.Context, title, description string) (*domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests
        WHERE title=$1 AND description=$2 AND status = ANY($3) LIMIT 1`
	statuses := make([]string, len(activeStatuses))
	for i, s := range activeStatuses {
		statuses[i] = string(s)
	}
	request, err := scanRequest(r.pool.QueryRow(ctx, query, title, description, statuses))
	if err != nil {
		return nil, mapError(err)
	}
	return request, nil
}

func (r *requestRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Request, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE owner_id=$1 ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *requestRepository) List(ctx context.Context, filter domain.RequestFilter) ([]domain.Request, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM requests WHERE %s ORDER BY created_at ASC`,
		requestColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var request domain.Request
	if err := row.Scan(
		&request.ID,
		&request.OwnerID,
		&request.RequestedBy,
		&request.Type,
		&request.Title,
		&request.Description,
		&request.Status,
		&request.CreatedAt,
		&request.LastModified,
	); err != nil {
		return nil, err
	}
	return &request, nil
}

func scanRequests(rows pgx.Rows) ([]domain.Request, error) {
	var result []domain.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *request)
	}
	return result, rows.Err()
}
