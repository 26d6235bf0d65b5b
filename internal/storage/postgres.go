package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ryanbastic/go-chronos/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// PostgreSQL error codes mapped to sentinels.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a Store backed by pool.
// queryTimeout sets the per-query context deadline; zero means no timeout.
func NewPostgresStore(pool *pgxpool.Pool, queryTimeout time.Duration) *PostgresStore {
	return &PostgresStore{
		pool:         pool,
		queryTimeout: queryTimeout,
	}
}

// withTimeout derives a child context with the configured query timeout.
// If queryTimeout is zero, the parent context is returned unchanged.
func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

// mapError converts driver errors into the package sentinels.
func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", op, ErrConflict)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.pool.Ping(ctx)
}

const userColumns = `id, subject, email, name, avatar_url, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Subject, &u.Email, &u.Name, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) UpsertUser(ctx context.Context, identity model.Identity) (*model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO users (subject, email, name, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (subject) DO UPDATE
			SET email = EXCLUDED.email, updated_at = now()
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, query,
		identity.Subject, identity.Email, identity.Name, identity.AvatarURL))
	if err != nil {
		return nil, mapError("upsert user", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("get user", err)
	}
	return u, nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id uuid.UUID, update model.ProfileUpdate) (*model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE users
		SET name = COALESCE($2, name),
			avatar_url = COALESCE($3, avatar_url),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, query, id, update.Name, update.AvatarURL))
	if err != nil {
		return nil, mapError("update profile", err)
	}
	return u, nil
}

const matrixColumns = `id, owner_id, name, start_date, end_date, start_time, end_time, interval_minutes, created_at`

func scanMatrix(row pgx.Row) (*model.Matrix, error) {
	var (
		m          model.Matrix
		start, end time.Time
	)
	err := row.Scan(&m.ID, &m.OwnerID, &m.Name, &start, &end,
		&m.Config.StartTime, &m.Config.EndTime, &m.Config.Interval, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Config.MatrixID = m.ID
	m.Config.StartDate = start.Format(model.DateLayout)
	m.Config.EndDate = end.Format(model.DateLayout)
	return &m, nil
}

func (s *PostgresStore) CreateMatrix(ctx context.Context, ownerID uuid.UUID, req model.NewMatrix) (*model.Matrix, error) {
	start, err := model.ParseDate(req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("create matrix: %w", err)
	}
	end, err := model.ParseDate(req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("create matrix: %w", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO matrices (owner_id, name, start_date, end_date, start_time, end_time, interval_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + matrixColumns

	m, err := scanMatrix(s.pool.QueryRow(ctx, query,
		ownerID, req.Name, start, end, req.StartTime, req.EndTime, req.Interval))
	if err != nil {
		return nil, mapError("create matrix", err)
	}
	return m, nil
}

func (s *PostgresStore) GetMatrix(ctx context.Context, ownerID, id uuid.UUID) (*model.Matrix, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + matrixColumns + ` FROM matrices WHERE id = $1 AND owner_id = $2`
	m, err := scanMatrix(s.pool.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		return nil, mapError("get matrix", err)
	}
	return m, nil
}

func (s *PostgresStore) ListMatrices(ctx context.Context, ownerID uuid.UUID, cursor string, limit int) (*MatrixPage, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	var (
		afterCreated *time.Time
		afterID      uuid.UUID
	)
	if cursor != "" {
		c, err := DecodeCursor(cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		createdAt, id, err := c.position()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		afterCreated, afterID = &createdAt, id
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + matrixColumns + `
		FROM matrices
		WHERE owner_id = $1
			AND ($2::timestamptz IS NULL OR (created_at, id) < ($2, $3))
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`
	// One extra row tells whether another page exists.
	rows, err := s.pool.Query(ctx, query, ownerID, afterCreated, afterID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list matrices: %w", err)
	}
	defer rows.Close()

	page := &MatrixPage{Matrices: []model.Matrix{}}
	for rows.Next() {
		m, err := scanMatrix(rows)
		if err != nil {
			return nil, fmt.Errorf("list matrices scan: %w", err)
		}
		page.Matrices = append(page.Matrices, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list matrices rows: %w", err)
	}

	if len(page.Matrices) > limit {
		page.Matrices = page.Matrices[:limit]
		last := page.Matrices[limit-1]
		next := Cursor{CreatedAt: last.CreatedAt.Format(time.RFC3339Nano), ID: last.ID.String()}
		encoded, err := next.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode next cursor: %w", err)
		}
		page.NextCursor = encoded
		page.HasMore = true
	}
	return page, nil
}

func (s *PostgresStore) DeleteMatrix(ctx context.Context, ownerID, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM matrices WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete matrix: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const categoryColumns = `id, matrix_id, name, color, created_at`

func scanCategory(row pgx.Row) (*model.Category, error) {
	var c model.Category
	if err := row.Scan(&c.ID, &c.MatrixID, &c.Name, &c.Color, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context, matrixID uuid.UUID) ([]model.Category, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE matrix_id = $1 ORDER BY created_at, id`
	rows, err := s.pool.Query(ctx, query, matrixID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("list categories scan: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (s *PostgresStore) CreateCategory(ctx context.Context, matrixID uuid.UUID, name, color string) (*model.Category, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO categories (matrix_id, name, color)
		VALUES ($1, $2, $3)
		RETURNING ` + categoryColumns

	c, err := scanCategory(s.pool.QueryRow(ctx, query, matrixID, name, color))
	if err != nil {
		return nil, mapError("create category", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, matrixID, id uuid.UUID, name, color string) (*model.Category, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE categories SET name = $3, color = $4
		WHERE id = $1 AND matrix_id = $2
		RETURNING ` + categoryColumns

	c, err := scanCategory(s.pool.QueryRow(ctx, query, id, matrixID, name, color))
	if err != nil {
		return nil, mapError("update category", err)
	}
	return c, nil
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, matrixID, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND matrix_id = $2`, id, matrixID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListCells(ctx context.Context, matrixID uuid.UUID) ([]model.Cell, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return listCells(ctx, s.pool, matrixID)
}

func (s *PostgresStore) ApplyCells(ctx context.Context, matrixID uuid.UUID, cells []model.Cell) ([]model.Cell, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result []model.Cell
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range cells {
			if color := c.Color(); color == model.Unfilled {
				batch.Queue(`DELETE FROM cells WHERE matrix_id = $1 AND idx = $2`, matrixID, c.Index)
			} else {
				batch.Queue(`
					INSERT INTO cells (matrix_id, idx, color)
					VALUES ($1, $2, $3)
					ON CONFLICT (matrix_id, idx) DO UPDATE
						SET color = EXCLUDED.color, updated_at = now()
				`, matrixID, c.Index, color)
			}
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}

		var err error
		result, err = listCells(ctx, tx, matrixID)
		return err
	})
	if err != nil {
		return nil, mapError("apply cells", err)
	}
	return result, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listCells(ctx context.Context, q querier, matrixID uuid.UUID) ([]model.Cell, error) {
	rows, err := q.Query(ctx, `SELECT idx, color FROM cells WHERE matrix_id = $1 ORDER BY idx`, matrixID)
	if err != nil {
		return nil, fmt.Errorf("list cells: %w", err)
	}
	defer rows.Close()

	cells := []model.Cell{}
	for rows.Next() {
		var (
			idx   int
			color string
		)
		if err := rows.Scan(&idx, &color); err != nil {
			return nil, fmt.Errorf("list cells scan: %w", err)
		}
		cells = append(cells, model.NewCell(idx, color))
	}
	return cells, rows.Err()
}
