// Package postgres implements the repository contracts on PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-system/internal/models"
	"restaurant-system/internal/repository"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
)

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ repository.TableRepository    = (*TableRepository)(nil)
	_ repository.CategoryRepository = (*CategoryRepository)(nil)
	_ repository.ProductRepository  = (*ProductRepository)(nil)
	_ repository.WaiterRepository   = (*WaiterRepository)(nil)
	_ repository.UserRepository     = (*UserRepository)(nil)
	_ repository.OrderRepository    = (*OrderRepository)(nil)
)

// Repositories groups every PostgreSQL repository over one pool
type Repositories struct {
	Tables     *TableRepository
	Categories *CategoryRepository
	Products   *ProductRepository
	Waiters    *WaiterRepository
	Users      *UserRepository
	Orders     *OrderRepository
}

func New(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Tables:     &TableRepository{pool: pool},
		Categories: &CategoryRepository{pool: pool},
		Products:   &ProductRepository{pool: pool},
		Waiters:    &WaiterRepository{pool: pool},
		Users:      &UserRepository{pool: pool},
		Orders:     &OrderRepository{pool: pool},
	}
}

// mapError translates driver errors into the model error taxonomy
func mapError(err error, entity, key string) error {
	if err == nil || isDomainError(err) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", models.ErrNotFound, entity, key)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s already exists (%s)", models.ErrConflict, entity, pgErr.ConstraintName)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s references a missing record (%s)", models.ErrInvalidInput, entity, pgErr.ConstraintName)
		case checkViolation:
			return fmt.Errorf("%w: %s violates %s", models.ErrInvalidInput, entity, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", entity, err)
}

func isDomainError(err error) bool {
	for _, target := range []error{models.ErrNotFound, models.ErrConflict, models.ErrInvalidInput} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// validID reports whether id can be a primary key. Malformed ids cannot
// match any row, so lookups report them as not found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFound(entity, key string) error {
	return fmt.Errorf("%w: %s %s", models.ErrNotFound, entity, key)
}

// affected returns NotFound when a write matched no row
func affected(tag pgconn.CommandTag, entity, key string) error {
	if tag.RowsAffected() == 0 {
		return notFound(entity, key)
	}
	return nil
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}
