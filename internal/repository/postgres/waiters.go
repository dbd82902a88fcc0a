package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-system/internal/database"
	"restaurant-system/internal/models"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func (r *UserRepository) FindByUserName(ctx context.Context, userName string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, database.SelectUserByUserNameSQL, userName).
		Scan(&u.ID, &u.UserName, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, mapError(err, "user", userName)
	}
	return &u, nil
}

type WaiterRepository struct {
	pool *pgxpool.Pool
}

func scanWaiter(row pgx.CollectableRow) (models.Waiter, error) {
	var w models.Waiter
	err := row.Scan(&w.ID, &w.FirstName, &w.LastName, &w.IdentificationNumber, &w.PhoneNumber,
		&w.UserName, &w.PasswordHash, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func (r *WaiterRepository) Create(ctx context.Context, waiter *models.Waiter) error {
	waiter.ID = newID(waiter.ID)
	err := r.pool.QueryRow(ctx, database.InsertWaiterSQL,
		waiter.ID, waiter.FirstName, waiter.LastName, waiter.IdentificationNumber,
		waiter.PhoneNumber, waiter.UserName, waiter.PasswordHash,
	).Scan(&waiter.CreatedAt, &waiter.UpdatedAt)
	return mapError(err, "waiter", waiter.IdentificationNumber)
}

func (r *WaiterRepository) FindAll(ctx context.Context) ([]models.Waiter, error) {
	rows, err := r.pool.Query(ctx, database.SelectWaitersSQL)
	if err != nil {
		return nil, mapError(err, "waiters", "")
	}
	waiters, err := pgx.CollectRows(rows, scanWaiter)
	if err != nil {
		return nil, mapError(err, "waiters", "")
	}
	return waiters, nil
}

func (r *WaiterRepository) FindByID(ctx context.Context, id string) (*models.Waiter, error) {
	if !validID(id) {
		return nil, notFound("waiter", id)
	}
	return r.one(ctx, "waiter", id, database.SelectWaiterByIDSQL, id)
}

func (r *WaiterRepository) FindByUserName(ctx context.Context, userName string) (*models.Waiter, error) {
	return r.one(ctx, "waiter", userName, database.SelectWaiterByUserNameSQL, userName)
}

func (r *WaiterRepository) FindByIdentificationNumber(ctx context.Context, identificationNumber string) (*models.Waiter, error) {
	return r.one(ctx, "waiter identification", identificationNumber, database.SelectWaiterByIdentificationSQL, identificationNumber)
}

func (r *WaiterRepository) Update(ctx context.Context, waiter *models.Waiter) error {
	if !validID(waiter.ID) {
		return notFound("waiter", waiter.ID)
	}
	err := r.pool.QueryRow(ctx, database.UpdateWaiterSQL, waiter.ID, waiter.FirstName, waiter.LastName, waiter.PhoneNumber).
		Scan(&waiter.UpdatedAt)
	return mapError(err, "waiter", waiter.ID)
}

func (r *WaiterRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("waiter", id)
	}
	tag, err := r.pool.Exec(ctx, database.DeleteWaiterSQL, id)
	if err != nil {
		return mapError(err, "waiter", id)
	}
	return affected(tag, "waiter", id)
}

func (r *WaiterRepository) one(ctx context.Context, entity, key, sql string, args ...any) (*models.Waiter, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, entity, key)
	}
	w, err := pgx.CollectExactlyOneRow(rows, scanWaiter)
	if err != nil {
		return nil, mapError(err, entity, key)
	}
	return &w, nil
}
