package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-system/internal/database"
	"restaurant-system/internal/models"
)

type TableRepository struct {
	pool *pgxpool.Pool
}

func scanTable(row pgx.CollectableRow) (models.Table, error) {
	var t models.Table
	err := row.Scan(&t.ID, &t.Number, &t.Status, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *TableRepository) Create(ctx context.Context, table *models.Table) error {
	table.ID = newID(table.ID)
	err := r.pool.QueryRow(ctx, database.InsertTableSQL, table.ID, table.Number, table.Status, table.IsActive).
		Scan(&table.CreatedAt, &table.UpdatedAt)
	return mapError(err, "table", fmt.Sprint(table.Number))
}

func (r *TableRepository) FindAll(ctx context.Context) ([]models.Table, error) {
	return r.list(ctx, database.SelectTablesSQL)
}

func (r *TableRepository) FindByID(ctx context.Context, id string) (*models.Table, error) {
	if !validID(id) {
		return nil, notFound("table", id)
	}
	return r.one(ctx, "table", id, database.SelectTableByIDSQL, id)
}

func (r *TableRepository) FindByNumber(ctx context.Context, number int) (*models.Table, error) {
	return r.one(ctx, "table number", fmt.Sprint(number), database.SelectTableByNumberSQL, number)
}

func (r *TableRepository) FindByStatus(ctx context.Context, status models.TableStatus) ([]models.Table, error) {
	return r.list(ctx, database.SelectTablesByStatusSQL, status)
}

func (r *TableRepository) FindActive(ctx context.Context) ([]models.Table, error) {
	return r.list(ctx, database.SelectActiveTablesSQL)
}

func (r *TableRepository) Update(ctx context.Context, table *models.Table) error {
	if !validID(table.ID) {
		return notFound("table", table.ID)
	}
	err := r.pool.QueryRow(ctx, database.UpdateTableSQL, table.ID, table.Number, table.Status, table.IsActive).
		Scan(&table.UpdatedAt)
	return mapError(err, "table", table.ID)
}

func (r *TableRepository) UpdateStatus(ctx context.Context, id string, status models.TableStatus) (*models.Table, error) {
	if !validID(id) {
		return nil, notFound("table", id)
	}
	return r.one(ctx, "table", id, database.UpdateTableStatusSQL, id, status)
}

func (r *TableRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("table", id)
	}
	tag, err := r.pool.Exec(ctx, database.DeleteTableSQL, id)
	if err != nil {
		return mapError(err, "table", id)
	}
	return affected(tag, "table", id)
}

func (r *TableRepository) ExistsByNumber(ctx context.Context, number int) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, database.TableNumberExistsSQL, number).Scan(&exists); err != nil {
		return false, mapError(err, "table", fmt.Sprint(number))
	}
	return exists, nil
}

func (r *TableRepository) one(ctx context.Context, entity, key, sql string, args ...any) (*models.Table, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, entity, key)
	}
	t, err := pgx.CollectExactlyOneRow(rows, scanTable)
	if err != nil {
		return nil, mapError(err, entity, key)
	}
	return &t, nil
}

func (r *TableRepository) list(ctx context.Context, sql string, args ...any) ([]models.Table, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "tables", "")
	}
	tables, err := pgx.CollectRows(rows, scanTable)
	if err != nil {
		return nil, mapError(err, "tables", "")
	}
	return tables, nil
}
