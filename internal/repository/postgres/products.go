package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-system/internal/database"
	"restaurant-system/internal/models"
)

type CategoryRepository struct {
	pool *pgxpool.Pool
}

func scanCategory(row pgx.CollectableRow) (models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.Category, error) {
	if !validID(id) {
		return nil, notFound("category", id)
	}
	rows, err := r.pool.Query(ctx, database.SelectCategoryByIDSQL, id)
	if err != nil {
		return nil, mapError(err, "category", id)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		return nil, mapError(err, "category", id)
	}
	return &c, nil
}

func (r *CategoryRepository) FindAll(ctx context.Context) ([]models.Category, error) {
	rows, err := r.pool.Query(ctx, database.SelectCategoriesSQL)
	if err != nil {
		return nil, mapError(err, "categories", "")
	}
	categories, err := pgx.CollectRows(rows, scanCategory)
	if err != nil {
		return nil, mapError(err, "categories", "")
	}
	return categories, nil
}

type ProductRepository struct {
	pool *pgxpool.Pool
}

func scanProduct(row pgx.CollectableRow) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.CategoryID, &p.Price,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	product.ID = newID(product.ID)
	err := r.pool.QueryRow(ctx, database.InsertProductSQL,
		product.ID, product.Name, product.Description, product.ImageURL, product.CategoryID,
		product.Price, product.IsActive,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	return mapError(err, "product", product.Name)
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	if !validID(id) {
		return nil, notFound("product", id)
	}
	rows, err := r.pool.Query(ctx, database.SelectProductByIDSQL, id)
	if err != nil {
		return nil, mapError(err, "product", id)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		return nil, mapError(err, "product", id)
	}
	return &p, nil
}

func (r *ProductRepository) FindAll(ctx context.Context) ([]models.Product, error) {
	return r.list(ctx, database.SelectProductsSQL)
}

func (r *ProductRepository) FindByCategoryID(ctx context.Context, categoryID string) ([]models.Product, error) {
	if !validID(categoryID) {
		return []models.Product{}, nil
	}
	return r.list(ctx, database.SelectProductsByCategorySQL, categoryID)
}

func (r *ProductRepository) FindActive(ctx context.Context) ([]models.Product, error) {
	return r.list(ctx, database.SelectActiveProductsSQL)
}

func (r *ProductRepository) FindByName(ctx context.Context, name string) ([]models.Product, error) {
	return r.list(ctx, database.SelectProductsByNameSQL, name)
}

func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	if !validID(product.ID) {
		return notFound("product", product.ID)
	}
	err := r.pool.QueryRow(ctx, database.UpdateProductSQL,
		product.ID, product.Name, product.Description, product.ImageURL, product.CategoryID,
		product.Price, product.IsActive,
	).Scan(&product.UpdatedAt)
	return mapError(err, "product", product.ID)
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound("product", id)
	}
	tag, err := r.pool.Exec(ctx, database.DeleteProductSQL, id)
	if err != nil {
		return mapError(err, "product", id)
	}
	return affected(tag, "product", id)
}

func (r *ProductRepository) list(ctx context.Context, sql string, args ...any) ([]models.Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, "products", "")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, mapError(err, "products", "")
	}
	return products, nil
}
