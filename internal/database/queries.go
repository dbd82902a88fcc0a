package database

// Migration bookkeeping
const (
	CreateMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`

	SelectAppliedMigrationsSQL = `SELECT migration_name FROM schema_migrations`

	InsertMigrationSQL = `INSERT INTO schema_migrations (migration_name) VALUES ($1)`
)

// Table queries
const (
	tableColumns = `id, number, status, is_active, created_at, updated_at`

	InsertTableSQL = `
		INSERT INTO dining_tables (id, number, status, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	SelectTablesSQL = `SELECT ` + tableColumns + ` FROM dining_tables ORDER BY number`

	SelectTableByIDSQL = `SELECT ` + tableColumns + ` FROM dining_tables WHERE id = $1`

	SelectTableByNumberSQL = `SELECT ` + tableColumns + ` FROM dining_tables WHERE number = $1`

	SelectTablesByStatusSQL = `
		SELECT ` + tableColumns + ` FROM dining_tables
		WHERE status = $1 AND is_active
		ORDER BY number`

	SelectActiveTablesSQL = `SELECT ` + tableColumns + ` FROM dining_tables WHERE is_active ORDER BY number`

	UpdateTableSQL = `
		UPDATE dining_tables SET number = $2, status = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	UpdateTableStatusSQL = `
		UPDATE dining_tables SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + tableColumns

	DeleteTableSQL = `DELETE FROM dining_tables WHERE id = $1`

	TableNumberExistsSQL = `SELECT EXISTS (SELECT 1 FROM dining_tables WHERE number = $1)`
)

// Category queries
const (
	categoryColumns = `id, name, description, created_at, updated_at`

	SelectCategoriesSQL = `SELECT ` + categoryColumns + ` FROM categories ORDER BY name`

	SelectCategoryByIDSQL = `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
)

// Product queries
const (
	productColumns = `id, name, description, image_url, category_id, price, is_active, created_at, updated_at`

	InsertProductSQL = `
		INSERT INTO products (id, name, description, image_url, category_id, price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	SelectProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY name`

	SelectProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	SelectProductsByCategorySQL = `SELECT ` + productColumns + ` FROM products WHERE category_id = $1 ORDER BY name`

	SelectActiveProductsSQL = `SELECT ` + productColumns + ` FROM products WHERE is_active ORDER BY name`

	SelectProductsByNameSQL = `
		SELECT ` + productColumns + ` FROM products
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name`

	UpdateProductSQL = `
		UPDATE products
		SET name = $2, description = $3, image_url = $4, category_id = $5, price = $6,
			is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	DeleteProductSQL = `DELETE FROM products WHERE id = $1`
)

// User and waiter queries
const (
	SelectUserByUserNameSQL = `
		SELECT id, user_name, password_hash, role, created_at
		FROM users WHERE user_name = $1`

	waiterColumns = `id, first_name, last_name, identification_number, phone_number, user_name,
		password_hash, created_at, updated_at`

	InsertWaiterSQL = `
		INSERT INTO waiters (id, first_name, last_name, identification_number, phone_number, user_name, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	SelectWaitersSQL = `SELECT ` + waiterColumns + ` FROM waiters ORDER BY created_at DESC`

	SelectWaiterByIDSQL = `SELECT ` + waiterColumns + ` FROM waiters WHERE id = $1`

	SelectWaiterByUserNameSQL = `SELECT ` + waiterColumns + ` FROM waiters WHERE user_name = $1`

	SelectWaiterByIdentificationSQL = `SELECT ` + waiterColumns + ` FROM waiters WHERE identification_number = $1`

	UpdateWaiterSQL = `
		UPDATE waiters SET first_name = $2, last_name = $3, phone_number = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	DeleteWaiterSQL = `DELETE FROM waiters WHERE id = $1`
)

// Order queries
const (
	orderColumns = `id, table_id, waiter_id, status, subtotal, tip, total, notes, created_at, updated_at, closed_at`

	InsertOrderSQL = `
		INSERT INTO orders (id, table_id, waiter_id, status, subtotal, tip, total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	InsertOrderItemSQL = `
		INSERT INTO order_items (id, order_id, product_id, product_name, product_image, quantity, unit_price, total_price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	SelectOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	SelectOrderForUpdateSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	SelectOrdersByTableSQL = `SELECT ` + orderColumns + ` FROM orders WHERE table_id = $1 ORDER BY created_at DESC`

	SelectActiveOrderByTableSQL = `
		SELECT ` + orderColumns + ` FROM orders
		WHERE table_id = $1 AND status <> 'billed'
		ORDER BY created_at DESC
		LIMIT 1`

	SelectOrdersByWaiterSQL = `SELECT ` + orderColumns + ` FROM orders WHERE waiter_id = $1 ORDER BY created_at DESC`

	SelectOrdersByStatusSQL = `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 ORDER BY created_at DESC`

	SelectActiveOrdersSQL = `SELECT ` + orderColumns + ` FROM orders WHERE status <> 'billed' ORDER BY created_at DESC`

	SelectOrdersByDateRangeSQL = `
		SELECT ` + orderColumns + ` FROM orders
		WHERE created_at BETWEEN $1 AND $2
		ORDER BY created_at DESC`

	SelectOrdersByWaiterAndDateRangeSQL = `
		SELECT ` + orderColumns + ` FROM orders
		WHERE waiter_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC`

	SelectOrderItemsSQL = `
		SELECT order_id, id, product_id, product_name, product_image, quantity, unit_price, total_price, notes
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`

	UpdateOrderSQL = `
		UPDATE orders
		SET subtotal = COALESCE($2, subtotal), tip = COALESCE($3, tip), total = COALESCE($4, total),
			notes = COALESCE($5, notes), updated_at = NOW()
		WHERE id = $1 AND status <> 'billed'`

	UpdateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 AND status <> 'billed'`

	RepriceOrderSQL = `
		UPDATE orders
		SET subtotal = $2, tip = $3, total = $4, updated_at = NOW()
		WHERE id = $1 AND status <> 'billed'`

	CloseOrderSQL = `
		UPDATE orders
		SET subtotal = $2, tip = $3, total = $4, status = 'billed', closed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status <> 'billed'`

	DeleteOrderItemSQL = `DELETE FROM order_items WHERE order_id = $1 AND id = $2`

	UpdateOrderItemSQL = `
		UPDATE order_items
		SET quantity = COALESCE($3, quantity), total_price = COALESCE($4, total_price), notes = COALESCE($5, notes)
		WHERE order_id = $1 AND id = $2`

	DeleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)
