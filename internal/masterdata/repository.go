package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eduims/eduims-backend/internal/platform/db"
	"github.com/eduims/eduims-backend/internal/shared"
)

// Repository provides PostgreSQL backed master data persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	return err
}

// --- business units ---

func (r *Repository) CreateBusinessUnit(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO business_units (name, is_active, created_at, updated_at)
		 VALUES ($1, true, now(), now()) RETURNING id`, name).Scan(&id)
	return id, err
}

func (r *Repository) UpdateBusinessUnit(ctx context.Context, id int64, name string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE business_units SET name = $2, is_active = $3, updated_at = now() WHERE id = $1`,
		id, name, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) ListBusinessUnits(ctx context.Context) ([]BusinessUnit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, is_active, created_at, updated_at FROM business_units ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BusinessUnit
	for rows.Next() {
		var b BusinessUnit
		if err := rows.Scan(&b.ID, &b.Name, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// --- products ---

func (r *Repository) CreateProduct(ctx context.Context, name, info string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, info, is_active, created_at, updated_at)
		 VALUES ($1, $2, true, now(), now()) RETURNING id`, name, info).Scan(&id)
	return id, err
}

func (r *Repository) UpdateProduct(ctx context.Context, id int64, name, info string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET name = $2, info = $3, is_active = $4, updated_at = now() WHERE id = $1`,
		id, name, info, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(info, ''), is_active, created_at, updated_at FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Info, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- service offerings ---

func (r *Repository) CreateServiceOffering(ctx context.Context, name, info string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO service_offerings (name, info, is_active, created_at, updated_at)
		 VALUES ($1, $2, true, now(), now()) RETURNING id`, name, info).Scan(&id)
	return id, err
}

func (r *Repository) UpdateServiceOffering(ctx context.Context, id int64, name, info string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE service_offerings SET name = $2, info = $3, is_active = $4, updated_at = now() WHERE id = $1`,
		id, name, info, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) ListServiceOfferings(ctx context.Context) ([]ServiceOffering, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(info, ''), is_active, created_at, updated_at FROM service_offerings ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ServiceOffering
	for rows.Next() {
		var s ServiceOffering
		if err := rows.Scan(&s.ID, &s.Name, &s.Info, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// --- customers ---

func (r *Repository) CreateCustomer(ctx context.Context, c *Customer) (int64, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO customers (customer_name, business_name, email, whatsapp_no, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, true, now(), now()) RETURNING id`,
		c.Name, c.BusinessName, c.Email, c.WhatsAppNo).Scan(&c.ID)
	return c.ID, err
}

func (r *Repository) UpdateCustomer(ctx context.Context, c *Customer) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE customers SET customer_name = $2, business_name = $3, email = $4,
		        whatsapp_no = $5, is_active = $6, updated_at = now()
		 WHERE id = $1`,
		c.ID, c.Name, c.BusinessName, c.Email, c.WhatsAppNo, c.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetCustomer loads a customer with its ledger accounts and their branches.
func (r *Repository) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx,
		`SELECT id, customer_name, COALESCE(business_name, ''), COALESCE(email, ''),
		        COALESCE(whatsapp_no, ''), is_active, created_at, updated_at
		   FROM customers WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.BusinessName, &c.Email, &c.WhatsAppNo, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.customer_id, a.account_title,
		        b.id, b.branch_name, COALESCE(b.address, '')
		   FROM customer_ledger_accounts a
		   LEFT JOIN customer_branches b ON b.account_id = a.id
		  WHERE a.customer_id = $1
		  ORDER BY a.id, b.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byAccount := map[int64]int{}
	for rows.Next() {
		var acc LedgerAccount
		var branchID *int64
		var branchName, branchAddr *string
		if err := rows.Scan(&acc.ID, &acc.CustomerID, &acc.Title, &branchID, &branchName, &branchAddr); err != nil {
			return nil, err
		}
		idx, seen := byAccount[acc.ID]
		if !seen {
			c.Accounts = append(c.Accounts, acc)
			idx = len(c.Accounts) - 1
			byAccount[acc.ID] = idx
		}
		if branchID != nil {
			c.Accounts[idx].Branches = append(c.Accounts[idx].Branches, Branch{
				ID:        *branchID,
				AccountID: acc.ID,
				Name:      derefStr(branchName),
				Address:   derefStr(branchAddr),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &c, nil
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *Repository) ListCustomers(ctx context.Context, search string) ([]Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, customer_name, COALESCE(business_name, ''), COALESCE(email, ''),
		        COALESCE(whatsapp_no, ''), is_active, created_at, updated_at
		   FROM customers
		  WHERE $1 = '' OR customer_name ILIKE '%' || $1 || '%' OR business_name ILIKE '%' || $1 || '%'
		  ORDER BY customer_name`, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.BusinessName, &c.Email, &c.WhatsAppNo, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) AddLedgerAccount(ctx context.Context, customerID int64, title string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO customer_ledger_accounts (customer_id, account_title) VALUES ($1, $2) RETURNING id`,
		customerID, title).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("add ledger account: %w", err)
	}
	return id, nil
}

func (r *Repository) AddBranch(ctx context.Context, accountID int64, name, address string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO customer_branches (account_id, branch_name, address) VALUES ($1, $2, $3) RETURNING id`,
		accountID, name, address).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("add branch: %w", err)
	}
	return id, nil
}

// --- sessions ---

func (r *Repository) CreateSession(ctx context.Context, s *Session) (int64, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sessions (title, starts_at, ends_at, is_current)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		s.Title, s.StartsAt, s.EndsAt, s.IsCurrent).Scan(&s.ID)
	return s.ID, err
}

func (r *Repository) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, starts_at, ends_at, is_current FROM sessions ORDER BY starts_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Title, &s.StartsAt, &s.EndsAt, &s.IsCurrent); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SetCurrentSession makes one session current and clears the flag elsewhere.
func (r *Repository) SetCurrentSession(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE sessions SET is_current = false WHERE is_current`); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE sessions SET is_current = true WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// --- dropdown sources ---

type labelRow struct {
	ID    int64
	Label string
}

func (r *Repository) selectRows(ctx context.Context, query string, args ...any) ([]labelRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []labelRow
	for rows.Next() {
		var lr labelRow
		if err := rows.Scan(&lr.ID, &lr.Label); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

func (r *Repository) SelectBusinessUnits(ctx context.Context) ([]labelRow, error) {
	return r.selectRows(ctx, `SELECT id, name FROM business_units WHERE is_active ORDER BY name`)
}

func (r *Repository) SelectProducts(ctx context.Context) ([]labelRow, error) {
	return r.selectRows(ctx, `SELECT id, name FROM products WHERE is_active ORDER BY name`)
}

func (r *Repository) SelectServiceOfferings(ctx context.Context) ([]labelRow, error) {
	return r.selectRows(ctx, `SELECT id, name FROM service_offerings WHERE is_active ORDER BY name`)
}

func (r *Repository) SelectCustomers(ctx context.Context) ([]labelRow, error) {
	return r.selectRows(ctx, `SELECT id, customer_name FROM customers WHERE is_active ORDER BY customer_name`)
}

func (r *Repository) SelectAccounts(ctx context.Context, customerID int64) ([]labelRow, error) {
	return r.selectRows(ctx,
		`SELECT id, account_title FROM customer_ledger_accounts WHERE customer_id = $1 ORDER BY account_title`,
		customerID)
}

// SelectBranches lists branches for a ledger account; branches key off the
// account, not the customer.
func (r *Repository) SelectBranches(ctx context.Context, accountID int64) ([]labelRow, error) {
	return r.selectRows(ctx,
		`SELECT id, branch_name FROM customer_branches WHERE account_id = $1 ORDER BY branch_name`,
		accountID)
}

func (r *Repository) SelectSessions(ctx context.Context) ([]labelRow, error) {
	return r.selectRows(ctx, `SELECT id, title FROM sessions ORDER BY starts_at DESC`)
}
