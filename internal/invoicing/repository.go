package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eduims/eduims-backend/internal/platform/db"
	"github.com/eduims/eduims-backend/internal/shared"
)

// PGRepository provides PostgreSQL backed invoice persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// Create writes the master row with freshly assigned voucher numbers, then
// the detail and installment rows, in one repeatable-read transaction. The
// MAX()+1 numbering is safe because concurrent writers conflict and retry at
// this isolation level.
func (r *PGRepository) Create(ctx context.Context, inv *Invoice) (int64, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(invoice_no), 0) + 1,
			        COALESCE(MAX(session_based_voucher_no) FILTER (WHERE session_id = $1), 0) + 1
			   FROM customer_invoices`, inv.SessionID,
		).Scan(&inv.InvoiceNo, &inv.SessionBasedVoucherNo)
		if err != nil {
			return fmt.Errorf("assign voucher numbers: %w", err)
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO customer_invoices
			   (session_id, invoice_no, session_based_voucher_no, invoice_title, invoice_date, due_date,
			    customer_id, account_id, business_unit_id, document_no, description,
			    total_rate, total_cgs, total_discount, total_net_amount,
			    entry_user_id, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,now(),now())
			 RETURNING id`,
			inv.SessionID, inv.InvoiceNo, inv.SessionBasedVoucherNo, inv.InvoiceTitle, inv.InvoiceDate, inv.DueDate,
			inv.CustomerID, inv.AccountID, inv.BusinessUnitID, inv.DocumentNo, inv.Description,
			inv.Totals.TotalRate, inv.Totals.TotalCGS, inv.Totals.TotalDiscount, inv.Totals.TotalNetAmount,
			inv.EntryUserID,
		).Scan(&inv.ID)
		if err != nil {
			return err
		}

		return insertChildren(ctx, tx, inv.ID, inv.Detail, inv.Installments)
	})
	if err != nil {
		return 0, err
	}
	return inv.ID, nil
}

// Update rewrites the master and replaces all detail and installment rows.
// Voucher numbers are left untouched.
func (r *PGRepository) Update(ctx context.Context, inv *Invoice) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE customer_invoices SET
			   session_id = $2, invoice_title = $3, invoice_date = $4, due_date = $5,
			   customer_id = $6, account_id = $7, business_unit_id = $8,
			   document_no = $9, description = $10,
			   total_rate = $11, total_cgs = $12, total_discount = $13, total_net_amount = $14,
			   updated_at = now()
			 WHERE id = $1`,
			inv.ID, inv.SessionID, inv.InvoiceTitle, inv.InvoiceDate, inv.DueDate,
			inv.CustomerID, inv.AccountID, inv.BusinessUnitID,
			inv.DocumentNo, inv.Description,
			inv.Totals.TotalRate, inv.Totals.TotalCGS, inv.Totals.TotalDiscount, inv.Totals.TotalNetAmount,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM customer_invoice_detail WHERE invoice_id = $1`, inv.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM customer_invoice_installments WHERE invoice_id = $1`, inv.ID); err != nil {
			return err
		}
		return insertChildren(ctx, tx, inv.ID, inv.Detail, inv.Installments)
	})
}

func insertChildren(ctx context.Context, tx pgx.Tx, invoiceID int64, rows []DetailRow, installments []InstallmentRow) error {
	for i, row := range rows {
		_, err := tx.Exec(ctx,
			`INSERT INTO customer_invoice_detail
			   (invoice_id, row_no, invoice_type, business_unit_id, product_id, service_id, branch_id,
			    quantity, rate, cgs, amount, discount, net_amount, is_free, description)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			invoiceID, i+1, string(row.InvoiceType), row.BusinessUnitID, row.ProductID, row.ServiceID, row.BranchID,
			row.Quantity, row.Rate, row.CGS, row.Amount, row.Discount, row.NetAmount, row.IsFree, row.Description,
		)
		if err != nil {
			return fmt.Errorf("insert detail row %d: %w", i+1, err)
		}
	}
	for i, in := range installments {
		_, err := tx.Exec(ctx,
			`INSERT INTO customer_invoice_installments (invoice_id, row_no, due_date, amount)
			 VALUES ($1,$2,$3,$4)`,
			invoiceID, i+1, in.DueDate, in.Amount,
		)
		if err != nil {
			return fmt.Errorf("insert installment row %d: %w", i+1, err)
		}
	}
	return nil
}

// Get loads one invoice with its detail and installment rows.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Invoice, error) {
	var inv Invoice
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, invoice_no, session_based_voucher_no, invoice_title, invoice_date, due_date,
		        customer_id, account_id, business_unit_id, document_no, description,
		        total_rate, total_cgs, total_discount, total_net_amount,
		        entry_user_id, created_at, updated_at
		   FROM customer_invoices WHERE id = $1`, id,
	).Scan(
		&inv.ID, &inv.SessionID, &inv.InvoiceNo, &inv.SessionBasedVoucherNo, &inv.InvoiceTitle, &inv.InvoiceDate, &inv.DueDate,
		&inv.CustomerID, &inv.AccountID, &inv.BusinessUnitID, &inv.DocumentNo, &inv.Description,
		&inv.Totals.TotalRate, &inv.Totals.TotalCGS, &inv.Totals.TotalDiscount, &inv.Totals.TotalNetAmount,
		&inv.EntryUserID, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT invoice_type, business_unit_id, product_id, service_id, branch_id,
		        quantity, rate, cgs, amount, discount, net_amount, is_free, description
		   FROM customer_invoice_detail WHERE invoice_id = $1 ORDER BY row_no`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d DetailRow
		var typ string
		if err := rows.Scan(&typ, &d.BusinessUnitID, &d.ProductID, &d.ServiceID, &d.BranchID,
			&d.Quantity, &d.Rate, &d.CGS, &d.Amount, &d.Discount, &d.NetAmount, &d.IsFree, &d.Description); err != nil {
			return nil, err
		}
		d.InvoiceType = InvoiceType(typ)
		inv.Detail = append(inv.Detail, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	irows, err := r.pool.Query(ctx,
		`SELECT due_date, amount FROM customer_invoice_installments
		  WHERE invoice_id = $1 ORDER BY row_no`, id)
	if err != nil {
		return nil, err
	}
	defer irows.Close()
	for irows.Next() {
		var in InstallmentRow
		if err := irows.Scan(&in.DueDate, &in.Amount); err != nil {
			return nil, err
		}
		inv.Installments = append(inv.Installments, in)
	}
	if err := irows.Err(); err != nil {
		return nil, err
	}
	return &inv, nil
}

// List returns a page of summaries joined with customer and account titles.
func (r *PGRepository) List(ctx context.Context, f ListInvoicesFilter) ([]InvoiceSummary, int64, error) {
	where := `WHERE ($1 = 0 OR i.customer_id = $1)
	            AND ($2::timestamptz IS NULL OR i.invoice_date >= $2)
	            AND ($3::timestamptz IS NULL OR i.invoice_date <= $3)`
	args := []any{f.CustomerID, nullTime(f.DateFrom), nullTime(f.DateTo)}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customer_invoices i `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT i.id, i.invoice_no, i.session_based_voucher_no, i.invoice_title,
		        c.customer_name, a.account_title, i.invoice_date, i.total_net_amount, i.document_no
		   FROM customer_invoices i
		   JOIN customers c ON c.id = i.customer_id
		   JOIN customer_ledger_accounts a ON a.id = i.account_id `+where+`
		  ORDER BY i.invoice_no DESC
		  LIMIT $4 OFFSET $5`,
		append(args, f.PerPage, (f.Page-1)*f.PerPage)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []InvoiceSummary
	for rows.Next() {
		var s InvoiceSummary
		if err := rows.Scan(&s.ID, &s.InvoiceNo, &s.SessionBasedVoucherNo, &s.InvoiceTitle,
			&s.CustomerName, &s.AccountTitle, &s.InvoiceDate, &s.TotalNetAmount, &s.DocumentNo); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Delete removes the invoice; detail and installments go with it via
// ON DELETE CASCADE.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customer_invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// CustomerContact loads the delivery details for invoice notifications.
func (r *PGRepository) CustomerContact(ctx context.Context, customerID int64) (*CustomerContact, error) {
	var c CustomerContact
	err := r.pool.QueryRow(ctx,
		`SELECT customer_name, COALESCE(email, ''), COALESCE(whatsapp_no, '')
		   FROM customers WHERE id = $1`, customerID,
	).Scan(&c.Name, &c.Email, &c.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
