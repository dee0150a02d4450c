package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eduims/eduims-backend/internal/shared"
)

// PGRepository provides PostgreSQL backed lead persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// Create inserts a lead row.
func (r *PGRepository) Create(ctx context.Context, lead *Lead) (int64, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO leads
		   (session_id, status, company_name, contact_person, designation, mobile, whatsapp_no,
		    telephone, email, address, country_id, tehsil_id, business_type_id, business_nature_id,
		    source_id, requirement, demo_person_id, demo_date, incentive_paid, entry_user_id,
		    created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,false,$19,now(),now())
		 RETURNING id`,
		lead.SessionID, string(lead.Status), lead.CompanyName, lead.ContactPerson, lead.Designation,
		lead.Mobile, lead.WhatsApp, lead.Telephone, lead.Email, lead.Address,
		lead.CountryID, lead.TehsilID, lead.BusinessTypeID, lead.BusinessNatureID,
		lead.SourceID, lead.Requirement, lead.DemoPersonID, lead.DemoDate, lead.EntryUserID,
	).Scan(&lead.ID)
	if err != nil {
		return 0, err
	}
	return lead.ID, nil
}

// Update rewrites the introduction details.
func (r *PGRepository) Update(ctx context.Context, lead *Lead) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET
		   session_id = $2, company_name = $3, contact_person = $4, designation = $5,
		   mobile = $6, whatsapp_no = $7, telephone = $8, email = $9, address = $10,
		   country_id = $11, tehsil_id = $12, business_type_id = $13, business_nature_id = $14,
		   source_id = $15, requirement = $16, demo_person_id = $17, demo_date = $18,
		   updated_at = now()
		 WHERE id = $1`,
		lead.ID, lead.SessionID, lead.CompanyName, lead.ContactPerson, lead.Designation,
		lead.Mobile, lead.WhatsApp, lead.Telephone, lead.Email, lead.Address,
		lead.CountryID, lead.TehsilID, lead.BusinessTypeID, lead.BusinessNatureID,
		lead.SourceID, lead.Requirement, lead.DemoPersonID, lead.DemoDate,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Get loads a lead with its forward assignment, when one exists.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Lead, error) {
	var lead Lead
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, status, company_name, contact_person, designation, mobile,
		        whatsapp_no, telephone, email, address, country_id, tehsil_id, business_type_id,
		        business_nature_id, source_id, requirement, demo_person_id, demo_date,
		        incentive_paid, entry_user_id, created_at, updated_at
		   FROM leads WHERE id = $1`, id,
	).Scan(&lead.ID, &lead.SessionID, &status, &lead.CompanyName, &lead.ContactPerson, &lead.Designation,
		&lead.Mobile, &lead.WhatsApp, &lead.Telephone, &lead.Email, &lead.Address,
		&lead.CountryID, &lead.TehsilID, &lead.BusinessTypeID, &lead.BusinessNatureID,
		&lead.SourceID, &lead.Requirement, &lead.DemoPersonID, &lead.DemoDate,
		&lead.IncentivePaid, &lead.EntryUserID, &lead.CreatedAt, &lead.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	lead.Status = Status(status)

	var fwd ForwardInfo
	var medium string
	err = r.pool.QueryRow(ctx,
		`SELECT department_id, user_id, meeting_medium, meeting_time, recommended_product_id,
		        instructions, forwarded_at
		   FROM lead_forwards WHERE lead_id = $1`, id,
	).Scan(&fwd.DepartmentID, &fwd.UserID, &medium, &fwd.MeetingTime, &fwd.RecommendedProduct,
		&fwd.Instructions, &fwd.ForwardedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// never forwarded
	case err != nil:
		return nil, err
	default:
		fwd.MeetingMedium = MeetingMedium(medium)
		lead.Forward = &fwd
	}
	return &lead, nil
}

// List returns a page of summaries, optionally filtered by status, session
// and a company or contact search term.
func (r *PGRepository) List(ctx context.Context, f ListLeadsFilter) ([]LeadSummary, int64, error) {
	where := `WHERE ($1 = '' OR status = $1)
	            AND ($2 = 0 OR session_id = $2)
	            AND ($3 = '' OR company_name ILIKE '%' || $3 || '%' OR contact_person ILIKE '%' || $3 || '%')`
	args := []any{string(f.Status), f.SessionID, f.Search}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, status, company_name, contact_person, mobile, incentive_paid, created_at
		   FROM leads `+where+`
		  ORDER BY created_at DESC
		  LIMIT $4 OFFSET $5`,
		append(args, f.PerPage, (f.Page-1)*f.PerPage)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []LeadSummary
	for rows.Next() {
		var s LeadSummary
		var status string
		if err := rows.Scan(&s.ID, &status, &s.CompanyName, &s.ContactPerson, &s.Mobile, &s.IncentivePaid, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		s.Status = Status(status)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Delete removes the lead; forwards and activities cascade.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateStatus moves the lead to a new pipeline status.
func (r *PGRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SaveForward upserts the single forward assignment row for the lead.
func (r *PGRepository) SaveForward(ctx context.Context, id int64, fwd ForwardInfo) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO lead_forwards
		   (lead_id, department_id, user_id, meeting_medium, meeting_time, recommended_product_id, instructions, forwarded_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (lead_id) DO UPDATE SET
		   department_id = EXCLUDED.department_id, user_id = EXCLUDED.user_id,
		   meeting_medium = EXCLUDED.meeting_medium, meeting_time = EXCLUDED.meeting_time,
		   recommended_product_id = EXCLUDED.recommended_product_id,
		   instructions = EXCLUDED.instructions, forwarded_at = EXCLUDED.forwarded_at`,
		id, fwd.DepartmentID, fwd.UserID, string(fwd.MeetingMedium), fwd.MeetingTime,
		fwd.RecommendedProduct, fwd.Instructions, fwd.ForwardedAt,
	)
	return err
}

// SetIncentivePaid flags the incentive settled.
func (r *PGRepository) SetIncentivePaid(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET incentive_paid = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AddActivity appends a trail entry.
func (r *PGRepository) AddActivity(ctx context.Context, act *Activity) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO lead_activities
		   (lead_id, kind, amount, description, attachment_key, expected_amount, reason, user_id, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING id`,
		act.LeadID, act.Kind, act.Amount, act.Description, act.AttachmentKey,
		act.ExpectedAmount, act.Reason, act.UserID, act.CreatedAt,
	).Scan(&act.ID)
	if err != nil {
		return fmt.Errorf("insert lead activity: %w", err)
	}
	return nil
}

// Activities returns the trail newest first.
func (r *PGRepository) Activities(ctx context.Context, leadID int64) ([]Activity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, lead_id, kind, amount, description, attachment_key, expected_amount, reason, user_id, created_at
		   FROM lead_activities WHERE lead_id = $1 ORDER BY created_at DESC, id DESC`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.LeadID, &a.Kind, &a.Amount, &a.Description, &a.AttachmentKey,
			&a.ExpectedAmount, &a.Reason, &a.UserID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UserContact resolves the assignee's name and email for notifications.
func (r *PGRepository) UserContact(ctx context.Context, userID int64) (string, string, error) {
	var name, email string
	err := r.pool.QueryRow(ctx,
		`SELECT full_name, COALESCE(email, '') FROM users WHERE id = $1`, userID,
	).Scan(&name, &email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", shared.ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	return name, email, nil
}
