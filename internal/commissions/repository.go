package commissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentaldesk/rentaldesk/internal/shared"
)

type Repository interface {
	Create(ctx context.Context, c Commission) (int64, error)
	Get(ctx context.Context, id int64) (*Commission, error)
	// TransitionByQuote moves every commission of the quote currently in the
	// `from` status to `to`, returning the number of rows changed. Zero rows
	// is not an error.
	TransitionByQuote(ctx context.Context, quoteID int64, from, to Status) (int64, error)
	MarkPaid(ctx context.Context, id int64, paidAt time.Time, paidBy, method string, notes *string) (int64, error)
	// Reprice overwrites quote_value and commission_value on every commission
	// row of the quote, whatever its status.
	Reprice(ctx context.Context, quoteID int64, quoteValue, commissionValue float64) (int64, error)
	CountByQuote(ctx context.Context, quoteID int64) (int, error)
	List(ctx context.Context, ownerID *int64, f Filter) ([]CommissionWithQuote, error)
	SumTotals(ctx context.Context, ownerID *int64, statuses []Status, since *time.Time) (WindowTotal, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const commissionColumns = `id, owner_id, quote_id, quote_value, rate_percent, commission_value,
       status, paid_at, paid_by, payment_method, payment_notes, created_at`

func (r *repository) Create(ctx context.Context, c Commission) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO commissions (owner_id, quote_id, quote_value, rate_percent, commission_value, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id
	`, c.OwnerID, c.QuoteID, c.QuoteValue, c.RatePercent, c.CommissionValue, c.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert commission: %w", err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Commission, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM commissions WHERE id = $1", commissionColumns), id)
	c, err := scanCommission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) TransitionByQuote(ctx context.Context, quoteID int64, from, to Status) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE commissions SET status = $1 WHERE quote_id = $2 AND status = $3
	`, to, quoteID, from)
	if err != nil {
		return 0, fmt.Errorf("transition commissions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) MarkPaid(ctx context.Context, id int64, paidAt time.Time, paidBy, method string, notes *string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE commissions
		SET status = $1, paid_at = $2, paid_by = $3, payment_method = $4, payment_notes = $5
		WHERE id = $6
	`, StatusPaid, paidAt, paidBy, method, notes, id)
	if err != nil {
		return 0, fmt.Errorf("mark commission paid: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) Reprice(ctx context.Context, quoteID int64, quoteValue, commissionValue float64) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE commissions SET quote_value = $1, commission_value = $2 WHERE quote_id = $3
	`, quoteValue, commissionValue, quoteID)
	if err != nil {
		return 0, fmt.Errorf("reprice commissions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) CountByQuote(ctx context.Context, quoteID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM commissions WHERE quote_id = $1`, quoteID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count commissions: %w", err)
	}
	return count, nil
}

func (r *repository) List(ctx context.Context, ownerID *int64, f Filter) ([]CommissionWithQuote, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if ownerID != nil {
		conditions = append(conditions, fmt.Sprintf("c.owner_id = $%d", argPos))
		args = append(args, *ownerID)
		argPos++
	}
	if f.OwnerID != nil && ownerID == nil {
		conditions = append(conditions, fmt.Sprintf("c.owner_id = $%d", argPos))
		args = append(args, *f.OwnerID)
		argPos++
	}
	if f.Status != nil {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", argPos))
		args = append(args, *f.Status)
		argPos++
	}
	if f.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("c.created_at >= $%d", argPos))
		args = append(args, *f.StartDate)
		argPos++
	}
	if f.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("c.created_at <= $%d", argPos))
		args = append(args, *f.EndDate)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.owner_id, c.quote_id, c.quote_value, c.rate_percent, c.commission_value,
		       c.status, c.paid_at, c.paid_by, c.payment_method, c.payment_notes, c.created_at,
		       q.customer_name, q.customer_email, q.event_type, q.status AS quote_status
		FROM commissions c
		LEFT JOIN quotes q ON c.quote_id = q.id
		%s
		ORDER BY c.created_at DESC, c.id DESC
	`, whereClause)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	defer rows.Close()

	var result []CommissionWithQuote
	for rows.Next() {
		var cw CommissionWithQuote
		var paidAt pgtype.Timestamptz
		var paidBy, method, notes pgtype.Text
		var customerName, customerEmail, eventType, quoteStatus pgtype.Text

		err := rows.Scan(
			&cw.ID, &cw.OwnerID, &cw.QuoteID, &cw.QuoteValue, &cw.RatePercent, &cw.CommissionValue,
			&cw.Status, &paidAt, &paidBy, &method, &notes, &cw.CreatedAt,
			&customerName, &customerEmail, &eventType, &quoteStatus,
		)
		if err != nil {
			return nil, err
		}
		cw.PaidAt = timePtr(paidAt)
		cw.PaidBy = textPtr(paidBy)
		cw.PaymentMethod = textPtr(method)
		cw.PaymentNotes = textPtr(notes)
		cw.CustomerName = textPtr(customerName)
		cw.CustomerEmail = textPtr(customerEmail)
		cw.EventType = textPtr(eventType)
		cw.QuoteStatus = textPtr(quoteStatus)
		result = append(result, cw)
	}
	return result, rows.Err()
}

func (r *repository) SumTotals(ctx context.Context, ownerID *int64, statuses []Status, since *time.Time) (WindowTotal, error) {
	args := []interface{}{}
	argPos := 1

	ownerClause := "TRUE"
	if ownerID != nil {
		ownerClause = "owner_id = $1"
		args = append(args, *ownerID)
		argPos = 2
	}

	statusClause := ""
	for i, st := range statuses {
		if i == 0 {
			statusClause = fmt.Sprintf("status = $%d", argPos)
		} else {
			statusClause += fmt.Sprintf(" OR status = $%d", argPos)
		}
		args = append(args, st)
		argPos++
	}

	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(commission_value), 0), COUNT(*)
		FROM commissions
		WHERE %s AND (%s)
	`, ownerClause, statusClause)
	if since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argPos)
		args = append(args, *since)
	}

	var total WindowTotal
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total.Total, &total.Count); err != nil {
		return WindowTotal{}, fmt.Errorf("sum commissions: %w", err)
	}
	return total, nil
}

func scanCommission(row pgx.Row) (*Commission, error) {
	var c Commission
	var paidAt pgtype.Timestamptz
	var paidBy, method, notes pgtype.Text
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.QuoteID, &c.QuoteValue, &c.RatePercent, &c.CommissionValue,
		&c.Status, &paidAt, &paidBy, &method, &notes, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.PaidAt = timePtr(paidAt)
	c.PaidBy = textPtr(paidBy)
	c.PaymentMethod = textPtr(method)
	c.PaymentNotes = textPtr(notes)
	return &c, nil
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	val := t.Time
	return &val
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	val := t.String
	return &val
}
