package quotes

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
	Create(ctx context.Context, q Quote) (int64, error)
	Get(ctx context.Context, id int64, scope shared.Scope) (*Quote, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) (int64, error)
	Delete(ctx context.Context, id int64, scope shared.Scope) (int64, error)
	List(ctx context.Context, scope shared.Scope, f ListFilter) ([]Quote, int, error)
	// Aggregate readers take a nil ownerID to cover every owner.
	Recent(ctx context.Context, ownerID *int64, limit int) ([]Quote, error)
	CountByStatus(ctx context.Context, ownerID *int64) (map[Status]int, error)
	// CountCreatedBetween counts quotes by creation time within [from, to).
	CountCreatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (int, error)
	// CountConvertedUpdatedBetween counts CONVERTED quotes by their last
	// update time within [from, to). The update time is a proxy for when the
	// status changed; a converted quote edited later is counted in the later
	// period.
	CountConvertedUpdatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (int, error)
	SumEstimatedCreatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (float64, error)
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

const quoteColumns = `id, owner_id, customer_name, customer_email, customer_phone,
       event_type, attendees, duration, duration_unit, event_date, location,
       selections, estimated_total, notes, admin_notes, status, created_at, updated_at`

// quotePatchColumns lists the columns the sparse update path may touch.
var quotePatchColumns = []string{
	"customer_name", "customer_email", "customer_phone",
	"event_type", "attendees", "duration", "duration_unit",
	"event_date", "location", "selections", "estimated_total",
	"notes", "admin_notes", "status",
}

func (r *repository) Create(ctx context.Context, q Quote) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotes (owner_id, customer_name, customer_email, customer_phone,
		                    event_type, attendees, duration, duration_unit, event_date,
		                    location, selections, estimated_total, notes, admin_notes,
		                    status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		RETURNING id
	`, q.OwnerID, q.CustomerName, q.CustomerEmail, q.CustomerPhone,
		q.EventType, q.Attendees, q.Duration, q.DurationUnit, q.EventDate,
		q.Location, q.Selections, q.EstimatedTotal, q.Notes, q.AdminNotes, q.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert quote: %w", err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64, scope shared.Scope) (*Quote, error) {
	query := fmt.Sprintf("SELECT %s FROM quotes WHERE id = $1", quoteColumns)
	args := []interface{}{id}
	if !scope.All {
		query += " AND owner_id = $2"
		args = append(args, scope.OwnerID)
	}

	q, err := scanQuote(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return q, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) (int64, error) {
	query := "UPDATE quotes SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range quotePatchColumns {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update quote: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) Delete(ctx context.Context, id int64, scope shared.Scope) (int64, error) {
	query := "DELETE FROM quotes WHERE id = $1"
	args := []interface{}{id}
	if !scope.All {
		query += " AND owner_id = $2"
		args = append(args, scope.OwnerID)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete quote: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) List(ctx context.Context, scope shared.Scope, f ListFilter) ([]Quote, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if !scope.All {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argPos))
		args = append(args, scope.OwnerID)
		argPos++
	}
	if f.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *f.Status)
		argPos++
	}
	if f.Search != nil && *f.Search != "" {
		pattern := "%" + *f.Search + "%"
		conditions = append(conditions, fmt.Sprintf("(customer_name ILIKE $%d OR customer_email ILIKE $%d OR event_type ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, pattern)
		argPos++
	}
	if f.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *f.DateFrom)
		argPos++
	}
	if f.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *f.DateTo)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM quotes %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count quotes: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = shared.DefaultPerPage
	}
	query := fmt.Sprintf("SELECT %s FROM quotes %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		quoteColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	result, err := collectQuotes(rows)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *repository) Recent(ctx context.Context, ownerID *int64, limit int) ([]Quote, error) {
	query := fmt.Sprintf("SELECT %s FROM quotes WHERE ($1::bigint IS NULL OR owner_id = $1) ORDER BY created_at DESC, id DESC LIMIT $2", quoteColumns)
	rows, err := r.db.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent quotes: %w", err)
	}
	defer rows.Close()
	return collectQuotes(rows)
}

func (r *repository) CountByStatus(ctx context.Context, ownerID *int64) (map[Status]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT status, COUNT(*) FROM quotes WHERE ($1::bigint IS NULL OR owner_id = $1) GROUP BY status
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count quotes by status: %w", err)
	}
	defer rows.Close()

	result := make(map[Status]int)
	for rows.Next() {
		var st Status
		var count int
		if err := rows.Scan(&st, &count); err != nil {
			return nil, err
		}
		result[st] = count
	}
	return result, rows.Err()
}

func (r *repository) CountCreatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM quotes WHERE ($1::bigint IS NULL OR owner_id = $1) AND created_at >= $2 AND created_at < $3
	`, ownerID, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count quotes: %w", err)
	}
	return count, nil
}

func (r *repository) CountConvertedUpdatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM quotes
		WHERE ($1::bigint IS NULL OR owner_id = $1) AND status = $2 AND updated_at >= $3 AND updated_at < $4
	`, ownerID, StatusConverted, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count converted quotes: %w", err)
	}
	return count, nil
}

func (r *repository) SumEstimatedCreatedBetween(ctx context.Context, ownerID *int64, from, to time.Time) (float64, error) {
	var sum float64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(estimated_total), 0) FROM quotes
		WHERE ($1::bigint IS NULL OR owner_id = $1) AND created_at >= $2 AND created_at < $3
	`, ownerID, from, to).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum quote totals: %w", err)
	}
	return sum, nil
}

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	var customerName, customerEmail, customerPhone pgtype.Text
	var eventDate pgtype.Timestamptz
	var location, notes, adminNotes pgtype.Text
	var estimatedTotal pgtype.Float8

	err := row.Scan(
		&q.ID, &q.OwnerID, &customerName, &customerEmail, &customerPhone,
		&q.EventType, &q.Attendees, &q.Duration, &q.DurationUnit, &eventDate, &location,
		&q.Selections, &estimatedTotal, &notes, &adminNotes, &q.Status, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	q.CustomerName = textPtr(customerName)
	q.CustomerEmail = textPtr(customerEmail)
	q.CustomerPhone = textPtr(customerPhone)
	q.Location = textPtr(location)
	q.Notes = textPtr(notes)
	q.AdminNotes = textPtr(adminNotes)
	if estimatedTotal.Valid {
		val := estimatedTotal.Float64
		q.EstimatedTotal = &val
	}
	q.EventDate = timePtr(eventDate)
	return &q, nil
}

func collectQuotes(rows pgx.Rows) ([]Quote, error) {
	var result []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *q)
	}
	return result, rows.Err()
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	val := t.String
	return &val
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	val := t.Time
	return &val
}
