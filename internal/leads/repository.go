package leads

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
	Create(ctx context.Context, lead Lead) (int64, error)
	Get(ctx context.Context, id int64, scope shared.Scope) (*Lead, error)
	// Update patches the row matching both id and owner. Zero rows means the
	// record does not exist for this owner.
	Update(ctx context.Context, id, ownerID int64, updates map[string]interface{}) (int64, error)
	// MarkConverted is conditional on the lead not already being CONVERTED,
	// making conversion a one-way transition.
	MarkConverted(ctx context.Context, id, ownerID, quoteID int64, at time.Time) (int64, error)
	Delete(ctx context.Context, id, ownerID int64) (int64, error)
	PendingFollowUps(ctx context.Context, ownerID int64, now time.Time) ([]Lead, error)
	CountPendingFollowUps(ctx context.Context, ownerID *int64, now time.Time) (int, error)
	CountByStatus(ctx context.Context, ownerID *int64) (map[Status]int, error)
	List(ctx context.Context, f ListFilter) ([]Lead, error)
	Recent(ctx context.Context, ownerID *int64, limit int) ([]Lead, error)
	OwnersWithDueFollowUps(ctx context.Context, now time.Time) ([]int64, error)
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

const leadColumns = `id, owner_id, name, email, phone, company, origin, event_type,
       estimated_budget, event_date, status, notes, last_contact_date,
       next_follow_up_date, converted_at, converted_to_quote_id, created_at, updated_at`

// leadPatchColumns lists the columns the sparse update path may touch.
var leadPatchColumns = []string{
	"name", "email", "phone", "company", "origin", "event_type",
	"estimated_budget", "event_date", "status", "notes",
	"last_contact_date", "next_follow_up_date",
}

func (r *repository) Create(ctx context.Context, l Lead) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO leads (owner_id, name, email, phone, company, origin, event_type,
		                   estimated_budget, event_date, status, notes, next_follow_up_date,
		                   created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING id
	`, l.OwnerID, l.Name, l.Email, l.Phone, l.Company, l.Origin, l.EventType,
		l.EstimatedBudget, l.EventDate, l.Status, l.Notes, l.NextFollowUpDate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert lead: %w", err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64, scope shared.Scope) (*Lead, error) {
	query := fmt.Sprintf("SELECT %s FROM leads WHERE id = $1", leadColumns)
	args := []interface{}{id}
	if !scope.All {
		query += " AND owner_id = $2"
		args = append(args, scope.OwnerID)
	}

	l, err := scanLead(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (r *repository) Update(ctx context.Context, id, ownerID int64, updates map[string]interface{}) (int64, error) {
	query := "UPDATE leads SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range leadPatchColumns {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d AND owner_id = $%d", argPos, argPos+1)
	args = append(args, id, ownerID)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update lead: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) MarkConverted(ctx context.Context, id, ownerID, quoteID int64, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE leads
		SET status = $1, converted_at = $2, converted_to_quote_id = $3, updated_at = NOW()
		WHERE id = $4 AND owner_id = $5 AND status <> $1
	`, StatusConverted, at, quoteID, id, ownerID)
	if err != nil {
		return 0, fmt.Errorf("convert lead: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) Delete(ctx context.Context, id, ownerID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM leads WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete lead: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) PendingFollowUps(ctx context.Context, ownerID int64, now time.Time) ([]Lead, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE owner_id = $1
		  AND status = ANY($2)
		  AND next_follow_up_date IS NOT NULL
		  AND next_follow_up_date <= $3
		ORDER BY next_follow_up_date ASC
	`, leadColumns)

	rows, err := r.db.Query(ctx, query, ownerID, statusStrings(followUpStatuses), now)
	if err != nil {
		return nil, fmt.Errorf("pending follow-ups: %w", err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

func (r *repository) CountPendingFollowUps(ctx context.Context, ownerID *int64, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads
		WHERE ($1::bigint IS NULL OR owner_id = $1)
		  AND status = ANY($2)
		  AND next_follow_up_date IS NOT NULL
		  AND next_follow_up_date <= $3
	`, ownerID, statusStrings(followUpStatuses), now).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count follow-ups: %w", err)
	}
	return count, nil
}

func (r *repository) CountByStatus(ctx context.Context, ownerID *int64) (map[Status]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT status, COUNT(*) FROM leads WHERE ($1::bigint IS NULL OR owner_id = $1) GROUP BY status
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count leads by status: %w", err)
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

func (r *repository) List(ctx context.Context, f ListFilter) ([]Lead, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if f.OwnerID != nil {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argPos))
		args = append(args, *f.OwnerID)
		argPos++
	}
	if f.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *f.Status)
		argPos++
	}
	if f.Search != nil && *f.Search != "" {
		pattern := "%" + *f.Search + "%"
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR company ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, pattern)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	query := fmt.Sprintf("SELECT %s FROM leads %s ORDER BY created_at DESC, id DESC", leadColumns, whereClause)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

func (r *repository) Recent(ctx context.Context, ownerID *int64, limit int) ([]Lead, error) {
	query := fmt.Sprintf("SELECT %s FROM leads WHERE ($1::bigint IS NULL OR owner_id = $1) ORDER BY created_at DESC, id DESC LIMIT $2", leadColumns)
	rows, err := r.db.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent leads: %w", err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

func (r *repository) OwnersWithDueFollowUps(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT owner_id FROM leads
		WHERE status = ANY($1)
		  AND next_follow_up_date IS NOT NULL
		  AND next_follow_up_date <= $2
	`, statusStrings(followUpStatuses), now)
	if err != nil {
		return nil, fmt.Errorf("owners with due follow-ups: %w", err)
	}
	defer rows.Close()

	var owners []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}

func scanLead(row pgx.Row) (*Lead, error) {
	var l Lead
	var phone, company, origin, eventType, notes pgtype.Text
	var budget pgtype.Float8
	var eventDate, lastContact, nextFollowUp, convertedAt pgtype.Timestamptz
	var convertedTo pgtype.Int8

	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Name, &l.Email, &phone, &company, &origin, &eventType,
		&budget, &eventDate, &l.Status, &notes, &lastContact,
		&nextFollowUp, &convertedAt, &convertedTo, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Phone = textPtr(phone)
	l.Company = textPtr(company)
	l.Origin = textPtr(origin)
	l.EventType = textPtr(eventType)
	l.Notes = textPtr(notes)
	if budget.Valid {
		val := budget.Float64
		l.EstimatedBudget = &val
	}
	l.EventDate = timePtr(eventDate)
	l.LastContactDate = timePtr(lastContact)
	l.NextFollowUpDate = timePtr(nextFollowUp)
	l.ConvertedAt = timePtr(convertedAt)
	if convertedTo.Valid {
		val := convertedTo.Int64
		l.ConvertedToQuoteID = &val
	}
	return &l, nil
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	var result []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}
	return result, rows.Err()
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
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
