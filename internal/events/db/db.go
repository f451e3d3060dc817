package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"ms-events/internal/models"
)

var ErrEventNotFound = errors.New("event not found")

type DB struct {
	Bun *bun.DB
}

// ListParams is a validated page request.
type ListParams struct {
	Page   int
	Size   int
	SortBy string
}

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (d *DB) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("e.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select event %d: %w", id, err)
	}
	return &event, nil
}

// UpdateEvent overwrites the mutable columns in one statement. Zero rows
// affected means the event vanished since it was read.
func (d *DB) UpdateEvent(ctx context.Context, event *models.Event) error {
	res, err := d.Bun.NewUpdate().
		Model(event).
		Column("name", "event_date", "event_time", "location", "description", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update event %d: %w", event.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// DeleteEvent removes the event and its attendance rows atomically.
func (d *DB) DeleteEvent(ctx context.Context, id int64) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.Attendance)(nil)).
			Where("event_id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete attendees of event %d: %w", id, err)
		}

		res, err := tx.NewDelete().
			Model((*models.Event)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete event %d: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrEventNotFound
		}
		return nil
	})
}

// ListEvents returns one page ordered by the sort column with id as the
// tiebreaker, plus the total row count.
func (d *DB) ListEvents(ctx context.Context, p ListParams) ([]models.Event, int, error) {
	column, ok := models.EventSortColumns[p.SortBy]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported sort column %q", p.SortBy)
	}
	if p.Size < 1 {
		return nil, 0, fmt.Errorf("page size must be positive, got %d", p.Size)
	}

	// An offset past math.MaxInt cannot address any row.
	if p.Page > math.MaxInt/p.Size {
		total, err := d.Bun.NewSelect().Model((*models.Event)(nil)).Count(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("count events: %w", err)
		}
		return []models.Event{}, total, nil
	}

	var events []models.Event
	q := d.Bun.NewSelect().
		Model(&events).
		OrderExpr(column + " ASC")
	if column != "e.id" {
		q = q.OrderExpr("e.id ASC")
	}

	total, err := q.
		Limit(p.Size).
		Offset(p.Page * p.Size).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return events, total, nil
}

// SearchEvents ANDs the non-empty filters. Name and location are
// case-insensitive substring matches with LIKE metacharacters escaped.
func (d *DB) SearchEvents(ctx context.Context, query models.SearchQuery) ([]models.Event, error) {
	events := []models.Event{}
	q := d.Bun.NewSelect().Model(&events)

	if query.Name != "" {
		q = q.Where(`LOWER(e.name) LIKE ? ESCAPE '!'`, likePattern(query.Name))
	}
	if query.Date != "" {
		q = q.Where("e.event_date = ?", query.Date)
	}
	if query.Location != "" {
		q = q.Where(`LOWER(e.location) LIKE ? ESCAPE '!'`, likePattern(query.Location))
	}

	if err := q.OrderExpr("e.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return events, nil
}

var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// AddAttendee inserts the membership unless it already exists. It reports
// whether a row was added.
func (d *DB) AddAttendee(ctx context.Context, eventID int64, email string, at time.Time) (bool, error) {
	row := &models.Attendance{EventID: eventID, UserEmail: email, RegisteredAt: at}
	res, err := d.Bun.NewInsert().
		Model(row).
		On("CONFLICT (event_id, user_email) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("add attendee %s to event %d: %w", email, eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add attendee %s to event %d: %w", email, eventID, err)
	}
	return n > 0, nil
}

func (d *DB) IsAttendee(ctx context.Context, eventID int64, email string) (bool, error) {
	exists, err := d.Bun.NewSelect().
		Model((*models.Attendance)(nil)).
		Where("event_id = ?", eventID).
		Where("user_email = ?", email).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check attendee: %w", err)
	}
	return exists, nil
}

// GetAttendees joins the attendance set onto users, in registration order.
func (d *DB) GetAttendees(ctx context.Context, eventID int64) ([]models.Attendee, error) {
	attendees := []models.Attendee{}
	err := d.Bun.NewSelect().
		TableExpr("event_attendees AS ea").
		ColumnExpr("u.email AS email, u.username AS username").
		Join("JOIN users AS u ON u.email = ea.user_email").
		Where("ea.event_id = ?", eventID).
		OrderExpr("ea.registered_at ASC, u.email ASC").
		Scan(ctx, &attendees)
	if err != nil {
		return nil, fmt.Errorf("select attendees of event %d: %w", eventID, err)
	}
	return attendees, nil
}
