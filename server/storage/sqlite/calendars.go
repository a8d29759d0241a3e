package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cyp0633/caldora/server/storage"
)

const calendarColumns = `principal_id, calendar_id, name, description, color, sort_order, timezone, read_only, sync_token`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalendar(row rowScanner) (*storage.Calendar, error) {
	var cal storage.Calendar
	var readOnly int
	err := row.Scan(&cal.PrincipalID, &cal.CalendarID, &cal.CalendarName, &cal.Description,
		&cal.Color, &cal.Order, &cal.Timezone, &readOnly, &cal.SyncToken)
	if err != nil {
		return nil, err
	}
	cal.ReadOnly = readOnly != 0
	return &cal, nil
}

// CreateCalendar adds a calendar. A missing sync token is generated.
func (s *Store) CreateCalendar(ctx context.Context, cal *storage.Calendar) error {
	if cal.PrincipalID == "" || cal.CalendarID == "" {
		return fmt.Errorf("calendar needs principal and calendar ids")
	}
	token := cal.SyncToken
	if token == "" {
		token = newSyncToken()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM calendars WHERE principal_id = ? AND calendar_id = ?`,
			cal.PrincipalID, cal.CalendarID).Scan(&exists)
		switch {
		case err == nil:
			return fmt.Errorf("calendar %s/%s: %w", cal.PrincipalID, cal.CalendarID, storage.ErrConflict)
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO calendars (`+calendarColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, cal.PrincipalID, cal.CalendarID, cal.CalendarName, cal.Description, cal.Color,
			cal.Order, cal.Timezone, boolInt(cal.ReadOnly), token)
		if err != nil {
			return err
		}
		s.logger.Info().Str("principal", cal.PrincipalID).Str("calendar", cal.CalendarID).Msg("calendar created")
		return nil
	})
}

// GetCalendar implements storage.Storage
func (s *Store) GetCalendar(ctx context.Context, q storage.CalendarQuery) (*storage.Calendar, error) {
	if !storage.Visible(q.User, q.PrincipalID) {
		return nil, fmt.Errorf("calendar %s: %w", q.CalendarID, storage.ErrNotFound)
	}
	return getCalendar(ctx, s.db, q.PrincipalID, q.CalendarID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getCalendar(ctx context.Context, db queryer, principalID, calendarID string) (*storage.Calendar, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+calendarColumns+` FROM calendars WHERE principal_id = ? AND calendar_id = ?`,
		principalID, calendarID)
	cal, err := scanCalendar(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("calendar %s: %w", calendarID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar %s: %w", calendarID, err)
	}
	return cal, nil
}

// GetCalendarsForPrincipal implements storage.Storage. Calendars are ordered by
// Order, then id.
func (s *Store) GetCalendarsForPrincipal(ctx context.Context, q storage.PrincipalQuery) ([]*storage.Calendar, error) {
	var calendars []*storage.Calendar
	if !storage.Visible(q.User, q.PrincipalID) {
		return calendars, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+calendarColumns+` FROM calendars WHERE principal_id = ? ORDER BY sort_order, calendar_id`,
		q.PrincipalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		cal, err := scanCalendar(rows)
		if err != nil {
			return nil, err
		}
		calendars = append(calendars, cal)
	}
	return calendars, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
