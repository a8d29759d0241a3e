package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cyp0633/caldora/server/auth"
	"github.com/cyp0633/caldora/server/ics"
	"github.com/cyp0633/caldora/server/recurrence"
	"github.com/cyp0633/caldora/server/storage"
)

type eventRow struct {
	eventID      string
	ics          string
	lastModified int64
}

// GetEventsForCalendar implements storage.Storage
func (s *Store) GetEventsForCalendar(ctx context.Context, q storage.EventsQuery) ([]*storage.Event, error) {
	if err := s.checkCalendar(ctx, q.User, q.PrincipalID, q.CalendarID); err != nil {
		return nil, err
	}

	rows, err := s.queryEvents(ctx, `
		SELECT event_id, ics, last_modified FROM events
		WHERE principal_id = ? AND calendar_id = ?
		ORDER BY event_id
	`, q.PrincipalID, q.CalendarID)
	if err != nil {
		return nil, err
	}

	events := make([]*storage.Event, 0, len(rows))
	for _, r := range rows {
		e, err := r.event(q.CalendarID, q.FullData)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// GetEventsByDate implements storage.Storage. Stored first-occurrence bounds narrow
// the candidates; recurring events are always expanded.
func (s *Store) GetEventsByDate(ctx context.Context, q storage.DateQuery) ([]*storage.Event, error) {
	if err := s.checkCalendar(ctx, q.User, q.PrincipalID, q.CalendarID); err != nil {
		return nil, err
	}

	rangeStart := int64(math.MinInt64)
	if start, ok := q.Start.Get(); ok {
		rangeStart = start.UnixMilli()
	}
	rangeEnd := int64(math.MaxInt64)
	if end, ok := q.End.Get(); ok {
		rangeEnd = end.UnixMilli()
	}

	rows, err := s.queryEvents(ctx, `
		SELECT event_id, ics, last_modified FROM events
		WHERE principal_id = ? AND calendar_id = ?
		  AND (recurring = 1 OR start_at IS NULL OR (start_at < ? AND (end_at > ? OR (end_at = start_at AND start_at >= ?))))
		ORDER BY event_id
	`, q.PrincipalID, q.CalendarID, rangeEnd, rangeStart, rangeStart)
	if err != nil {
		return nil, err
	}

	events := make([]*storage.Event, 0, len(rows))
	for _, r := range rows {
		e, err := r.event(q.CalendarID, true)
		if err != nil {
			return nil, err
		}
		match, err := s.engine.Overlaps(e.Data, q.Start, q.End)
		if err != nil {
			s.logger.Warn().Err(err).Str("event", e.EventID).Msg("skipping event with invalid recurrence")
			continue
		}
		if !match {
			continue
		}
		if !q.FullData {
			e.Data = nil
		}
		events = append(events, e)
	}
	return events, nil
}

// GetEvent implements storage.Storage
func (s *Store) GetEvent(ctx context.Context, q storage.EventQuery) (*storage.Event, error) {
	if err := s.checkCalendar(ctx, q.User, q.PrincipalID, q.CalendarID); err != nil {
		return nil, err
	}

	var r eventRow
	err := s.db.QueryRowContext(ctx, `
		SELECT event_id, ics, last_modified FROM events
		WHERE principal_id = ? AND calendar_id = ? AND event_id = ?
	`, q.PrincipalID, q.CalendarID, q.EventID).Scan(&r.eventID, &r.ics, &r.lastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", q.EventID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load event %s: %w", q.EventID, err)
	}
	return r.event(q.CalendarID, true)
}

// CreateEvent implements storage.Storage
func (s *Store) CreateEvent(ctx context.Context, w storage.EventWrite) (*storage.Event, error) {
	return s.write(ctx, w, true)
}

// UpdateEvent implements storage.Storage
func (s *Store) UpdateEvent(ctx context.Context, w storage.EventWrite) (*storage.Event, error) {
	return s.write(ctx, w, false)
}

func (s *Store) write(ctx context.Context, w storage.EventWrite, create bool) (*storage.Event, error) {
	if w.Event == nil || w.Event.EventID == "" || w.Event.Data == nil {
		return nil, fmt.Errorf("event without id or data")
	}
	if !storage.Visible(w.User, w.PrincipalID) {
		return nil, fmt.Errorf("calendar %s: %w", w.CalendarID, storage.ErrNotFound)
	}

	text, err := ics.Encode("", w.Event.Data)
	if err != nil {
		return nil, err
	}
	start, end, recurring := bounds(w.Event)

	stored := *w.Event
	stored.CalendarID = w.CalendarID

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		cal, err := getCalendar(ctx, tx, w.PrincipalID, w.CalendarID)
		if err != nil {
			return err
		}
		if cal.ReadOnly {
			return fmt.Errorf("calendar %s: %w", w.CalendarID, storage.ErrReadOnly)
		}

		var prev int64
		err = tx.QueryRowContext(ctx, `
			SELECT last_modified FROM events
			WHERE principal_id = ? AND calendar_id = ? AND event_id = ?
		`, w.PrincipalID, w.CalendarID, stored.EventID).Scan(&prev)
		exists := err == nil
		switch {
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return err
		case create && exists:
			return fmt.Errorf("event %s: %w", stored.EventID, storage.ErrConflict)
		case !create && !exists:
			return fmt.Errorf("event %s: %w", stored.EventID, storage.ErrNotFound)
		}

		modified := s.now().UnixMilli()
		if exists && modified <= prev {
			// the ETag must change on every write
			modified = prev + 1
		}
		stored.LastModifiedOn = time.UnixMilli(modified).UTC()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO events (principal_id, calendar_id, event_id, ics, start_at, end_at, recurring, last_modified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (principal_id, calendar_id, event_id) DO UPDATE SET
				ics = excluded.ics,
				start_at = excluded.start_at,
				end_at = excluded.end_at,
				recurring = excluded.recurring,
				last_modified = excluded.last_modified
		`, w.PrincipalID, w.CalendarID, stored.EventID, text, start, end, boolInt(recurring), modified)
		if err != nil {
			return err
		}
		return bumpSyncToken(ctx, tx, w.PrincipalID, w.CalendarID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("calendar", w.CalendarID).Str("event", stored.EventID).Bool("created", create).Msg("event stored")
	return &stored, nil
}

// DeleteEvent implements storage.Storage
func (s *Store) DeleteEvent(ctx context.Context, q storage.EventQuery) error {
	if !storage.Visible(q.User, q.PrincipalID) {
		return fmt.Errorf("calendar %s: %w", q.CalendarID, storage.ErrNotFound)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		cal, err := getCalendar(ctx, tx, q.PrincipalID, q.CalendarID)
		if err != nil {
			return err
		}
		if cal.ReadOnly {
			return fmt.Errorf("calendar %s: %w", q.CalendarID, storage.ErrReadOnly)
		}

		result, err := tx.ExecContext(ctx, `
			DELETE FROM events WHERE principal_id = ? AND calendar_id = ? AND event_id = ?
		`, q.PrincipalID, q.CalendarID, q.EventID)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("event %s: %w", q.EventID, storage.ErrNotFound)
		}
		return bumpSyncToken(ctx, tx, q.PrincipalID, q.CalendarID)
	})
}

// checkCalendar turns reads of missing or foreign calendars into ErrNotFound.
func (s *Store) checkCalendar(ctx context.Context, user *auth.Principal, principalID, calendarID string) error {
	if !storage.Visible(user, principalID) {
		return fmt.Errorf("calendar %s: %w", calendarID, storage.ErrNotFound)
	}
	_, err := getCalendar(ctx, s.db, principalID, calendarID)
	return err
}

func bumpSyncToken(ctx context.Context, tx *sql.Tx, principalID, calendarID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE calendars SET sync_token = ? WHERE principal_id = ? AND calendar_id = ?`,
		newSyncToken(), principalID, calendarID)
	return err
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]eventRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []eventRow
	for rows.Next() {
		var r eventRow
		if err := rows.Scan(&r.eventID, &r.ics, &r.lastModified); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (r eventRow) event(calendarID string, fullData bool) (*storage.Event, error) {
	e := &storage.Event{
		EventID:        r.eventID,
		CalendarID:     calendarID,
		LastModifiedOn: time.UnixMilli(r.lastModified).UTC(),
	}
	if !fullData {
		return e, nil
	}
	data, err := ics.ParseEventString(r.ics)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", r.eventID, err)
	}
	e.Data = data
	return e, nil
}

// bounds computes the indexed columns of an event. Events without a readable
// DTSTART get NULL bounds and are always handed to the recurrence engine.
func bounds(e *storage.Event) (start, end sql.NullInt64, recurring bool) {
	recurring = recurrence.ExtractInfo(e.Data).Recurring()
	span, ok, err := recurrence.ExtractSpan(e.Data)
	if err != nil || !ok {
		return start, end, recurring
	}
	start = sql.NullInt64{Int64: span.Start.UnixMilli(), Valid: true}
	end = sql.NullInt64{Int64: span.End.UnixMilli(), Valid: true}
	return start, end, recurring
}
