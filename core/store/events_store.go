package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func (s *monitorStore) AppendEvent(ctx context.Context, ts time.Time, up bool) error {
	_, err := s.exec(ctx, `INSERT INTO probe_log(ts, up) VALUES(?,?)`, toMillis(ts), boolToInt(up))
	return err
}

func (s *monitorStore) EventsSince(ctx context.Context, since time.Time) ([]ProbeEvent, error) {
	rows, err := s.query(ctx, `
		SELECT id, ts, up FROM probe_log WHERE ts >= ? ORDER BY ts ASC, id ASC`, toMillis(since))
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (s *monitorStore) EventsInRange(ctx context.Context, start, end time.Time) ([]ProbeEvent, error) {
	rows, err := s.query(ctx, `
		SELECT id, ts, up FROM probe_log WHERE ts >= ? AND ts < ? ORDER BY ts ASC, id ASC`,
		toMillis(start), toMillis(end))
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (s *monitorStore) LastEvent(ctx context.Context) (*ProbeEvent, error) {
	row := s.queryRow(ctx, `SELECT id, ts, up FROM probe_log ORDER BY ts DESC, id DESC LIMIT 1`)
	var ev ProbeEvent
	var ms int64
	var upInt int
	if err := row.Scan(&ev.ID, &ms, &upInt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	ev.TS = fromMillis(ms)
	ev.Up = upInt == 1
	return &ev, nil
}

func (s *monitorStore) EventsSummarySince(ctx context.Context, since time.Time) (int, int, error) {
	row := s.queryRow(ctx, `
		SELECT COALESCE(SUM(up),0), COUNT(*) FROM probe_log WHERE ts >= ?`, toMillis(since))
	var up, total int
	if err := row.Scan(&up, &total); err != nil {
		return 0, 0, err
	}
	return up, total, nil
}

func (s *monitorStore) EventsSummaryBetween(ctx context.Context, start, end time.Time) (int, int, error) {
	row := s.queryRow(ctx, `
		SELECT COALESCE(SUM(up),0), COUNT(*) FROM probe_log WHERE ts >= ? AND ts < ?`,
		toMillis(start), toMillis(end))
	var up, total int
	if err := row.Scan(&up, &total); err != nil {
		return 0, 0, err
	}
	return up, total, nil
}

func (s *monitorStore) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM probe_log WHERE ts < ?`, toMillis(cutoff))
	if err != nil {
		return 0, err
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}

func scanEvents(rows *sql.Rows) ([]ProbeEvent, error) {
	defer rows.Close()
	var res []ProbeEvent
	for rows.Next() {
		var ev ProbeEvent
		var ms int64
		var upInt int
		if err := rows.Scan(&ev.ID, &ms, &upInt); err != nil {
			return nil, err
		}
		ev.TS = fromMillis(ms)
		ev.Up = upInt == 1
		res = append(res, ev)
	}
	return res, rows.Err()
}
