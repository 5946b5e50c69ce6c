package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
)

// OpenDowntime records the start of an offline period. The engine is the
// only writer and guarantees at most one open interval; the store does not
// re-check the invariant.
func (s *monitorStore) OpenDowntime(ctx context.Context, start time.Time) (*DowntimeInterval, error) {
	ref, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	interval := &DowntimeInterval{Ref: ref.String(), StartedAt: start.UTC()}
	_, err = s.exec(ctx, `INSERT INTO downtimes(ref, start_ts, end_ts) VALUES(?,?,NULL)`,
		interval.Ref, toMillis(interval.StartedAt))
	if err != nil {
		return nil, err
	}
	return interval, nil
}

// CloseLastOpenDowntime sets end_ts on the most recent open interval. A
// missing open interval is not an error: after a restart during uptime the
// baseline transition has nothing to close.
func (s *monitorStore) CloseLastOpenDowntime(ctx context.Context, end time.Time) error {
	_, err := s.exec(ctx, `
		UPDATE downtimes SET end_ts=?
		WHERE id=(SELECT id FROM downtimes WHERE end_ts IS NULL ORDER BY start_ts DESC, id DESC LIMIT 1)`,
		toMillis(end.UTC()))
	return err
}

func (s *monitorStore) LastDowntime(ctx context.Context) (*DowntimeInterval, error) {
	row := s.queryRow(ctx, `
		SELECT id, ref, start_ts, end_ts FROM downtimes ORDER BY start_ts DESC, id DESC LIMIT 1`)
	interval, err := scanDowntime(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return interval, nil
}

func (s *monitorStore) ListDowntimes(ctx context.Context, limit int) ([]DowntimeInterval, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.query(ctx, `
		SELECT id, ref, start_ts, end_ts FROM downtimes ORDER BY start_ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []DowntimeInterval
	for rows.Next() {
		interval, err := scanDowntime(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, *interval)
	}
	return res, rows.Err()
}

func scanDowntime(scan func(dest ...any) error) (*DowntimeInterval, error) {
	var interval DowntimeInterval
	var startMs int64
	var endMs sql.NullInt64
	if err := scan(&interval.ID, &interval.Ref, &startMs, &endMs); err != nil {
		return nil, err
	}
	interval.StartedAt = fromMillis(startMs)
	if endMs.Valid {
		end := fromMillis(endMs.Int64)
		interval.EndedAt = &end
	}
	return &interval, nil
}
