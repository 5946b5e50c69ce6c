package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnknownSettingField = errors.New("settings.error.unknownField")
	ErrInvalidSettingValue = errors.New("settings.error.invalidValue")
)

func (s *monitorStore) GetSettings(ctx context.Context) (*Settings, error) {
	row := s.queryRow(ctx, `
		SELECT id, interval_min, timeout_sec, keyword, channel_ref, retention_days, updated_at
		FROM settings WHERE id=1`)
	var settings Settings
	var updatedMs int64
	if err := row.Scan(&settings.ID, &settings.IntervalMin, &settings.TimeoutSec, &settings.Keyword, &settings.ChannelRef, &settings.RetentionDays, &updatedMs); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		seeded := s.defaults
		if err := s.insertSettings(ctx, &seeded); err != nil {
			return nil, err
		}
		return &seeded, nil
	}
	settings.UpdatedAt = fromMillis(updatedMs)
	return &settings, nil
}

func (s *monitorStore) UpdateSettings(ctx context.Context, settings *Settings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := s.exec(ctx, `
		UPDATE settings SET interval_min=?, timeout_sec=?, keyword=?, channel_ref=?, retention_days=?, updated_at=?
		WHERE id=1`,
		settings.IntervalMin, settings.TimeoutSec, settings.Keyword, settings.ChannelRef, settings.RetentionDays, toMillis(now))
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		settings.UpdatedAt = now
		return nil
	}
	return s.insertSettings(ctx, settings)
}

// UpdateSettingField updates a single named field after validating its value.
// Unknown fields are rejected; the stored row is untouched on any error.
func (s *monitorStore) UpdateSettingField(ctx context.Context, field, value string) error {
	value = strings.TrimSpace(value)
	var column string
	var arg any
	switch field {
	case "interval_min", "timeout_sec", "retention_days":
		n, err := strconv.Atoi(value)
		if err != nil {
			return ErrInvalidSettingValue
		}
		min := 1
		if field == "retention_days" {
			min = 0
		}
		if n < min {
			return ErrInvalidSettingValue
		}
		column, arg = field, n
	case "keyword":
		if value == "" {
			return ErrInvalidSettingValue
		}
		column, arg = field, value
	case "channel_ref":
		column, arg = field, value
	default:
		return ErrUnknownSettingField
	}
	// Ensure the singleton row exists before the field update.
	if _, err := s.GetSettings(ctx); err != nil {
		return err
	}
	_, err := s.exec(ctx, `UPDATE settings SET `+column+`=?, updated_at=? WHERE id=1`, arg, toMillis(time.Now().UTC()))
	return err
}

func (s *monitorStore) insertSettings(ctx context.Context, settings *Settings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err := s.exec(ctx, `
		INSERT INTO settings(id, interval_min, timeout_sec, keyword, channel_ref, retention_days, updated_at)
		VALUES(1,?,?,?,?,?,?)`,
		settings.IntervalMin, settings.TimeoutSec, settings.Keyword, settings.ChannelRef, settings.RetentionDays, toMillis(now))
	if err != nil {
		return err
	}
	settings.ID = 1
	settings.UpdatedAt = now
	return nil
}

func validateSettings(settings *Settings) error {
	if settings == nil {
		return ErrInvalidSettingValue
	}
	if settings.IntervalMin < 1 || settings.TimeoutSec < 1 {
		return ErrInvalidSettingValue
	}
	if strings.TrimSpace(settings.Keyword) == "" {
		return ErrInvalidSettingValue
	}
	if settings.RetentionDays < 0 {
		return ErrInvalidSettingValue
	}
	return nil
}

// DefaultSettings are used to seed the settings row when none exists yet.
func DefaultSettings(intervalMin, timeoutSec int, keyword string) Settings {
	if intervalMin < 1 {
		intervalMin = 5
	}
	if timeoutSec < 1 {
		timeoutSec = 10
	}
	if strings.TrimSpace(keyword) == "" {
		keyword = "Online"
	}
	return Settings{
		IntervalMin:   intervalMin,
		TimeoutSec:    timeoutSec,
		Keyword:       keyword,
		RetentionDays: 90,
	}
}
