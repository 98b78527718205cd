// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package persist

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/relabs-tech/focus_sensors/internal/sample"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLSink inserts samples into a Postgres table.
type SQLSink struct {
	db        *sql.DB
	tableName string
}

// NewSQLSink validates the table name, which is interpolated into statements.
func NewSQLSink(db *sql.DB, table string) (*SQLSink, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SQLSink{db: db, tableName: table}, nil
}

// Name implements Sink.
func (t *SQLSink) Name() string { return "sql" }

// EnsureSchema creates the sample table when missing.
func (t *SQLSink) EnsureSchema(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+t.tableName+` (
	session_id BIGINT NOT NULL,
	seq BIGINT NOT NULL,
	ts TIMESTAMPTZ NOT NULL,
	noise_level DOUBLE PRECISION NOT NULL,
	light_level REAL NOT NULL,
	face_up BOOLEAN NOT NULL,
	motion_detected BOOLEAN NOT NULL,
	PRIMARY KEY (session_id, seq)
)`)
	if err != nil {
		return fmt.Errorf("create table %s: %w", t.tableName, err)
	}
	return nil
}

// Append implements Sink. Replays of the same (session, seq) are ignored.
func (t *SQLSink) Append(ctx context.Context, s sample.Sample) error {
	_, err := t.db.ExecContext(ctx,
		"INSERT INTO "+t.tableName+" (session_id, seq, ts, noise_level, light_level, face_up, motion_detected) VALUES ($1,$2,$3,$4,$5,$6,$7) ON CONFLICT (session_id, seq) DO NOTHING",
		s.SessionID,
		int64(s.Seq),
		s.Timestamp,
		s.NoiseLevel,
		s.LightLevel,
		s.FaceUp,
		s.MotionDetected,
	)
	return err
}

var _ Sink = (*SQLSink)(nil)
