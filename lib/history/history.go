// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

// Package history persists diagnostic passes to a local SQLite
// database. Each pass records when it ran, which rules document it
// ran against, its findings, and a compressed snapshot of the metrics
// that produced them, so "what did my machine look like when this
// fired" is answerable after the fact.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zstd"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/whydiag/why/lib/clock"
	"github.com/whydiag/why/lib/codec"
	"github.com/whydiag/why/lib/engine"
	"github.com/whydiag/why/lib/metric"
	"github.com/whydiag/why/lib/sqlitepool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS passes (
		id          INTEGER PRIMARY KEY,
		started_at  INTEGER NOT NULL,
		rules_hash  TEXT NOT NULL,
		finding_count INTEGER NOT NULL,
		snapshot    BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_passes_time ON passes(started_at);

	CREATE TABLE IF NOT EXISTS findings (
		pass_id  INTEGER NOT NULL,
		rule     TEXT NOT NULL,
		severity INTEGER NOT NULL,
		message  TEXT NOT NULL,
		process  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_findings_pass ON findings(pass_id);
	CREATE INDEX IF NOT EXISTS idx_findings_rule ON findings(rule);
`

// Pass is one recorded diagnostic pass.
type Pass struct {
	ID           int64
	StartedAt    time.Time
	RulesHash    string
	FindingCount int
	Findings     []FindingRecord
}

// FindingRecord is the persisted subset of a finding. Solution text
// and correlation links are reconstructible from the rules document
// and are not stored.
type FindingRecord struct {
	Rule     string
	Severity int
	Message  string
	Process  string
}

// snapshotBlob is the CBOR shape of a stored snapshot.
type snapshotBlob struct {
	Values    map[string]blobValue `cbor:"values"`
	Processes []blobProcess        `cbor:"processes,omitempty"`
}

type blobValue struct {
	Number *float64 `cbor:"n,omitempty"`
	Bool   *bool    `cbor:"b,omitempty"`
	Text   *string  `cbor:"t,omitempty"`
}

type blobProcess struct {
	Name       string  `cbor:"name"`
	CPUPercent float64 `cbor:"cpu"`
	MemPercent float64 `cbor:"mem"`
}

// StoreConfig holds the parameters for opening a history store.
type StoreConfig struct {
	// Path is the filesystem path to the database file. The parent
	// directory must exist.
	Path string

	// Clock provides pass timestamps.
	Clock clock.Clock

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Store records diagnostic passes. Safe for concurrent use.
type Store struct {
	pool    *sqlitepool.Pool
	clock   clock.Clock
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// Open creates or opens the history database at cfg.Path.
func Open(cfg StoreConfig) (*Store, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("history: Clock is required")
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   cfg.Path,
		Logger: cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: zstd decoder: %w", err)
	}

	return &Store{
		pool:    pool,
		clock:   cfg.Clock,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	s.encoder.Close()
	s.decoder.Close()
	return s.pool.Close()
}

// RecordPass appends one pass with its findings and snapshot. The
// pass row and all finding rows are written in a single IMMEDIATE
// transaction.
func (s *Store) RecordPass(ctx context.Context, rulesHash string, findings []engine.Finding, snapshot *metric.Snapshot) (int64, error) {
	blob, err := s.encodeSnapshot(snapshot)
	if err != nil {
		return 0, err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("history: record pass: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("history: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		`INSERT INTO passes (started_at, rules_hash, finding_count, snapshot) VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{s.clock.Now().UnixNano(), rulesHash, len(findings), blob},
		})
	if err != nil {
		return 0, fmt.Errorf("history: insert pass: %w", err)
	}
	passID := conn.LastInsertRowID()

	for i := range findings {
		finding := &findings[i]
		var process any
		if finding.AttributedProcess != "" {
			process = finding.AttributedProcess
		}
		err = sqlitex.Execute(conn,
			`INSERT INTO findings (pass_id, rule, severity, message, process) VALUES (?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{passID, finding.Rule, finding.Severity, finding.Message, process},
			})
		if err != nil {
			return 0, fmt.Errorf("history: insert finding %s: %w", finding.Rule, err)
		}
	}

	return passID, nil
}

// RecentPasses returns the most recent passes with their findings,
// newest first. limit defaults to 20 when non-positive.
func (s *Store) RecentPasses(ctx context.Context, limit int) ([]Pass, error) {
	if limit <= 0 {
		limit = 20
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: recent passes: %w", err)
	}
	defer s.pool.Put(conn)

	var passes []Pass
	err = sqlitex.Execute(conn,
		`SELECT id, started_at, rules_hash, finding_count FROM passes ORDER BY started_at DESC LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				passes = append(passes, Pass{
					ID:           stmt.ColumnInt64(0),
					StartedAt:    time.Unix(0, stmt.ColumnInt64(1)),
					RulesHash:    stmt.ColumnText(2),
					FindingCount: stmt.ColumnInt(3),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("history: query passes: %w", err)
	}

	for i := range passes {
		findings, err := s.passFindings(conn, passes[i].ID)
		if err != nil {
			return nil, err
		}
		passes[i].Findings = findings
	}
	return passes, nil
}

func (s *Store) passFindings(conn *sqlite.Conn, passID int64) ([]FindingRecord, error) {
	var findings []FindingRecord
	err := sqlitex.Execute(conn,
		`SELECT rule, severity, message, process FROM findings WHERE pass_id = ? ORDER BY severity DESC, rule ASC`,
		&sqlitex.ExecOptions{
			Args: []any{passID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				findings = append(findings, FindingRecord{
					Rule:     stmt.ColumnText(0),
					Severity: stmt.ColumnInt(1),
					Message:  stmt.ColumnText(2),
					Process:  stmt.ColumnText(3),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("history: query findings for pass %d: %w", passID, err)
	}
	return findings, nil
}

// Snapshot returns the decoded metric snapshot stored with a pass.
func (s *Store) Snapshot(ctx context.Context, passID int64) (*metric.Snapshot, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: snapshot: %w", err)
	}
	defer s.pool.Put(conn)

	var blob []byte
	err = sqlitex.Execute(conn,
		`SELECT snapshot FROM passes WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{passID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				blob = make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, blob)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("history: query snapshot for pass %d: %w", passID, err)
	}
	if blob == nil {
		return nil, fmt.Errorf("history: pass %d not found", passID)
	}
	return s.decodeSnapshot(blob)
}

// Prune deletes passes older than the retention period, along with
// their findings. Returns the number of passes removed.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("history: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	cutoff := s.clock.Now().Add(-retention).UnixNano()

	err = sqlitex.Execute(conn,
		`DELETE FROM findings WHERE pass_id IN (SELECT id FROM passes WHERE started_at < ?)`,
		&sqlitex.ExecOptions{Args: []any{cutoff}})
	if err != nil {
		return 0, fmt.Errorf("history: prune findings: %w", err)
	}

	err = sqlitex.Execute(conn,
		`DELETE FROM passes WHERE started_at < ?`,
		&sqlitex.ExecOptions{Args: []any{cutoff}})
	if err != nil {
		return 0, fmt.Errorf("history: prune passes: %w", err)
	}

	return conn.Changes(), nil
}

// encodeSnapshot serializes a snapshot to deterministic CBOR and
// compresses it with zstd. A nil snapshot encodes as an empty one.
func (s *Store) encodeSnapshot(snapshot *metric.Snapshot) ([]byte, error) {
	blob := snapshotBlob{Values: make(map[string]blobValue)}
	if snapshot != nil {
		for _, key := range snapshot.Keys() {
			value := snapshot.Get(key)
			var bv blobValue
			if number, ok := value.AsNumber(); ok {
				bv.Number = &number
			} else if boolean, ok := value.AsBool(); ok {
				bv.Bool = &boolean
			} else if text, ok := value.AsText(); ok {
				bv.Text = &text
			} else {
				continue
			}
			blob.Values[key] = bv
		}
		for _, process := range snapshot.Processes() {
			blob.Processes = append(blob.Processes, blobProcess{
				Name:       process.Name,
				CPUPercent: process.CPUPercent,
				MemPercent: process.MemPercent,
			})
		}
	}

	raw, err := codec.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("history: marshal snapshot: %w", err)
	}
	return s.encoder.EncodeAll(raw, nil), nil
}

func (s *Store) decodeSnapshot(compressed []byte) (*metric.Snapshot, error) {
	raw, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("history: decompress snapshot: %w", err)
	}

	var blob snapshotBlob
	if err := codec.Unmarshal(raw, &blob); err != nil {
		return nil, fmt.Errorf("history: unmarshal snapshot: %w", err)
	}

	values := make(map[string]metric.Value, len(blob.Values))
	for key, bv := range blob.Values {
		switch {
		case bv.Number != nil:
			values[key] = metric.Number(*bv.Number)
		case bv.Bool != nil:
			values[key] = metric.Bool(*bv.Bool)
		case bv.Text != nil:
			values[key] = metric.Text(*bv.Text)
		}
	}
	processes := make([]metric.ProcessSample, len(blob.Processes))
	for i, process := range blob.Processes {
		processes[i] = metric.ProcessSample{
			Name:       process.Name,
			CPUPercent: process.CPUPercent,
			MemPercent: process.MemPercent,
		}
	}
	return metric.NewSnapshot(values, processes), nil
}
