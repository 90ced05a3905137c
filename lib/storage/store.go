// Copyright 2026 The Weft Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/weft-foundation/weft/lib/codec"
	"github.com/weft-foundation/weft/lib/covalue"
	"github.com/weft-foundation/weft/lib/ref"
	"github.com/weft-foundation/weft/lib/sqlitepool"
)

// ErrNotFound is returned by Get for an ID with no stored header.
var ErrNotFound = errors.New("covalue not found")

// ErrCorrupt is returned when a stored header does not hash to its
// stored ID.
var ErrCorrupt = errors.New("stored covalue is corrupt")

const schema = `
CREATE TABLE IF NOT EXISTS covalues (
	id     TEXT PRIMARY KEY,
	header BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	covalue    TEXT    NOT NULL,
	session    TEXT    NOT NULL,
	idx        INTEGER NOT NULL,
	made_at    INTEGER NOT NULL,
	privacy    INTEGER NOT NULL,
	key_used   TEXT    NOT NULL DEFAULT '',
	payload    BLOB,
	compressed INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (covalue, session, idx)
);
`

// Privacy row encoding. Protocol constants: stored databases depend
// on them.
const (
	privacyTrusting = 0
	privacyPrivate  = 1
)

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the database file, created if absent.
	Path string

	// PoolSize is the connection pool size. Defaults to 4.
	PoolSize int

	// Logger receives operational messages. Nil discards them.
	Logger *slog.Logger
}

// Store is a durable CoValue store backed by SQLite. Safe for
// concurrent use.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open creates or opens a store at cfg.Path. The caller must Close
// the store when done.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Put stores a value's header and all of its transactions. Rows
// already present are left untouched, so re-storing a value after new
// appends writes only the new suffix.
func (s *Store) Put(ctx context.Context, value *covalue.CoValue) (err error) {
	headerBytes, err := codec.Marshal(value.Header())
	if err != nil {
		return fmt.Errorf("storage: encoding header for %s: %w", value.ID(), err)
	}
	if derived := ref.DeriveCoID(headerBytes); derived != value.ID() {
		return fmt.Errorf("storage: %w: header of %s hashes to %s", ErrCorrupt, value.ID(), derived)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("storage: put %s: %w", value.ID(), err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("storage: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn,
		"INSERT OR IGNORE INTO covalues (id, header) VALUES (?, ?)",
		&sqlitex.ExecOptions{Args: []any{value.ID().String(), headerBytes}})
	if err != nil {
		return fmt.Errorf("storage: storing header for %s: %w", value.ID(), err)
	}

	for _, session := range value.SessionIDs() {
		for index, tx := range value.Session(session) {
			if err := s.insertTransaction(conn, value.ID(), session, index, tx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) insertTransaction(conn *sqlite.Conn, id ref.CoID, session ref.SessionID, index int, tx covalue.Transaction) error {
	privacy := privacyTrusting
	payload := []byte(tx.Changes)
	if tx.Privacy == covalue.Private {
		privacy = privacyPrivate
		payload = tx.EncryptedChanges
	}

	payload, compressed := compressPayload(payload)

	err := sqlitex.Execute(conn, `
		INSERT OR IGNORE INTO transactions
			(covalue, session, idx, made_at, privacy, key_used, payload, compressed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			id.String(), session.String(), index, tx.MadeAt,
			privacy, tx.KeyUsed.String(), payload, boolToInt(compressed),
		}})
	if err != nil {
		return fmt.Errorf("storage: storing %s %s[%d]: %w", id, session, index, err)
	}
	return nil
}

// Get loads a value by ID, rebuilding its session logs in order.
func (s *Store) Get(ctx context.Context, id ref.CoID) (*covalue.CoValue, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", id, err)
	}
	defer s.pool.Put(conn)

	var headerBytes []byte
	err = sqlitex.Execute(conn,
		"SELECT header FROM covalues WHERE id = ?",
		&sqlitex.ExecOptions{
			Args: []any{id.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				headerBytes = make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, headerBytes)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("storage: reading header for %s: %w", id, err)
	}
	if headerBytes == nil {
		return nil, fmt.Errorf("storage: %s: %w", id, ErrNotFound)
	}

	var header covalue.Header
	if err := codec.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("storage: %w: decoding header for %s: %v", ErrCorrupt, id, err)
	}

	value, err := covalue.New(header)
	if err != nil {
		return nil, fmt.Errorf("storage: rebuilding %s: %w", id, err)
	}
	if value.ID() != id {
		return nil, fmt.Errorf("storage: %w: header of %s hashes to %s", ErrCorrupt, id, value.ID())
	}

	if err := s.loadTransactions(conn, value); err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) loadTransactions(conn *sqlite.Conn, value *covalue.CoValue) error {
	type row struct {
		session    string
		index      int64
		madeAt     int64
		privacy    int64
		keyUsed    string
		payload    []byte
		compressed bool
	}

	var rows []row
	err := sqlitex.Execute(conn, `
		SELECT session, idx, made_at, privacy, key_used, payload, compressed
		FROM transactions WHERE covalue = ?
		ORDER BY session ASC, idx ASC`,
		&sqlitex.ExecOptions{
			Args: []any{value.ID().String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				payload := make([]byte, stmt.ColumnLen(5))
				stmt.ColumnBytes(5, payload)
				rows = append(rows, row{
					session:    stmt.ColumnText(0),
					index:      stmt.ColumnInt64(1),
					madeAt:     stmt.ColumnInt64(2),
					privacy:    stmt.ColumnInt64(3),
					keyUsed:    stmt.ColumnText(4),
					payload:    payload,
					compressed: stmt.ColumnInt64(6) != 0,
				})
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("storage: reading transactions for %s: %w", value.ID(), err)
	}

	for _, r := range rows {
		session, err := ref.ParseSessionID(r.session)
		if err != nil {
			return fmt.Errorf("storage: %w: session %q of %s: %v", ErrCorrupt, r.session, value.ID(), err)
		}

		payload := r.payload
		if r.compressed {
			payload, err = decompressPayload(payload)
			if err != nil {
				return fmt.Errorf("storage: %w: payload of %s %s[%d]: %v",
					ErrCorrupt, value.ID(), session, r.index, err)
			}
		}

		tx := covalue.Transaction{MadeAt: r.madeAt}
		switch r.privacy {
		case privacyTrusting:
			tx.Privacy = covalue.Trusting
			tx.Changes = payload
		case privacyPrivate:
			tx.Privacy = covalue.Private
			tx.EncryptedChanges = payload
			if r.keyUsed != "" {
				keyID, err := ref.ParseKeyID(r.keyUsed)
				if err != nil {
					return fmt.Errorf("storage: %w: key %q of %s: %v", ErrCorrupt, r.keyUsed, value.ID(), err)
				}
				tx.KeyUsed = keyID
			}
		default:
			return fmt.Errorf("storage: %w: privacy %d of %s", ErrCorrupt, r.privacy, value.ID())
		}

		appended, err := value.Append(session, tx)
		if err != nil {
			return fmt.Errorf("storage: rebuilding %s: %w", value.ID(), err)
		}
		// Session logs are dense; a gap means rows were lost.
		if int64(appended.Index) != r.index {
			return fmt.Errorf("storage: %w: %s session %s has index %d where %d expected",
				ErrCorrupt, value.ID(), session, r.index, appended.Index)
		}
	}
	return nil
}

// List returns the IDs of every stored value, ordered by ID.
func (s *Store) List(ctx context.Context) ([]ref.CoID, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	defer s.pool.Put(conn)

	var ids []ref.CoID
	err = sqlitex.Execute(conn,
		"SELECT id FROM covalues ORDER BY id ASC",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				id, err := ref.ParseCoID(stmt.ColumnText(0))
				if err != nil {
					return fmt.Errorf("%w: id %q: %v", ErrCorrupt, stmt.ColumnText(0), err)
				}
				ids = append(ids, id)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return ids, nil
}

// LoadAll loads every stored value into the registry. Values already
// present are replaced. Resolution needs a value's whole dependency
// closure loaded, and an audit database holds exactly that.
func (s *Store) LoadAll(ctx context.Context, registry *covalue.Registry) error {
	ids, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		value, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		registry.Add(value)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
