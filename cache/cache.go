// Package cache keeps decompiled class sources in SQLite, keyed by a
// BLAKE2b digest of the class file and the options that shaped the output.
package cache

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dhamidi/jbcm/classfile"
	"github.com/dhamidi/jbcm/decompile"
	"github.com/tliron/commonlog"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("jbcm.cache")

var ErrNotFound = errors.New("not cached")

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	_, err = db.Exec("PRAGMA busy_timeout = 5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS sources (
		key TEXT PRIMARY KEY,
		class TEXT NOT NULL,
		source TEXT NOT NULL,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Key digests a class file together with the options that change the
// rendered source.
func Key(data []byte, opts decompile.Options) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%q\x00%t\x00%d\x00", opts.IndentMark, opts.EndComments, opts.MaxCodeSize)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var source string
	err := s.db.QueryRow("SELECT source FROM sources WHERE key = ?", key).Scan(&source)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("querying source: %w", err)
	}
	return source, nil
}

func (s *Store) Put(key, class, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO sources (key, class, source, created) VALUES (?, ?, ?, ?)",
		key, class, source, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving source: %w", err)
	}
	return nil
}

// Len is the number of cached sources.
func (s *Store) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sources: %w", err)
	}
	return n, nil
}

// Decompile parses and decompiles a class file, answering from the cache
// when it can. A nil Store decompiles every time.
func (s *Store) Decompile(ctx context.Context, opts decompile.Options, data []byte) (string, error) {
	key := Key(data, opts)
	if s != nil {
		source, err := s.Get(key)
		if err == nil {
			log.Debugf("cache hit %s", key[:12])
			return source, nil
		}
		if !errors.Is(err, ErrNotFound) {
			log.Warningf("cache lookup: %v", err)
		}
	}

	cf, err := classfile.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse class file: %w", err)
	}
	source, err := decompile.New(opts).Class(ctx, cf)
	if err != nil {
		return "", err
	}
	if s != nil {
		if err := s.Put(key, cf.ClassName(), source); err != nil {
			log.Warningf("cache store: %v", err)
		}
	}
	return source, nil
}
