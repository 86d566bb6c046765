package cache

import (
	"bytes"
	"database/sql"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	_ "github.com/mattn/go-sqlite3"

	"github.com/forbearing/quickdb/logger"
	"github.com/forbearing/quickdb/quickdberr"
)

// l2Store is the optional on-disk cache tier: a SQLite key/value table
// persisting through the same driver the SQLite adapter already wires in.
// Writes go through a buffered channel flushed by a background loop,
// matching the pool's channel-actor idiom elsewhere in this module.
type l2Store struct {
	db               *sql.DB
	codec            string // "lz4" | "zstd" | ""
	minCompressBytes int

	writeCh chan kvWrite
	done    chan struct{}
	wg      sync.WaitGroup

	zstdEnc *zstd.Encoder
	zstdDec *zstd.Decoder
}

type kvWrite struct {
	key       string
	table     string
	value     []byte
	expiresAt time.Time
	isDelete  bool
	isDeleteTable bool
	isClear   bool
}

func openL2Store(path, codec string, minCompressKB int) (*l2Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, quickdberr.IO(err, "open L2 cache database %q", path)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS quickdb_cache (
		key TEXT PRIMARY KEY,
		table_name TEXT NOT NULL,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL,
		compressed INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, quickdberr.IO(err, "create L2 cache table")
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_quickdb_cache_table ON quickdb_cache(table_name)`); err != nil {
		db.Close()
		return nil, quickdberr.IO(err, "create L2 cache table index")
	}

	s := &l2Store{
		db:               db,
		codec:            codec,
		minCompressBytes: minCompressKB * 1024,
		writeCh:          make(chan kvWrite, 256),
		done:             make(chan struct{}),
	}
	if codec == "zstd" {
		enc, _ := zstd.NewWriter(nil)
		dec, _ := zstd.NewReader(nil)
		s.zstdEnc, s.zstdDec = enc, dec
	}
	s.wg.Add(1)
	go s.flushLoop()
	return s, nil
}

// flushLoop drains writeCh in batches, committing every 200ms or whenever
// the buffer fills, so a burst of invalidations doesn't serialize one
// transaction per key.
func (s *l2Store) flushLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var batch []kvWrite
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.applyBatch(batch); err != nil {
			logger.Cache.Warnw("L2 cache flush failed", "error", err, "batch_size", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case w := <-s.writeCh:
			batch = append(batch, w)
			if len(batch) >= 128 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			for {
				select {
				case w := <-s.writeCh:
					batch = append(batch, w)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (s *l2Store) applyBatch(batch []kvWrite) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, w := range batch {
		switch {
		case w.isClear:
			if _, err := tx.Exec(`DELETE FROM quickdb_cache`); err != nil {
				tx.Rollback()
				return err
			}
		case w.isDeleteTable:
			if _, err := tx.Exec(`DELETE FROM quickdb_cache WHERE table_name = ?`, w.table); err != nil {
				tx.Rollback()
				return err
			}
		case w.isDelete:
			if _, err := tx.Exec(`DELETE FROM quickdb_cache WHERE key = ?`, w.key); err != nil {
				tx.Rollback()
				return err
			}
		default:
			compressed := 0
			value := w.value
			if s.codec != "" && len(value) >= s.minCompressBytes && s.minCompressBytes > 0 {
				if c, err := s.compress(value); err == nil {
					value = c
					compressed = 1
				}
			}
			if _, err := tx.Exec(`INSERT INTO quickdb_cache (key, table_name, value, expires_at, compressed)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(key) DO UPDATE SET value=excluded.value, expires_at=excluded.expires_at, compressed=excluded.compressed, table_name=excluded.table_name`,
				w.key, w.table, value, w.expiresAt.Unix(), compressed); err != nil {
				tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *l2Store) compress(data []byte) ([]byte, error) {
	if s.codec == "zstd" {
		return s.zstdEnc.EncodeAll(data, nil), nil
	}
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *l2Store) decompress(data []byte) ([]byte, error) {
	if s.codec == "zstd" {
		return s.zstdDec.DecodeAll(data, nil)
	}
	r := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(r)
}

// get reads key synchronously (the write path is buffered; reads are
// not, since a stale miss is cheaper than a torn read).
func (s *l2Store) get(key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64
	var compressed int
	row := s.db.QueryRow(`SELECT value, expires_at, compressed FROM quickdb_cache WHERE key = ?`, key)
	if err := row.Scan(&value, &expiresAt, &compressed); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, quickdberr.Cache(err, "L2 read %q", key)
	}
	if expiresAt != 0 && time.Now().Unix() > expiresAt {
		s.delete(key)
		return nil, false, nil
	}
	if compressed == 1 {
		raw, err := s.decompress(value)
		if err != nil {
			return nil, false, quickdberr.Cache(err, "L2 decompress %q", key)
		}
		return raw, true, nil
	}
	return value, true, nil
}

func (s *l2Store) set(table, key string, value []byte, expiresAt time.Time) {
	select {
	case s.writeCh <- kvWrite{key: key, table: table, value: value, expiresAt: expiresAt}:
	case <-s.done:
	}
}

func (s *l2Store) delete(key string) {
	select {
	case s.writeCh <- kvWrite{key: key, isDelete: true}:
	case <-s.done:
	}
}

func (s *l2Store) deleteTable(table string) {
	select {
	case s.writeCh <- kvWrite{table: table, isDeleteTable: true}:
	case <-s.done:
	}
}

func (s *l2Store) clear() {
	select {
	case s.writeCh <- kvWrite{isClear: true}:
	case <-s.done:
	}
}

func (s *l2Store) close() error {
	close(s.done)
	s.wg.Wait()
	if s.zstdEnc != nil {
		s.zstdEnc.Close()
	}
	if s.zstdDec != nil {
		s.zstdDec.Close()
	}
	return s.db.Close()
}
