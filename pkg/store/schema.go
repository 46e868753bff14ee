package store

import (
	"strconv"

	"github.com/pkg/errors"
)

// Local mirrors of meta.RootIno/meta.RootMode/meta.DefaultChunkSize: store
// must not import pkg/meta (meta imports store), so the handful of
// bootstrap-time constants are duplicated here rather than shared.
const (
	RootIno          int64 = 1
	RootMode         int64 = 0o040000 | 0o755
	DefaultChunkSize int64 = 4096
)

// bootstrap creates every table and index idempotently, then reads or
// installs fs_config.chunk_size and ensures the root inode exists. It runs
// once per Open call; every statement uses CREATE TABLE IF NOT EXISTS so a
// second process opening the same file is a safe no-op.
func (s *Store) bootstrap() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS fs_config (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fs_inode (
			ino   INTEGER PRIMARY KEY AUTOINCREMENT,
			mode  INTEGER NOT NULL,
			uid   INTEGER NOT NULL DEFAULT 0,
			gid   INTEGER NOT NULL DEFAULT 0,
			size  INTEGER NOT NULL DEFAULT 0,
			atime INTEGER NOT NULL DEFAULT 0,
			mtime INTEGER NOT NULL DEFAULT 0,
			ctime INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS fs_dentry (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			parent_ino INTEGER NOT NULL,
			ino        INTEGER NOT NULL,
			UNIQUE(parent_ino, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fs_dentry_parent ON fs_dentry(parent_ino)`,
		`CREATE INDEX IF NOT EXISTS idx_fs_dentry_ino ON fs_dentry(ino)`,
		`CREATE TABLE IF NOT EXISTS fs_data (
			ino         INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			data        BLOB NOT NULL,
			PRIMARY KEY(ino, chunk_index)
		)`,
		`CREATE TABLE IF NOT EXISTS fs_symlink (
			ino    INTEGER PRIMARY KEY,
			target TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS kv_entry (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tool_calls (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			name          TEXT NOT NULL,
			parameters    TEXT,
			result        TEXT,
			error         TEXT,
			status        TEXT NOT NULL,
			started_at    INTEGER NOT NULL,
			completed_at  INTEGER,
			duration_ms   INTEGER
		)`,
	}

	for _, stmt := range ddl {
		if _, err := s.engine.Exec(stmt); err != nil {
			return errors.Wrapf(err, "bootstrap: %s", stmt)
		}
	}

	if err := s.ensureChunkSize(); err != nil {
		return err
	}
	if err := s.ensureRootInode(); err != nil {
		return err
	}
	logger.Debugf("store bootstrap complete, chunk_size=%d", s.chunkSize)
	return nil
}

func (s *Store) ensureChunkSize() error {
	var row struct {
		Value string `xorm:"'value'"`
	}
	found, err := s.engine.SQL(`SELECT value FROM fs_config WHERE key = ?`, "chunk_size").Get(&row)
	if err != nil {
		return errors.Wrap(err, "read chunk_size")
	}
	if found {
		n, err := strconv.ParseInt(row.Value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "parse chunk_size %q", row.Value)
		}
		s.chunkSize = n
		return nil
	}
	s.chunkSize = DefaultChunkSize
	_, err = s.engine.Exec(`INSERT INTO fs_config(key, value) VALUES(?, ?)`, "chunk_size", strconv.FormatInt(s.chunkSize, 10))
	if err != nil {
		return errors.Wrap(err, "install chunk_size")
	}
	return nil
}

func (s *Store) ensureRootInode() error {
	var row struct {
		Ino int64 `xorm:"'ino'"`
	}
	found, err := s.engine.SQL(`SELECT ino FROM fs_inode WHERE ino = ?`, RootIno).Get(&row)
	if err != nil {
		return errors.Wrap(err, "lookup root inode")
	}
	if found {
		return nil
	}
	now := nowUnix()
	_, err = s.engine.Exec(
		`INSERT INTO fs_inode(ino, mode, uid, gid, size, atime, mtime, ctime) VALUES(?,?,?,?,?,?,?,?)`,
		RootIno, RootMode, 0, 0, 0, now, now, now,
	)
	if err != nil {
		return errors.Wrap(err, "create root inode")
	}
	return nil
}
