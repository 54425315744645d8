package lock

import (
	"context"
	"hash/fnv"

	"github.com/sorintlab/errors"

	"github.com/conveyorci/conveyor/internal/sqlg/sql"
)

// PGLockFactory provides locks based on postgres session advisory locks.
// Lock keys are mapped to the advisory lock bigint space with fnv hashing.
type PGLockFactory struct {
	db *sql.DB
}

func NewPGLockFactory(db *sql.DB) *PGLockFactory {
	return &PGLockFactory{db: db}
}

func (f *PGLockFactory) NewLock(key string) Lock {
	return &PGLock{db: f.db, key: advisoryLockID(key)}
}

func advisoryLockID(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

type PGLock struct {
	db  *sql.DB
	key int64

	tx *sql.Tx
}

// Lock acquires the advisory lock, blocking until it's available. The lock
// is held by a dedicated transaction kept open until Unlock.
func (l *PGLock) Lock(ctx context.Context) error {
	tx, err := l.db.NewTx(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	if _, err := tx.Exec("select pg_advisory_xact_lock($1)", l.key); err != nil {
		_ = tx.Rollback()
		return errors.WithStack(err)
	}

	l.tx = tx
	return nil
}

func (l *PGLock) TryLock(ctx context.Context) error {
	tx, err := l.db.NewTx(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	var acquired bool
	if err := tx.QueryRow("select pg_try_advisory_xact_lock($1)", l.key).Scan(&acquired); err != nil {
		_ = tx.Rollback()
		return errors.WithStack(err)
	}
	if !acquired {
		_ = tx.Rollback()
		return ErrLocked
	}

	l.tx = tx
	return nil
}

func (l *PGLock) Unlock() error {
	if l.tx == nil {
		return nil
	}

	err := l.tx.Rollback()
	l.tx = nil
	return errors.WithStack(err)
}
