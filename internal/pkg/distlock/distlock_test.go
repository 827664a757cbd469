package distlock

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestAdvisoryLockAcquireRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	lock := NewAdvisoryLock(db, "feed-import")
	ctx := context.Background()

	mock.ExpectQuery(`SELECT pg_try_advisory_lock`).
		WithArgs(lock.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))

	ok, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !ok {
		t.Fatal("expected lock to be acquired")
	}
	if lock.conn == nil {
		t.Fatal("acquired lock must pin its connection")
	}

	// Release must run on the pinned session and drop the pin.
	mock.ExpectExec(`SELECT pg_advisory_unlock`).
		WithArgs(lock.lockID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if lock.conn != nil {
		t.Fatal("release must unpin the connection")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAdvisoryLockContended(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	lock := NewAdvisoryLock(db, "feed-import")
	ctx := context.Background()

	mock.ExpectQuery(`SELECT pg_try_advisory_lock`).
		WithArgs(lock.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	ok, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if ok {
		t.Fatal("contended lock reported acquired")
	}
	if lock.conn != nil {
		t.Fatal("unacquired lock must not hold a connection")
	}

	// Releasing a lock that was never acquired is a no-op.
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release without acquire: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
