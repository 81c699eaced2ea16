package cache

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"menuflow-backend/internal/extract"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGStore{DB: db}, mock
}

func TestPGStoreGetHit(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"value", "expires_at"}).
		AddRow(`{"items":[{"name":"Cola","price":3}],"quality":"deterministic"}`, time.Now().Add(time.Hour))
	mock.ExpectQuery("SELECT value, expires_at FROM extraction_cache").
		WithArgs("abc123").
		WillReturnRows(rows)

	result, err := store.Get(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if result == nil || result.Quality != extract.QualityDeterministic || len(result.Items) != 1 {
		t.Fatalf("result = %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreGetMiss(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value, expires_at FROM extraction_cache").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"value", "expires_at"}))

	result, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if result != nil {
		t.Fatalf("expected miss, got %+v", result)
	}
}

func TestPGStoreGetExpiredRowDeleted(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"value", "expires_at"}).
		AddRow(`{"items":[],"quality":"ai"}`, time.Now().Add(-time.Minute))
	mock.ExpectQuery("SELECT value, expires_at FROM extraction_cache").
		WithArgs("stale").
		WillReturnRows(rows)
	mock.ExpectExec("DELETE FROM extraction_cache").
		WithArgs("stale").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := store.Get(context.Background(), "stale")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if result != nil {
		t.Fatalf("expired row must be a miss, got %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreGetCorruptValueIsMiss(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"value", "expires_at"}).
		AddRow(`{not json`, time.Now().Add(time.Hour))
	mock.ExpectQuery("SELECT value, expires_at FROM extraction_cache").
		WithArgs("corrupt").
		WillReturnRows(rows)

	result, err := store.Get(context.Background(), "corrupt")
	if err != nil {
		t.Fatalf("corrupt value must not propagate an error, got %v", err)
	}
	if result != nil {
		t.Fatalf("corrupt value must be a miss, got %+v", result)
	}
}

func TestPGStoreSetUpserts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO extraction_cache").
		WithArgs("abc123", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	price := 3.0
	result := &extract.Result{
		Items:   []extract.MenuItem{{Name: "Cola", Price: &price, Category: "Drinks"}},
		Quality: extract.QualityDeterministic,
	}
	if err := store.Set(context.Background(), "abc123", result, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
