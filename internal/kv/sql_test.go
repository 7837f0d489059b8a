package kv

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresQueries(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	ctx := context.Background()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS client_storage").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewSQL(ctx, db, "pgx")
	if err != nil {
		t.Fatalf("NewSQL: %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO client_storage (item_key, item_value, updated_at) VALUES ($1, $2, $3)")).
		WithArgs("token", "abc", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := s.SetItem(ctx, "token", "abc"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT item_value FROM client_storage WHERE item_key = $1")).
		WithArgs("token").
		WillReturnRows(sqlmock.NewRows([]string{"item_value"}).AddRow("abc"))
	v, ok, err := s.GetItem(ctx, "token")
	if err != nil || !ok || v != "abc" {
		t.Fatalf("GetItem = %q, %v, %v", v, ok, err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT item_value FROM client_storage WHERE item_key = $1")).
		WithArgs("user").
		WillReturnRows(sqlmock.NewRows([]string{"item_value"}))
	if _, ok, err := s.GetItem(ctx, "user"); err != nil || ok {
		t.Fatalf("missing GetItem = %v, %v", ok, err)
	}

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM client_storage WHERE item_key = $1")).
		WithArgs("token").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := s.RemoveItem(ctx, "token"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}

	mock.ExpectClose()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLMigrateFailureClosesHandle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	mock.ExpectExec("CREATE TABLE").WillReturnError(context.DeadlineExceeded)
	mock.ExpectClose()

	if _, err := NewSQL(context.Background(), db, "pgx"); err == nil {
		t.Fatal("expected migrate error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
