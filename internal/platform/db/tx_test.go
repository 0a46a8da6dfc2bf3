package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestConnFromContext_Empty(t *testing.T) {
	if conn := ConnFromContext(context.Background()); conn != nil {
		t.Errorf("expected nil conn, got %T", conn)
	}
}

func TestConnFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBConnKey, "not-a-conn")
	if conn := ConnFromContext(ctx); conn != nil {
		t.Errorf("expected nil conn for wrong type, got %T", conn)
	}
}

func TestConnFromContext_RoundTrip(t *testing.T) {
	var q Querier = &fakeQuerier{}
	ctx := ContextWithConn(context.Background(), q)
	if got := ConnFromContext(ctx); got != q {
		t.Error("expected the bound querier back")
	}
}

type fakeQuerier struct{}

func (fakeQuerier) Query(context.Context, string, ...interface{}) (pgx.Rows, error) { return nil, nil }
func (fakeQuerier) QueryRow(context.Context, string, ...interface{}) pgx.Row        { return nil }
func (fakeQuerier) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
