package testutil

import (
	"context"
	"testing"
)

func TestStubDBUpsertsAndFilters(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	for _, v := range []struct {
		name    string
		payload string
	}{{"building", "v1"}, {"other", "x"}, {"building", "v2"}} {
		if _, err := db.ExecContext(ctx, "INSERT INTO documents (name, payload) VALUES ($1, $2) ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload", v.name, v.payload); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if len(conn.Tables["documents"]) != 2 {
		t.Fatalf("expected upsert to keep two rows, got %v", conn.Tables["documents"])
	}

	var payload string
	if err := db.QueryRowContext(ctx, "SELECT payload FROM documents WHERE name = $1", "building").Scan(&payload); err != nil {
		t.Fatalf("select: %v", err)
	}
	if payload != "v2" {
		t.Fatalf("payload = %q, want v2", payload)
	}
}
