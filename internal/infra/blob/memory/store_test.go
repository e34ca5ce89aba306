package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"housebot/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("driver = %s", s.Driver())
	}
	info, err := s.Put(ctx, "housebot/building.v3.json", bytes.NewBufferString("{}"), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"version": "3"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 2 || info.ContentType != "application/json" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "housebot/building.v3.json", bytes.NewBufferString("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := s.Get(ctx, "housebot/building.v3.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "{}" || got.Metadata["version"] != "3" {
		t.Fatalf("get returned %q %+v", body, got)
	}
	got.Metadata["version"] = "mutated"
	head, err := s.Head(ctx, "housebot/building.v3.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Metadata["version"] != "3" {
		t.Fatal("metadata must be copied on read")
	}

	existed, err := s.Delete(ctx, "housebot/building.v3.json")
	if err != nil || !existed {
		t.Fatalf("delete existed=%v err=%v", existed, err)
	}
	existed, _ = s.Delete(ctx, "housebot/building.v3.json")
	if existed {
		t.Fatal("second delete should report missing")
	}
	if _, _, err := s.Get(ctx, "housebot/building.v3.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, k := range []string{"housebot/building.v3.json", "other/x", "housebot/building.v2.json"} {
		if _, err := s.Put(ctx, k, bytes.NewBufferString(k), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	infos, err := s.List(ctx, "housebot/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "housebot/building.v2.json" || infos[1].Key != "housebot/building.v3.json" {
		t.Fatalf("unexpected list %+v", infos)
	}
	all, _ := s.List(ctx, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 objects, got %d", len(all))
	}
}
