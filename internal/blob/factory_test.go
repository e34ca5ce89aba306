package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestOpenFilesystemRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, DriverFilesystem, Config{FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("driver = %s", store.Driver())
	}
	if _, err := store.Put(ctx, "housebot/building.v2.json", bytes.NewBufferString(`{"version":2}`), PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, rc, err := store.Get(ctx, "housebot/building.v2.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != `{"version":2}` {
		t.Fatalf("body = %q", body)
	}
}

func TestOpenMemoryReportsSentinels(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, DriverMemory, Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Put(ctx, "k", bytes.NewBufferString("a"), PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "k", bytes.NewBufferString("b"), PutOptions{}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Driver("ftp"), Config{}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenValidatesDriverConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, DriverS3, Config{}); err == nil {
		t.Error("s3 without bucket should fail")
	}
	if _, err := Open(ctx, DriverYandexDisk, Config{}); err == nil {
		t.Error("yandex without token should fail")
	}
	if _, err := Open(ctx, DriverGoogleDrive, Config{}); err == nil {
		t.Error("gdrive without credentials should fail")
	}
}
