package filekv

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

func TestStore_persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.bin")

	s, err := Open(path, "s3cret")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err = s.Get(ctx, "access_token"); !errors.Is(err, core.ErrKeyNotFound) {
		t.Fatalf("Get(missing) error = %v", err)
	}
	_ = s.Set(ctx, "access_token", "abc.def.ghi")
	_ = s.Set(ctx, "school_id", "1234")
	_ = s.Delete(ctx, "school_id")

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("store file not written: %v", err)
	}
	if bytes.Contains(raw, []byte("abc.def.ghi")) {
		t.Error("store file contains the plain text value")
	}

	reopened, err := Open(path, "s3cret")
	if err != nil {
		t.Fatalf("Open() existing failed: %v", err)
	}
	if v, _ := reopened.Get(ctx, "access_token"); v != "abc.def.ghi" {
		t.Errorf("Get(access_token) = %q", v)
	}
	if _, err = reopened.Get(ctx, "school_id"); !errors.Is(err, core.ErrKeyNotFound) {
		t.Errorf("deleted key survived reopening")
	}

	if _, err = Open(path, "wrong"); err != ErrDecrypt {
		t.Errorf("Open(wrong secret) error = %v, want ErrDecrypt", err)
	}

	_ = reopened.Clear(ctx)
	again, _ := Open(path, "s3cret")
	if _, err = again.Get(ctx, "access_token"); !errors.Is(err, core.ErrKeyNotFound) {
		t.Errorf("value survived Clear")
	}
}

func TestOpen_emptySecret(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "x"), ""); err == nil {
		t.Error("Open() with an empty secret succeeded")
	}
}
