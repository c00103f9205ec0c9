package gantry

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// dirFS adds the directory capability to flipFS.
type dirFS struct {
	flipFS
	mkdirs []string
}

func (f *dirFS) Mkdir(_ context.Context, path string) error {
	f.mkdirs = append(f.mkdirs, path)
	return nil
}

func (f *dirFS) IsDir(context.Context, string) (bool, error) {
	return true, nil
}

func TestDirCapabilityUnsupported(t *testing.T) {
	t.Parallel()

	var (
		fsys = &flipFS{} // implements no directory operations
		ctx  = context.Background()
	)

	err := Mkdir(ctx, fsys, "a/b")
	var unsup *UnsupportedError
	if !errors.As(err, &unsup) {
		t.Fatalf("got error %v, want UnsupportedError", err)
	}
	if unsup.Op != "mkdir" {
		t.Errorf("got op %q, want mkdir", unsup.Op)
	}
	if !strings.Contains(unsup.Backend, "flipFS") {
		t.Errorf("got backend %q, want the backend's type name", unsup.Backend)
	}
	if !errors.Is(err, errors.ErrUnsupported) {
		t.Error("UnsupportedError does not match errors.ErrUnsupported")
	}

	if _, err = IsDir(ctx, fsys, "a/b"); !errors.As(err, &unsup) {
		t.Fatalf("got error %v, want UnsupportedError", err)
	}
}

func TestDirCapabilitySupported(t *testing.T) {
	t.Parallel()

	var (
		fsys = &dirFS{}
		ctx  = context.Background()
	)

	if err := Mkdir(ctx, fsys, "a/b"); err != nil {
		t.Fatal(err)
	}
	if len(fsys.mkdirs) != 1 || fsys.mkdirs[0] != "a/b" {
		t.Errorf("got mkdirs %v, want [a/b]", fsys.mkdirs)
	}

	ok, err := IsDir(ctx, fsys, "a/b")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("got IsDir false, want true")
	}
}
