package gantry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

type fakeFileTarget struct {
	FSTarget
}

func (fakeFileTarget) Open(context.Context) (io.ReadCloser, error)    { return nil, ErrNotExist }
func (fakeFileTarget) Create(context.Context) (io.WriteCloser, error) { return nil, ErrNotExist }

func TestLogObserver(t *testing.T) {
	t.Parallel()

	var (
		buf    bytes.Buffer
		logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		o      = &LogObserver{Logger: logger}
		target = fakeFileTarget{FSTarget: NewFSTarget(&flipFS{}, "logged/out.txt")}
	)

	if err := o.ObserveTarget(context.Background(), target); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	if !strings.Contains(got, "target created") {
		t.Errorf("log output %q does not mention target creation", got)
	}
	if !strings.Contains(got, "logged/out.txt") {
		t.Errorf("log output %q does not mention the target path", got)
	}
}
