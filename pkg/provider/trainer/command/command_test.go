package command

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/MrWong99/hermes-asr/pkg/provider/trainer"
)

func TestNew_EmptyCommand(t *testing.T) {
	t.Parallel()
	for _, argv := range [][]string{nil, {""}} {
		if _, err := New(argv); err == nil {
			t.Errorf("New(%q): expected error", argv)
		}
	}
}

func TestTrain_SubstitutesPlaceholders(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	t.Parallel()

	out := t.TempDir()
	tr, err := New([]string{"sh", "-c", `printf '%s|%s' "$1" "$2" > "$3/HCLG.fst"`, "train", "{graph}", "{model_dir}", "{output_dir}"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	job := trainer.Job{GraphPath: "intent.pickle.gz", ModelDir: "/models/en", OutputDir: out}
	if err := tr.Train(context.Background(), job); err != nil {
		t.Fatalf("Train: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, "HCLG.fst"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if got, want := string(data), "intent.pickle.gz|/models/en"; got != want {
		t.Errorf("artifact = %q, want %q", got, want)
	}
}

func TestTrain_Env(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	t.Parallel()

	out := t.TempDir()
	tr, _ := New([]string{"sh", "-c", `printf '%s' "$TRAIN_MODE" > "$0/mode"`, "{output_dir}"}, WithEnv("TRAIN_MODE=fast"))
	if err := tr.Train(context.Background(), trainer.Job{OutputDir: out}); err != nil {
		t.Fatalf("Train: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(out, "mode"))
	if string(data) != "fast" {
		t.Errorf("mode = %q, want fast", data)
	}
}

func TestTrain_Failure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	t.Parallel()

	tr, _ := New([]string{"sh", "-c", "echo boom >&2; exit 3"})
	if err := tr.Train(context.Background(), trainer.Job{}); err == nil {
		t.Fatal("expected error from failing command")
	}
}
