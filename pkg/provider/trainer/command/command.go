// Package command implements [trainer.Trainer] by running an external
// training script.
//
// The argument list may contain the placeholders {graph}, {model_dir} and
// {output_dir}, which are replaced with the job's paths before execution:
//
//	tr, _ := command.New([]string{"kaldi-train", "--model-dir", "{model_dir}", "--graph", "{graph}", "--out", "{output_dir}"})
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/MrWong99/hermes-asr/pkg/provider/trainer"
)

// Compile-time assertion that Trainer satisfies trainer.Trainer.
var _ trainer.Trainer = (*Trainer)(nil)

// Option is a functional option for configuring a Trainer.
type Option func(*Trainer)

// WithEnv appends KEY=VALUE entries to the child process environment.
func WithEnv(env ...string) Option {
	return func(t *Trainer) {
		t.env = append(t.env, env...)
	}
}

// WithLogger sets the logger that receives the script's combined output at
// debug level.
func WithLogger(l *slog.Logger) Option {
	return func(t *Trainer) {
		t.logger = l
	}
}

// Trainer runs a command per training job.
type Trainer struct {
	argv   []string
	env    []string
	logger *slog.Logger
}

// New returns a Trainer for the given command line. argv[0] is the
// executable.
func New(argv []string, opts ...Option) (*Trainer, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.New("trainer command: command must not be empty")
	}
	t := &Trainer{argv: argv, logger: slog.Default()}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Train implements trainer.Trainer.
func (t *Trainer) Train(ctx context.Context, job trainer.Job) error {
	r := strings.NewReplacer(
		"{graph}", job.GraphPath,
		"{model_dir}", job.ModelDir,
		"{output_dir}", job.OutputDir,
	)
	args := make([]string, len(t.argv))
	for i, a := range t.argv {
		args[i] = r.Replace(a)
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if len(t.env) > 0 {
		cmd.Env = append(cmd.Environ(), t.env...)
	}

	start := time.Now()
	err := cmd.Run()
	t.logger.Debug("trainer command finished",
		"command", args[0],
		"duration", time.Since(start),
		"output", strings.TrimSpace(out.String()),
	)
	if err != nil {
		return fmt.Errorf("trainer command: %s: %w", args[0], err)
	}
	return nil
}
