package asr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/hermes-asr/internal/observe"
	"github.com/MrWong99/hermes-asr/pkg/hermes"
	"github.com/MrWong99/hermes-asr/pkg/provider/trainer"
)

// Training errors surfaced in [hermes.AsrError] messages.
var (
	ErrModelDirMissing = errors.New("asr: model directory not configured or missing")
	ErrGraphDirMissing = errors.New("asr: graph directory not configured or missing")
	ErrArtifactExists  = errors.New("asr: artifact exists and overwriting is disabled")
	ErrNoTrainer       = errors.New("asr: no trainer configured")
)

// ConflictPolicy selects what a no-overwrite training run does when the
// artifact already exists.
type ConflictPolicy string

const (
	// ConflictReuse reports success and keeps the existing artifact.
	ConflictReuse ConflictPolicy = "reuse"

	// ConflictFail reports [ErrArtifactExists].
	ConflictFail ConflictPolicy = "fail"
)

// TrainingSettings configures the [TrainingCoordinator].
type TrainingSettings struct {
	// ModelDir holds the acoustic model. Required.
	ModelDir string

	// GraphDir receives the compiled decoding graph. Required; it must exist
	// and is replaced as a whole by every successful run.
	GraphDir string

	// Artifact is the file inside GraphDir that marks a usable graph
	// (e.g. "HCLG.fst"). Empty disables artifact checks.
	Artifact string

	// NoOverwrite protects an existing Artifact from being replaced.
	NoOverwrite bool

	// OnConflict applies when NoOverwrite is set and Artifact exists.
	OnConflict ConflictPolicy
}

// TrainingCoordinator runs training requests. A run writes into a staging
// directory next to GraphDir and only becomes visible through a directory
// swap, so a failed or cancelled run never leaves partial output behind.
// Runs are serialized.
type TrainingCoordinator struct {
	mu       sync.Mutex
	settings TrainingSettings
	trainer  trainer.Trainer
	metrics  *observe.Metrics
}

// NewTrainingCoordinator returns a coordinator. tr and metrics may be nil; a
// nil trainer fails every run that cannot reuse an artifact.
func NewTrainingCoordinator(settings TrainingSettings, tr trainer.Trainer, metrics *observe.Metrics) *TrainingCoordinator {
	if settings.OnConflict == "" {
		settings.OnConflict = ConflictReuse
	}
	return &TrainingCoordinator{settings: settings, trainer: tr, metrics: metrics}
}

// Train handles req for siteID and returns either [hermes.AsrTrainSuccess] or
// [hermes.AsrError]. The request id doubles as the session id of the error.
func (c *TrainingCoordinator) Train(ctx context.Context, req hermes.AsrTrain, siteID string) hermes.Message {
	ctx, span := observe.StartSpan(ctx, "asr.train", siteID, req.ID)
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	reused, err := c.run(ctx, req)
	if c.metrics != nil {
		c.metrics.TrainDuration.Record(ctx, time.Since(start).Seconds())
	}

	log := observe.Logger(ctx).With("graph_path", req.GraphPath)
	if err != nil {
		span.RecordError(err)
		c.record(ctx, "error")
		log.Error("training failed", "error", err)
		return hermes.AsrError{
			Error:     err.Error(),
			Context:   req.GraphPath,
			SiteID:    siteID,
			SessionID: req.ID,
		}
	}

	if reused {
		c.record(ctx, "reused")
		log.Info("training skipped, artifact reused", "graph_dir", c.settings.GraphDir)
	} else {
		c.record(ctx, "ok")
		log.Info("training finished", "graph_dir", c.settings.GraphDir, "duration", time.Since(start))
	}
	return hermes.AsrTrainSuccess{ID: req.ID, SiteID: siteID}
}

func (c *TrainingCoordinator) record(ctx context.Context, status string) {
	if c.metrics != nil {
		c.metrics.RecordTrain(ctx, status)
	}
}

// run validates the configuration and trains. reused reports that an
// existing artifact was kept instead.
func (c *TrainingCoordinator) run(ctx context.Context, req hermes.AsrTrain) (reused bool, err error) {
	s := c.settings
	if !isDir(s.ModelDir) {
		return false, fmt.Errorf("%w: %q", ErrModelDirMissing, s.ModelDir)
	}
	if !isDir(s.GraphDir) {
		return false, fmt.Errorf("%w: %q", ErrGraphDirMissing, s.GraphDir)
	}

	if s.NoOverwrite && s.Artifact != "" {
		if _, err := os.Stat(filepath.Join(s.GraphDir, s.Artifact)); err == nil {
			if s.OnConflict == ConflictFail {
				return false, fmt.Errorf("%w: %s", ErrArtifactExists, filepath.Join(s.GraphDir, s.Artifact))
			}
			return true, nil
		}
	}

	if c.trainer == nil {
		return false, ErrNoTrainer
	}

	graphDir := filepath.Clean(s.GraphDir)
	staging := filepath.Join(filepath.Dir(graphDir), "."+filepath.Base(graphDir)+".staging-"+uuid.NewString())
	if err := os.Mkdir(staging, 0o755); err != nil {
		return false, fmt.Errorf("asr: create staging dir: %w", err)
	}
	published := false
	defer func() {
		if !published {
			_ = os.RemoveAll(staging)
		}
	}()

	job := trainer.Job{GraphPath: req.GraphPath, ModelDir: s.ModelDir, OutputDir: staging}
	if err := c.trainer.Train(ctx, job); err != nil {
		return false, fmt.Errorf("asr: train: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("asr: train: %w", err)
	}
	if s.Artifact != "" {
		if _, err := os.Stat(filepath.Join(staging, s.Artifact)); err != nil {
			return false, fmt.Errorf("asr: trainer did not produce %s: %w", s.Artifact, err)
		}
	}

	if err := swapDir(staging, graphDir); err != nil {
		return false, err
	}
	published = true
	return false, nil
}

// swapDir replaces dir with staging. On failure dir is restored.
func swapDir(staging, dir string) error {
	backup := dir + ".old-" + uuid.NewString()
	if err := os.Rename(dir, backup); err != nil {
		return fmt.Errorf("asr: move graph dir aside: %w", err)
	}
	if err := os.Rename(staging, dir); err != nil {
		if rerr := os.Rename(backup, dir); rerr != nil {
			return errors.Join(fmt.Errorf("asr: publish graph dir: %w", err), fmt.Errorf("asr: restore graph dir: %w", rerr))
		}
		return fmt.Errorf("asr: publish graph dir: %w", err)
	}
	_ = os.RemoveAll(backup)
	return nil
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
