// Package trainer defines the Trainer interface for speech-model training
// backends.
//
// A training job compiles an intent graph against an acoustic model and
// writes the resulting decoding graph into an output directory. The ASR
// bridge always points OutputDir at a fresh staging directory and publishes
// the result itself, so implementations never need to worry about partially
// written output being visible.
package trainer

import "context"

// Job describes one training run.
type Job struct {
	// GraphPath is the intent graph to compile, as named in the train request.
	GraphPath string

	// ModelDir holds the acoustic model.
	ModelDir string

	// OutputDir is an empty directory that receives the compiled artifacts.
	OutputDir string
}

// Trainer is the abstraction over any training backend.
type Trainer interface {
	// Train runs job to completion. A non-nil error means the contents of
	// job.OutputDir must be discarded.
	Train(ctx context.Context, job Job) error
}
