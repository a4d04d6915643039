// Package pipeline implements the Scheduler (C10): a single-threaded
// cooperative loop over a fixed chain of operators, terminating on the
// reader's first unavailable frame or the first operator error (spec.md
// §2, §5, §7).
package pipeline

import (
	"fmt"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/herror"
)

// Operator is the single capability set every C2-C9 component exposes
// to the scheduler (spec.md §9): process(dst, src) for format-changing
// operators, or process(frame) for the in-place tone-mapping case.
type Operator interface {
	Name() string
	// Process transforms src into dst. Implementations that support
	// in-place operation (only ToneMapping per spec.md §5) may alias
	// dst == src; every other operator receives distinct Frames.
	Process(dst, src *frame.Frame) error
	// OutputFormat derives the Frame format Process will populate dst
	// with, given the incoming format, so the scheduler can allocate dst
	// once at construction time.
	OutputFormat(in frame.Format) frame.Format
}

// MetricSink is the terminal stage in comparison mode: instead of writing
// the final Frame, the scheduler hands it (paired with the corresponding
// reference-path Frame) to a metric for scoring.
type MetricSink interface {
	Compute(ref, test *frame.Frame) (map[string]float64, error)
}

// Scheduler holds an ordered operator chain, a Reader, and either a
// Writer or a MetricSink (spec.md §2 control flow, §7 error reporting).
type Scheduler struct {
	Reader    frame.Reader
	Operators []Operator
	Writer    frame.Writer
	Metric    MetricSink
	// RefReader supplies the second input stream when Metric is set
	// (e.g. the undistorted source fed in parallel with the processed
	// chain's output).
	RefReader frame.Reader

	buffers []*frame.Frame
	scores  map[string][]float64
}

// NewScheduler builds a Scheduler, pre-deriving every operator's output
// format so per-frame allocation in steady state is never required
// (spec.md §3.1).
func NewScheduler(reader frame.Reader, ops []Operator, inputFormat frame.Format) *Scheduler {
	s := &Scheduler{Reader: reader, Operators: ops}
	s.buffers = make([]*frame.Frame, len(ops)+1)
	fmtCursor := inputFormat
	s.buffers[0] = frame.New(fmtCursor)
	for i, op := range ops {
		fmtCursor = op.OutputFormat(fmtCursor)
		s.buffers[i+1] = frame.New(fmtCursor)
	}
	return s
}

// WithWriter attaches the terminal Writer for transform-mode pipelines.
func (s *Scheduler) WithWriter(w frame.Writer) *Scheduler { s.Writer = w; return s }

// WithMetric attaches a MetricSink and a second reader for
// comparison-mode pipelines (the operator chain runs on Reader's stream;
// RefReader supplies the untouched counterpart the metric scores against).
func (s *Scheduler) WithMetric(m MetricSink, refReader frame.Reader) *Scheduler {
	s.Metric = m
	s.RefReader = refReader
	s.scores = make(map[string][]float64)
	return s
}

// Run drives the scheduler frame by frame until the reader reports
// end-of-stream, or returns the structured error from the first failing
// operator, naming the operator and the offending field (spec.md §7).
func (s *Scheduler) Run() (map[string][]float64, error) {
	for n := 0; ; n++ {
		src, err := s.Reader.Read(n)
		if err != nil {
			return s.scores, herror.New(herror.IOFailure, "Scheduler", fmt.Sprintf("frame %d", n), err)
		}
		if src == nil || !src.IsAvailable {
			return s.scores, nil
		}
		s.buffers[0] = src

		cur := src
		for i, op := range s.Operators {
			dst := s.buffers[i+1]
			if err := op.Process(dst, cur); err != nil {
				return s.scores, fmt.Errorf("pipeline: operator %q at stage %d failed on frame %d: %w", op.Name(), i, n, err)
			}
			cur = dst
		}

		if err := s.finishFrame(n, cur); err != nil {
			return s.scores, err
		}
	}
}

func (s *Scheduler) finishFrame(n int, final *frame.Frame) error {
	switch {
	case s.Writer != nil:
		if err := s.Writer.Write(final, n); err != nil {
			return herror.New(herror.IOFailure, "Scheduler", fmt.Sprintf("write frame %d", n), err)
		}
	case s.Metric != nil:
		ref, err := s.RefReader.Read(n)
		if err != nil {
			return herror.New(herror.IOFailure, "Scheduler", fmt.Sprintf("ref read frame %d", n), err)
		}
		if ref == nil || !ref.IsAvailable {
			return nil
		}
		scores, err := s.Metric.Compute(ref, final)
		if err != nil {
			return fmt.Errorf("pipeline: metric failed on frame %d: %w", n, err)
		}
		for k, v := range scores {
			s.scores[k] = append(s.scores[k], v)
		}
	}
	return nil
}

// Close releases the reader, ref reader, and writer in order, returning
// the first error encountered.
func (s *Scheduler) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.Reader != nil {
		record(s.Reader.Close())
	}
	if s.RefReader != nil {
		record(s.RefReader.Close())
	}
	if s.Writer != nil {
		record(s.Writer.Close())
	}
	return firstErr
}
