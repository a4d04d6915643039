// Package batch implements the concurrent two-sequence comparison driver
// used by tools like hdrvqm that score a whole decoded sequence rather
// than writing a transformed one (SPEC_FULL.md §0). It is adapted from
// the teacher's comparator.Comparator goroutine pipeline: reader threads
// feed a pairing stage, a pool of metric workers score each pair, and an
// aggregation goroutine assembles the per-frame series. The per-frame
// operator chain itself stays single-threaded per spec.md §5; this
// package only parallelizes the outer batch loop.
package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/hdrtoolbox/hdrtoolbox/blockingpool"
	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"golang.org/x/sync/errgroup"
)

// Metric is the scoring contract the batch Runner calls per frame pair
// (the same shape as pipeline.MetricSink, kept separate so this package
// does not need to import pipeline).
type Metric interface {
	Compute(ref, test *frame.Frame) (map[string]float64, error)
}

type framePair struct {
	index int
	ref   *frame.Frame
	test  *frame.Frame
}

type metricResult struct {
	index  int
	scores map[string]float64
}

// Runner orchestrates the concurrent comparison of two frame sources
// using a set of metrics (teacher's comparator.Comparator, generalized
// from raw byte planes to *frame.Frame and from a fixed metric list to
// any SPEC_FULL.md metric.Metric).
type Runner struct {
	refReader, testReader frame.Reader
	metrics               []Metric
	frameThreads          int
	numFrames             int

	refPool, testPool blockingpool.BlockingPool[*frame.Frame]

	refChan, testChan chan *frame.Frame
	pairChan          chan framePair
	scoresChan        chan metricResult

	finalScores map[string][]float64

	progress func(done, total int)
}

// NewRunner validates its inputs and pre-allocates frame buffers sized
// for frameThreads concurrent workers (teacher's NewComparator).
func NewRunner(refReader, testReader frame.Reader, metrics []Metric, frameThreads, numFrames int, bufferFormat frame.Format) (*Runner, error) {
	if refReader == nil || testReader == nil {
		return nil, errors.New("batch: refReader and testReader must be non-nil")
	}
	if len(metrics) < 1 {
		return nil, errors.New("batch: at least one metric must be specified")
	}
	if frameThreads < 1 {
		return nil, errors.New("batch: at least 1 thread is required")
	}
	if numFrames < 1 {
		return nil, errors.New("batch: numFrames must be > 0")
	}

	r := &Runner{
		refReader:    refReader,
		testReader:   testReader,
		metrics:      metrics,
		frameThreads: frameThreads,
		numFrames:    numFrames,
		finalScores:  make(map[string][]float64),
	}

	totalBuffers := frameThreads + 1
	r.refPool = blockingpool.NewBlockingPool[*frame.Frame](totalBuffers)
	r.testPool = blockingpool.NewBlockingPool[*frame.Frame](totalBuffers)
	for i := 0; i < totalBuffers; i++ {
		r.refPool.Put(frame.New(bufferFormat))
		r.testPool.Put(frame.New(bufferFormat))
	}

	r.refChan = make(chan *frame.Frame, 1)
	r.testChan = make(chan *frame.Frame, 1)
	r.pairChan = make(chan framePair, frameThreads)
	r.scoresChan = make(chan metricResult, frameThreads)

	return r, nil
}

// SetProgressCallback registers a progress callback invoked after each
// aggregated frame pair. Must be called before Run.
func (r *Runner) SetProgressCallback(cb func(done, total int)) { r.progress = cb }

// Run drives reader, pairing, metric-worker, and aggregation goroutines
// to completion and returns the per-metric per-frame score series
// (teacher's Comparator.Run).
func (r *Runner) Run(parentCtx context.Context) (map[string][]float64, error) {
	group, ctx := errgroup.WithContext(parentCtx)

	group.Go(func() error {
		defer close(r.refChan)
		defer close(r.testChan)
		return r.spawnReaders(ctx)
	})
	group.Go(func() error {
		defer close(r.pairChan)
		return r.spawnPairing(ctx)
	})
	group.Go(func() error {
		defer close(r.scoresChan)
		return r.spawnMetricWorkers(ctx)
	})
	group.Go(func() error { return r.aggregate(ctx) })

	return r.finalScores, group.Wait()
}

func (r *Runner) spawnReaders(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return r.readerLoop(ctx, r.refReader, r.refChan, r.refPool) })
	group.Go(func() error { return r.readerLoop(ctx, r.testReader, r.testChan, r.testPool) })
	return group.Wait()
}

func (r *Runner) readerLoop(ctx context.Context, reader frame.Reader, out chan<- *frame.Frame, pool blockingpool.BlockingPool[*frame.Frame]) error {
	for i := 0; i < r.numFrames; i++ {
		var buf *frame.Frame
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			buf = pool.Get()
		}

		f, err := reader.Read(i)
		if err != nil {
			return err
		}
		if f == nil || !f.IsAvailable {
			pool.Put(buf)
			return nil
		}
		copyFrameInto(buf, f)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- buf:
		}
	}
	return nil
}

// copyFrameInto copies src's format, metadata, and pixel payload into
// dst's already-allocated buffers, so pool buffers are reused in place
// rather than replaced (spec.md §3.1 steady-state allocation rule).
func copyFrameInto(dst, src *frame.Frame) {
	dst.Format = src.Format
	dst.FrameNo = src.FrameNo
	dst.IsAvailable = src.IsAvailable
	dst.MinPelValue = src.MinPelValue
	dst.MaxPelValue = src.MaxPelValue
	dst.MidPelValue = src.MidPelValue
	for c := frame.Component(0); c < 4; c++ {
		if len(dst.U8[c]) != len(src.U8[c]) {
			dst.U8[c] = make([]uint8, len(src.U8[c]))
		}
		copy(dst.U8[c], src.U8[c])
		if len(dst.U16[c]) != len(src.U16[c]) {
			dst.U16[c] = make([]uint16, len(src.U16[c]))
		}
		copy(dst.U16[c], src.U16[c])
		if len(dst.F32[c]) != len(src.F32[c]) {
			dst.F32[c] = make([]float32, len(src.F32[c]))
		}
		copy(dst.F32[c], src.F32[c])
	}
}

func (r *Runner) spawnPairing(ctx context.Context) error {
	for i := 0; i < r.numFrames; i++ {
		var ref, test *frame.Frame
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ref = <-r.refChan:
			if ref == nil {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case test = <-r.testChan:
			if test == nil {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r.pairChan <- framePair{i, ref, test}:
		}
	}
	return nil
}

func (r *Runner) spawnMetricWorkers(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.frameThreads; i++ {
		group.Go(func() error { return r.metricWorker(ctx) })
	}
	return group.Wait()
}

func (r *Runner) metricWorker(ctx context.Context) error {
	for {
		var pair framePair
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pair, ok = <-r.pairChan:
			if !ok {
				return nil
			}
		}

		scores, err := r.computePairMetrics(pair)
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case r.scoresChan <- metricResult{pair.index, scores}:
		}
	}
}

func (r *Runner) computePairMetrics(pair framePair) (map[string]float64, error) {
	defer r.refPool.Put(pair.ref)
	defer r.testPool.Put(pair.test)

	result := make(map[string]float64, len(r.metrics)*2)
	for _, m := range r.metrics {
		scores, err := m.Compute(pair.ref, pair.test)
		if err != nil {
			return nil, fmt.Errorf("batch: metric failed on frame %d: %w", pair.index, err)
		}
		for k, v := range scores {
			result[k] = v
		}
	}
	return result, nil
}

func (r *Runner) aggregate(ctx context.Context) error {
	completed := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-r.scoresChan:
			if !ok {
				return nil
			}
			for name, val := range res.scores {
				if r.finalScores[name] == nil {
					r.finalScores[name] = make([]float64, r.numFrames)
				}
				r.finalScores[name][res.index] = val
			}
			completed++
			if r.progress != nil {
				r.progress(completed, r.numFrames)
			}
		}
	}
}
