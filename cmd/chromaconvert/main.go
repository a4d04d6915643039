// Command chromaconvert is a thin scheduler (spec.md §1) over
// chroma.Resampler: it reads a headerless raw planar sequence, resamples
// its chroma planes to the requested ChromaFormat, and writes the result
// back out, the way teacher's cli/main.go wraps a single comparator.Metric
// with pflag settings and a progressbar.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/hdrtoolbox/hdrtoolbox/chroma"
	"github.com/hdrtoolbox/hdrtoolbox/cmd/internal/cliutil"
	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/pipeline"
	"github.com/hdrtoolbox/hdrtoolbox/rawio"
	"github.com/spf13/pflag"
)

type settings struct {
	input, output       string
	width, height       int
	bitDepth            int
	inChroma, outChroma string
	resampleMethod      string
	numFrames           int
	help                bool
}

var cfg settings

func init() {
	pflag.CommandLine.SortFlags = false

	pflag.StringVarP(&cfg.input, "input", "i", "", "Input raw planar file")
	pflag.StringVarP(&cfg.output, "output", "o", "", "Output raw planar file")
	pflag.IntVar(&cfg.width, "width", 0, "Luma width in samples")
	pflag.IntVar(&cfg.height, "height", 0, "Luma height in samples")
	pflag.IntVar(&cfg.bitDepth, "bit-depth", 10, "Bit depth (8-16) for every component")
	pflag.StringVar(&cfg.inChroma, "in-chroma", "420", "Input chroma format: 400, 420, 422, or 444")
	pflag.StringVar(&cfg.outChroma, "out-chroma", "444", "Output chroma format: 400, 420, 422, or 444")
	pflag.StringVar(&cfg.resampleMethod, "method", "mpeg2tm5", "Resample filter: mpeg2tm5, threetap, sixtap, bilinear")
	cliutil.AddFlagToHelpGroup("method", "Resampler Options")
	pflag.IntVar(&cfg.numFrames, "num-frames", 1, "Number of frames to process")
	pflag.BoolVarP(&cfg.help, "help", "h", false, "Show this help message")

	pflag.Parse()
	if cfg.help {
		cliutil.Usage(cliutil.ToolName())
		os.Exit(0)
	}
}

func resampleMethod(s string) chroma.Method {
	switch s {
	case "threetap":
		return chroma.MethodThreeTap
	case "sixtap":
		return chroma.MethodSixTap
	case "bilinear":
		return chroma.MethodBilinear
	default:
		return chroma.MethodMPEG2TM5
	}
}

// chromaOp adapts chroma.Resampler to pipeline.Operator: Convert already
// allocates its own destination Frame, so Process copies its result into
// the scheduler-owned dst buffer instead of replacing it.
type chromaOp struct {
	resampler *chroma.Resampler
	outFormat frame.Format
}

func (c *chromaOp) Name() string                              { return "chroma-resample" }
func (c *chromaOp) OutputFormat(in frame.Format) frame.Format { return c.outFormat }
func (c *chromaOp) Process(dst, src *frame.Frame) error {
	out, err := c.resampler.Convert(src, c.outFormat)
	if err != nil {
		return err
	}
	*dst = *out
	return nil
}

func main() {
	if cfg.input == "" || cfg.output == "" || cfg.width == 0 || cfg.height == 0 {
		fmt.Fprintln(os.Stderr, "chromaconvert: --input, --output, --width, and --height are required")
		cliutil.Usage(cliutil.ToolName())
		os.Exit(1)
	}

	inFormat := frame.Format{
		ChromaFormat: cliutil.ParseChromaFormat(cfg.inChroma),
		BitDepth:     [4]int{cfg.bitDepth, cfg.bitDepth, cfg.bitDepth, 0},
	}
	inFormat.Width[frame.ComponentY], inFormat.Height[frame.ComponentY] = cfg.width, cfg.height
	inFormat.DeriveChromaPlanes()

	outFormat := inFormat
	outFormat.ChromaFormat = cliutil.ParseChromaFormat(cfg.outChroma)
	outFormat.DeriveChromaPlanes()

	reader, err := rawio.Open(cfg.input, inFormat)
	if err != nil {
		log.Fatal("failed to open input:", err)
	}
	progressReader := cliutil.NewProgressReader(reader, cfg.numFrames, "Converting chroma")

	writer, err := rawio.Create(cfg.output, outFormat)
	if err != nil {
		log.Fatal("failed to create output:", err)
	}

	resampler := chroma.NewResampler(resampleMethod(cfg.resampleMethod), frame.ChromaLocLeft)
	op := &chromaOp{resampler: resampler, outFormat: outFormat}

	sched := pipeline.NewScheduler(progressReader, []pipeline.Operator{op}, inFormat)
	sched.WithWriter(writer)

	if _, err := sched.Run(); err != nil {
		log.Fatal("chromaconvert failed:", err)
	}
	if err := sched.Close(); err != nil {
		log.Fatal("failed to close streams:", err)
	}
}
