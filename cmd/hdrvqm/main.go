// Command hdrvqm is a thin scheduler (spec.md §1) over batch.Runner: it
// compares a reference and a test sequence with any subset of the C9
// metrics (HDRVQM by default) concurrently across frameThreads
// workers, the way teacher's cli/main.go drives comparator.Comparator,
// then reports per-metric statistics and the teacher's
// Pearson/Spearman/Kendall cross-metric correlation table when more than
// one metric ran (cli/statistics.go's multi-metric report).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/hdrtoolbox/hdrtoolbox/batch"
	"github.com/hdrtoolbox/hdrtoolbox/cmd/internal/cliutil"
	"github.com/hdrtoolbox/hdrtoolbox/cmd/internal/report"
	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/metric"
	"github.com/hdrtoolbox/hdrtoolbox/rawio"
	"github.com/hdrtoolbox/hdrtoolbox/transfer"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/pflag"
)

type settings struct {
	reference, distortion string
	width, height         int
	bitDepth              int
	chromaFormat          string
	isFloat               bool
	frameRate             float64
	frameThreads          int
	numFrames             int
	metrics               string
	help                  bool
}

var cfg settings

const metricList = "psnr, ssim, tf-ssim, mpsnr-fast, deltae2000, blockiness, hdrvqm"

func init() {
	pflag.CommandLine.SortFlags = false

	pflag.StringVarP(&cfg.reference, "reference", "r", "", "Reference raw planar file")
	pflag.StringVarP(&cfg.distortion, "distortion", "d", "", "Distorted raw planar file")
	pflag.IntVar(&cfg.width, "width", 0, "Luma width in samples")
	pflag.IntVar(&cfg.height, "height", 0, "Luma height in samples")
	pflag.IntVar(&cfg.bitDepth, "bit-depth", 10, "Bit depth (8-16) for every component")
	pflag.StringVar(&cfg.chromaFormat, "chroma", "444", "Chroma format: 400, 420, 422, or 444")
	pflag.BoolVar(&cfg.isFloat, "float", true, "Samples are IEEE 754 float32 scene-linear values")
	pflag.Float64VarP(&cfg.frameRate, "fps", "f", 24, "Frame rate, used by HDRVQM's tube length")
	pflag.IntVar(&cfg.frameThreads, "frame-threads", 3, "Number of frame pairs to score in parallel")
	pflag.IntVar(&cfg.numFrames, "num-frames", 1, "Number of frames to process")
	pflag.StringVar(&cfg.metrics, "metrics", "hdrvqm", fmt.Sprintf("Comma-separated metric list [%s]", metricList))
	pflag.BoolVarP(&cfg.help, "help", "h", false, "Show this help message")

	pflag.Parse()
	if cfg.help {
		cliutil.Usage(cliutil.ToolName())
		os.Exit(0)
	}
}

func buildMetrics(names []string, frameRate float64) ([]batch.Metric, error) {
	var out []batch.Metric
	for _, name := range names {
		switch strings.TrimSpace(name) {
		case "psnr":
			out = append(out, metric.NewPSNR())
		case "ssim":
			out = append(out, metric.NewSSIM())
		case "tf-ssim":
			out = append(out, metric.NewTFSSIM(transfer.Create(transfer.PQ, false)))
		case "mpsnr-fast":
			out = append(out, metric.NewMPSNRFast())
		case "deltae2000":
			out = append(out, metric.NewDeltaE2000())
		case "blockiness":
			out = append(out, metric.NewBlockiness())
		case "hdrvqm":
			out = append(out, metric.NewHDRVQM(frameRate))
		default:
			return nil, fmt.Errorf("hdrvqm: unsupported metric %q (choose from %s)", name, metricList)
		}
	}
	return out, nil
}

func main() {
	if cfg.reference == "" || cfg.distortion == "" || cfg.width == 0 || cfg.height == 0 {
		fmt.Fprintln(os.Stderr, "hdrvqm: --reference, --distortion, --width, and --height are required")
		cliutil.Usage(cliutil.ToolName())
		os.Exit(1)
	}

	format := frame.Format{
		ChromaFormat: cliutil.ParseChromaFormat(cfg.chromaFormat),
		IsFloat:      cfg.isFloat,
		BitDepth:     [4]int{cfg.bitDepth, cfg.bitDepth, cfg.bitDepth, 0},
	}
	format.Width[frame.ComponentY], format.Height[frame.ComponentY] = cfg.width, cfg.height
	format.DeriveChromaPlanes()

	refReader, err := rawio.Open(cfg.reference, format)
	if err != nil {
		log.Fatal("failed to open reference:", err)
	}
	testReader, err := rawio.Open(cfg.distortion, format)
	if err != nil {
		log.Fatal("failed to open distortion:", err)
	}

	metrics, err := buildMetrics(strings.Split(cfg.metrics, ","), cfg.frameRate)
	if err != nil {
		log.Fatal(err)
	}

	runner, err := batch.NewRunner(refReader, testReader, metrics, cfg.frameThreads, cfg.numFrames, format)
	if err != nil {
		log.Fatal("failed to build runner:", err)
	}

	bar := progressbar.NewOptions(cfg.numFrames,
		progressbar.OptionSetDescription("Scoring frames"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
	)
	runner.SetProgressCallback(func(done, total int) { _ = bar.Add(1) })

	scores, err := runner.Run(context.Background())
	if err != nil {
		log.Fatal("hdrvqm failed:", err)
	}

	for _, m := range metrics {
		if closer, ok := m.(interface{ Close() }); ok {
			closer.Close()
		}
	}

	report.Print(scores)
}
