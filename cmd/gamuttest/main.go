// Command gamuttest is a thin scheduler (spec.md §1) that round-trips a
// linear RGB sequence through colortransform.CL's constant-luminance
// Forward/Inverse pair and scores the reconstruction against the
// original with metric.DeltaE2000, the way GamutTest exercises a color
// transform's closed-form invertibility in the original toolkit.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/hdrtoolbox/hdrtoolbox/cmd/internal/cliutil"
	"github.com/hdrtoolbox/hdrtoolbox/cmd/internal/report"
	"github.com/hdrtoolbox/hdrtoolbox/colortransform"
	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/metric"
	"github.com/hdrtoolbox/hdrtoolbox/rawio"
	"github.com/hdrtoolbox/hdrtoolbox/transfer"
	"github.com/spf13/pflag"
)

type settings struct {
	input      string
	width      int
	height     int
	numFrames  int
	mode       int
	forceRange int
	help       bool
}

var cfg settings

func init() {
	pflag.CommandLine.SortFlags = false

	pflag.StringVarP(&cfg.input, "input", "i", "", "Input raw planar linear-RGB float 4:4:4 file")
	pflag.IntVar(&cfg.width, "width", 0, "Width in samples")
	pflag.IntVar(&cfg.height, "height", 0, "Height in samples")
	pflag.IntVar(&cfg.numFrames, "num-frames", 1, "Number of frames to process")
	pflag.IntVar(&cfg.mode, "mode", 0, "colortransform.Mode for the constant-luminance matrix")
	pflag.IntVar(&cfg.forceRange, "force-range", 0, "ForceRange: 2 selects the symmetric-kink-avoidance variant")
	pflag.BoolVarP(&cfg.help, "help", "h", false, "Show this help message")

	pflag.Parse()
	if cfg.help {
		cliutil.Usage(cliutil.ToolName())
		os.Exit(0)
	}
}

func main() {
	if cfg.input == "" || cfg.width == 0 || cfg.height == 0 {
		fmt.Fprintln(os.Stderr, "gamuttest: --input, --width, and --height are required")
		cliutil.Usage(cliutil.ToolName())
		os.Exit(1)
	}

	rgbFormat := frame.Format{
		ChromaFormat: frame.Format444,
		IsFloat:      true,
		ColorSpace:   frame.ColorSpaceRGB,
	}
	rgbFormat.Width[frame.ComponentY], rgbFormat.Height[frame.ComponentY] = cfg.width, cfg.height
	rgbFormat.DeriveChromaPlanes()

	reader, err := rawio.Open(cfg.input, rgbFormat)
	if err != nil {
		log.Fatal("failed to open input:", err)
	}
	progressReader := cliutil.NewProgressReader(reader, cfg.numFrames, "Round-tripping gamut")
	defer progressReader.Close()

	cl := &colortransform.CL{Mode: colortransform.Mode(cfg.mode), TF: transfer.Create(transfer.PQ, false), ForceRange: cfg.forceRange}
	deltaE := metric.NewDeltaE2000()

	scores := make(map[string][]float64)
	for n := 0; n < cfg.numFrames; n++ {
		src, err := progressReader.Read(n)
		if err != nil {
			log.Fatal("read failed:", err)
		}
		if src == nil || !src.IsAvailable {
			break
		}

		ycc := frame.New(rgbFormat)
		if err := cl.Forward(src, ycc); err != nil {
			log.Fatal("CL.Forward failed:", err)
		}
		roundTrip := frame.New(rgbFormat)
		if err := cl.Inverse(ycc, roundTrip); err != nil {
			log.Fatal("CL.Inverse failed:", err)
		}

		result, err := deltaE.Compute(src, roundTrip)
		if err != nil {
			log.Fatal("DeltaE2000 failed:", err)
		}
		for k, v := range result {
			scores[k] = append(scores[k], v)
		}
	}

	report.Print(scores)
}
