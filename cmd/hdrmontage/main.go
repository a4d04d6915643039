// Command hdrmontage is a thin scheduler (spec.md §1) that composites an
// overlay sequence into a background sequence at the DestMinPos/DestMaxPos
// placement box (spec.md §6.3), resizing the overlay to fit the box with
// scale.Scaler first. Two independent input streams rule out
// pipeline.Scheduler's single-Reader chain, so the frame loop is driven
// directly here, the same thin-scheduler shape teacher's cli/main.go uses
// around comparator.Comparator for its own two-stream case.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/hdrtoolbox/hdrtoolbox/cmd/internal/cliutil"
	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/hdrtoolbox/hdrtoolbox/herror"
	"github.com/hdrtoolbox/hdrtoolbox/rawio"
	"github.com/hdrtoolbox/hdrtoolbox/scale"
	"github.com/spf13/pflag"
)

type settings struct {
	background, overlay, output string
	bgWidth, bgHeight           int
	ovWidth, ovHeight           int
	bitDepth                    int
	chromaFormat                string
	destMinX, destMinY          int
	destMaxX, destMaxY          int
	scaleMethod                 string
	numFrames                   int
	help                        bool
}

var cfg settings

func init() {
	pflag.CommandLine.SortFlags = false

	pflag.StringVar(&cfg.background, "background", "", "Background raw planar file")
	pflag.StringVar(&cfg.overlay, "overlay", "", "Overlay raw planar file")
	pflag.StringVarP(&cfg.output, "output", "o", "", "Output raw planar file")
	pflag.IntVar(&cfg.bgWidth, "bg-width", 0, "Background luma width")
	pflag.IntVar(&cfg.bgHeight, "bg-height", 0, "Background luma height")
	pflag.IntVar(&cfg.ovWidth, "ov-width", 0, "Overlay luma width")
	pflag.IntVar(&cfg.ovHeight, "ov-height", 0, "Overlay luma height")
	pflag.IntVar(&cfg.bitDepth, "bit-depth", 10, "Bit depth (8-16) for every component")
	pflag.StringVar(&cfg.chromaFormat, "chroma", "420", "Chroma format shared by both streams: 400, 420, 422, or 444")
	pflag.IntVar(&cfg.destMinX, "dest-min-x", 0, "Placement box left edge, in background luma samples")
	pflag.IntVar(&cfg.destMinY, "dest-min-y", 0, "Placement box top edge")
	pflag.IntVar(&cfg.destMaxX, "dest-max-x", 0, "Placement box right edge")
	pflag.IntVar(&cfg.destMaxY, "dest-max-y", 0, "Placement box bottom edge")
	pflag.StringVar(&cfg.scaleMethod, "scale-method", "lanczos", "Overlay resize filter: nearest, bilinear, bicubic, lanczos")
	cliutil.AddFlagToHelpGroup("scale-method", "Placement Options")
	pflag.IntVar(&cfg.numFrames, "num-frames", 1, "Number of frames to process")
	pflag.BoolVarP(&cfg.help, "help", "h", false, "Show this help message")

	pflag.Parse()
	if cfg.help {
		cliutil.Usage(cliutil.ToolName())
		os.Exit(0)
	}
}

func scaleMethod(s string) scale.Method {
	switch s {
	case "nearest":
		return scale.MethodNearest
	case "bilinear":
		return scale.MethodBilinear
	case "bicubic":
		return scale.MethodBiCubic
	default:
		return scale.MethodLanczos
	}
}

func buildFormat(w, h, bitDepth int, chroma frame.ChromaFormat) frame.Format {
	f := frame.Format{ChromaFormat: chroma, BitDepth: [4]int{bitDepth, bitDepth, bitDepth, 0}}
	f.Width[frame.ComponentY], f.Height[frame.ComponentY] = w, h
	f.DeriveChromaPlanes()
	return f
}

// compositeInto pastes scaled's samples into dst (already a copy of the
// background) at the placement box's top-left corner, clipping any
// overlay sample that would fall outside dst's plane.
func compositeInto(dst, scaled *frame.Frame, originX, originY int) {
	for c := frame.Component(0); c < 3; c++ {
		dw, dh := dst.Format.Width[c], dst.Format.Height[c]
		sw, sh := scaled.Format.Width[c], scaled.Format.Height[c]
		if sw == 0 || sh == 0 {
			continue
		}
		ox, oy := originX, originY
		if c == frame.ComponentU || c == frame.ComponentV {
			ox, oy = scalePos(originX, dst, c), scalePos(originY, dst, c)
		}
		for y := 0; y < sh; y++ {
			dy := oy + y
			if dy < 0 || dy >= dh {
				continue
			}
			for x := 0; x < sw; x++ {
				dx := ox + x
				if dx < 0 || dx >= dw {
					continue
				}
				copySample(dst, scaled, c, dy*dw+dx, y*sw+x)
			}
		}
	}
}

func scalePos(lumaPos int, f *frame.Frame, c frame.Component) int {
	switch f.Format.ChromaFormat {
	case frame.Format420, frame.Format422:
		return lumaPos / 2
	default:
		return lumaPos
	}
}

func copySample(dst, src *frame.Frame, c frame.Component, dstIdx, srcIdx int) {
	switch {
	case dst.Format.IsFloat:
		dst.F32[c][dstIdx] = src.F32[c][srcIdx]
	case dst.Format.BitDepth[c] <= 8:
		dst.U8[c][dstIdx] = src.U8[c][srcIdx]
	default:
		dst.U16[c][dstIdx] = src.U16[c][srcIdx]
	}
}

func main() {
	if cfg.background == "" || cfg.overlay == "" || cfg.output == "" {
		fmt.Fprintln(os.Stderr, "hdrmontage: --background, --overlay, and --output are required")
		cliutil.Usage(cliutil.ToolName())
		os.Exit(1)
	}
	if cfg.destMaxX <= cfg.destMinX || cfg.destMaxY <= cfg.destMinY {
		log.Fatal(herror.New(herror.UnsupportedFormat, "hdrmontage", "dest-max must exceed dest-min on both axes", nil))
	}

	chromaFmt := cliutil.ParseChromaFormat(cfg.chromaFormat)
	bgFormat := buildFormat(cfg.bgWidth, cfg.bgHeight, cfg.bitDepth, chromaFmt)
	ovFormat := buildFormat(cfg.ovWidth, cfg.ovHeight, cfg.bitDepth, chromaFmt)
	boxW, boxH := cfg.destMaxX-cfg.destMinX, cfg.destMaxY-cfg.destMinY
	boxFormat := buildFormat(boxW, boxH, cfg.bitDepth, chromaFmt)

	bgReader, err := rawio.Open(cfg.background, bgFormat)
	if err != nil {
		log.Fatal("failed to open background:", err)
	}
	bgProgress := cliutil.NewProgressReader(bgReader, cfg.numFrames, "Compositing montage")
	defer bgProgress.Close()

	ovReader, err := rawio.Open(cfg.overlay, ovFormat)
	if err != nil {
		log.Fatal("failed to open overlay:", err)
	}
	defer ovReader.Close()

	writer, err := rawio.Create(cfg.output, bgFormat)
	if err != nil {
		log.Fatal("failed to create output:", err)
	}
	defer writer.Close()

	scaler := scale.NewScaler(scaleMethod(cfg.scaleMethod), cfg.ovWidth, cfg.ovHeight, boxW, boxH, 3)

	for n := 0; n < cfg.numFrames; n++ {
		bg, err := bgProgress.Read(n)
		if err != nil {
			log.Fatal("background read failed:", err)
		}
		if bg == nil || !bg.IsAvailable {
			break
		}
		ov, err := ovReader.Read(n)
		if err != nil {
			log.Fatal("overlay read failed:", err)
		}
		if ov == nil || !ov.IsAvailable {
			break
		}

		scaled, err := scaler.Process(ov, boxFormat)
		if err != nil {
			log.Fatal("overlay resize failed:", err)
		}

		compositeInto(bg, scaled, cfg.destMinX, cfg.destMinY)

		if err := writer.Write(bg, n); err != nil {
			log.Fatal("write failed:", err)
		}
	}
}
