// Package cliutil holds the small pieces every cmd/* tool repeats: a
// grouped --help renderer copied from the teacher's examples/cli.go
// (minus its ANSI coloring, which doesn't carry over well to a plain
// report) and a progress-reporting frame.Reader decorator standing in
// for the per-frame progressbar hook teacher's comparator.Comparator
// gets via SetProgressCallback — pipeline.Scheduler has no equivalent
// hook, so the callback is attached to the Reader instead.
package cliutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hdrtoolbox/hdrtoolbox/frame"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/pflag"
)

const flagGroupAnnotation = "group"

// AddFlagToHelpGroup tags flagName so Usage prints it under helpGroupName
// instead of the default "General Options" bucket.
func AddFlagToHelpGroup(flagName, helpGroupName string) {
	f := pflag.Lookup(flagName)
	if f == nil {
		panic("unknown flag: " + flagName)
	}
	if f.Annotations == nil {
		f.Annotations = map[string][]string{}
	}
	f.Annotations[flagGroupAnnotation] = []string{helpGroupName}
}

// Usage prints pflag.CommandLine grouped by AddFlagToHelpGroup tags, the
// teacher's examples/cli.go layout without the color escapes.
func Usage(toolName string) {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n", toolName)

	groups := make(map[string][]*pflag.Flag)
	var order []string
	var maxName, maxUsage int

	pflag.CommandLine.VisitAll(func(f *pflag.Flag) {
		group := "General Options"
		if ann := f.Annotations[flagGroupAnnotation]; len(ann) > 0 {
			group = ann[0]
		}
		if _, ok := groups[group]; !ok {
			order = append(order, group)
		}
		groups[group] = append(groups[group], f)
		if len(f.Name) > maxName {
			maxName = len(f.Name)
		}
		if len(f.Usage) > maxUsage {
			maxUsage = len(f.Usage)
		}
	})

	for _, group := range order {
		fmt.Fprintln(os.Stderr, group+":")
		for _, f := range groups[group] {
			namePad := strings.Repeat(" ", maxName-len(f.Name))
			usagePad := strings.Repeat(" ", maxUsage-len(f.Usage))
			fmt.Fprintf(os.Stderr, "  --%s%s  %s%s  (default %s)\n", f.Name, namePad, f.Usage, usagePad, f.DefValue)
		}
		fmt.Fprintln(os.Stderr)
	}
}

// ProgressReader wraps a frame.Reader and ticks bar once per Read call,
// regardless of whether the frame turned out available (the teacher's
// callback fires once per completed frame pair; this fires once per
// attempted read, which tracks stream position the same way).
type ProgressReader struct {
	frame.Reader
	Bar *progressbar.ProgressBar
}

// NewProgressReader wraps reader with a progressbar sized to numFrames,
// labeled description (teacher's progressbar.NewOptions call in cli/main.go).
func NewProgressReader(reader frame.Reader, numFrames int, description string) *ProgressReader {
	bar := progressbar.NewOptions(
		numFrames,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
	)
	return &ProgressReader{Reader: reader, Bar: bar}
}

func (p *ProgressReader) Read(frameIndex int) (*frame.Frame, error) {
	f, err := p.Reader.Read(frameIndex)
	_ = p.Bar.Add(1)
	return f, err
}

// ParseChromaFormat maps the --chroma flag's string value to a
// frame.ChromaFormat, defaulting to 4:2:0 on an unrecognized value.
func ParseChromaFormat(s string) frame.ChromaFormat {
	switch strings.ToLower(s) {
	case "400":
		return frame.Format400
	case "422":
		return frame.Format422
	case "444":
		return frame.Format444
	default:
		return frame.Format420
	}
}

// ToolName returns the invoked binary's base name, for Usage's banner.
func ToolName() string { return filepath.Base(os.Args[0]) }
