package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/vetscribe/scribe/internal/pkg/utils"
)

// Runner invokes an external conversion command
type Runner interface {
	Run(ctx context.Context, command string, workingDir string) error
}

// Result is the normalization outcome: the file to submit for transcription
type Result struct {
	Path     string
	Strategy string
	// Temp marks a conversion artifact to be deleted after use,
	// the original source file is never marked
	Temp bool
}

// strategy is one named conversion attempt with a uniform
// success predicate: the output file exists and is non-empty
type strategy struct {
	name      string
	outSuffix string
	command   string
}

// Normalizer converts recorded audio into a transcription-friendly format.
// Strategies are tried in order, the original file is the last resort.
type Normalizer struct {
	runner     Runner
	timeout    time.Duration
	strategies []strategy
}

// NewNormalizer creates a Normalizer with the default ffmpeg strategy chain
func NewNormalizer(runner Runner, timeout time.Duration) (*Normalizer, error) {
	if runner == nil {
		return nil, fmt.Errorf("no runner")
	}
	if timeout <= 0 {
		timeout = time.Minute * 2
	}
	return &Normalizer{runner: runner, timeout: timeout,
		strategies: []strategy{
			{name: "opus-16k", outSuffix: ".16k.ogg",
				command: "ffmpeg -y -hide_banner -i {INPUT} -vn -ac 1 -ar 16000 -c:a libopus {OUTPUT}"},
			{name: "wav-16k", outSuffix: ".16k.wav",
				command: "ffmpeg -y -hide_banner -f webm -i {INPUT} -vn -ac 1 -ar 16000 -f wav {OUTPUT}"},
		}}, nil
}

// Normalize tries the conversion strategies in order and returns the file
// actually usable for transcription. When every conversion fails, the
// original file is submitted unconverted - some inputs are natively
// acceptable to the transcription service.
func (n *Normalizer) Normalize(ctx context.Context, input string) (*Result, error) {
	if !utils.FileNonEmpty(input) {
		return nil, fmt.Errorf("no input file '%s'", input)
	}
	for _, s := range n.strategies {
		out := strings.TrimSuffix(input, filepath.Ext(input)) + s.outSuffix
		if err := n.runStrategy(ctx, s, input, out); err != nil {
			goapp.Log.Warn().Err(err).Str("strategy", s.name).Str("input", input).Msg("conversion failed")
			if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
				goapp.Log.Warn().Err(err).Str("file", out).Msg("can't drop partial output")
			}
			continue
		}
		goapp.Log.Info().Str("strategy", s.name).Str("output", out).Msg("converted")
		return &Result{Path: out, Strategy: s.name, Temp: true}, nil
	}
	goapp.Log.Warn().Str("input", input).Msg("all conversions failed, using original file")
	return &Result{Path: input, Strategy: "original", Temp: false}, nil
}

func (n *Normalizer) runStrategy(ctx context.Context, s strategy, input, output string) error {
	ctx, cancelF := context.WithTimeout(ctx, n.timeout)
	defer cancelF()
	cmd := strings.ReplaceAll(s.command, "{INPUT}", input)
	cmd = strings.ReplaceAll(cmd, "{OUTPUT}", output)
	if err := n.runner.Run(ctx, cmd, ""); err != nil {
		return fmt.Errorf("can't run %s: %w", s.name, err)
	}
	if !utils.FileNonEmpty(output) {
		return fmt.Errorf("empty output '%s'", output)
	}
	return nil
}
