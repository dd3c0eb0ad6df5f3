package surya

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// ProgressUpdate captures extraction progress events.
type ProgressUpdate struct {
	Percent float64
	Stage   string
	Message string
}

// Result reports a finished extraction.
type Result struct {
	TextPath  string
	WordCount int
}

// Client defines local inference extraction behaviour.
type Client interface {
	Extract(ctx context.Context, inputPath, outputPath string, progress func(ProgressUpdate)) (Result, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithModelDir points the binary at a local model directory instead of its
// download cache.
func WithModelDir(dir string) Option {
	return func(c *CLI) {
		c.modelDir = dir
	}
}

// CLI wraps the surya page-OCR command-line tool. Model inference inside
// the tool is memory-unbounded; run extractions under the harness.
type CLI struct {
	binary   string
	modelDir string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "surya-page-ocr"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Extract launches the OCR binary on one page PDF and returns the text
// result. The binary owns writing outputPath; progress arrives as JSON
// lines on stdout.
func (c *CLI) Extract(ctx context.Context, inputPath, outputPath string, progress func(ProgressUpdate)) (Result, error) {
	if inputPath == "" {
		return Result{}, errors.New("input path required")
	}
	if outputPath == "" {
		return Result{}, errors.New("output path required")
	}

	args := []string{"extract", "--input", inputPath, "--output", outputPath, "--progress-json"}
	if c.modelDir != "" {
		args = append(args, "--model-dir", c.modelDir)
	}

	cmd := commandContext(ctx, c.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", c.binary, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Bytes()
		var payload struct {
			Percent float64 `json:"percent"`
			Stage   string  `json:"stage"`
			Message string  `json:"message"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			continue
		}
		if progress != nil {
			progress(ProgressUpdate{Percent: payload.Percent, Stage: payload.Stage, Message: payload.Message})
		}
	}
	if err := scanner.Err(); err != nil {
		return Result{}, fmt.Errorf("read %s output: %w", c.binary, err)
	}

	if err := cmd.Wait(); err != nil {
		return Result{}, fmt.Errorf("%s extract failed: %w", c.binary, err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return Result{}, fmt.Errorf("extraction produced no output: %w", err)
	}
	return Result{TextPath: outputPath, WordCount: len(strings.Fields(string(data)))}, nil
}

var _ Client = (*CLI)(nil)
