package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/framededup/pkg/ports"
)

// Concatenator joins MP4 files with the concat demuxer and stream copy.
type Concatenator struct{}

// NewConcatenator creates a Concatenator.
func NewConcatenator() *Concatenator {
	return &Concatenator{}
}

// Concat writes a concat list next to outputPath and joins inputs in order.
func (c *Concatenator) Concat(ctx context.Context, inputs []string, outputPath string) error {
	if len(inputs) == 0 {
		return errors.New("ffmpeg: nothing to concatenate")
	}

	ffmpegPath, err := FindFFmpeg()
	if err != nil {
		return err
	}

	listPath := filepath.Join(filepath.Dir(outputPath), "concat.txt")
	if err := os.WriteFile(listPath, []byte(concatList(inputs)), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	_, err = run(ctx, ffmpegPath,
		"-y",
		"-v", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-map", "0:v:0",
		"-c", "copy",
		"-movflags", "+faststart",
		outputPath,
	)
	return err
}

// concatList renders the concat demuxer script for inputs.
func concatList(inputs []string) string {
	var b strings.Builder
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			abs = in
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

var _ ports.Concatenator = (*Concatenator)(nil)
