package summarizer

import (
	"fmt"
	"strconv"
	"strings"
)

// MarkdownFormatter renders a Summary as a Markdown report.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate labels.
func WithTranslator(t func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = t
	}
}

// WithVersion sets the version shown in the footer.
func WithVersion(v string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = v
	}
}

// NewMarkdownFormatter creates a MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Deduplication Summary"))
	fmt.Fprintf(&b, "%s: %s\n", t("Generated"), s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if s.RunID != "" {
		fmt.Fprintf(&b, "\n%s: `%s`\n", t("Run ID"), s.RunID)
	}

	// Source
	fmt.Fprintf(&b, "\n## %s\n\n", t("Source"))
	f.tableHeader(&b)
	f.row(&b, "File", s.Source.Path)
	f.row(&b, "Video", fmt.Sprintf("%s %dx%d @ %s fps", s.Source.Codec, s.Source.Width, s.Source.Height, s.Source.FrameRate))
	f.row(&b, "Frames", strconv.Itoa(s.Source.FrameCount))
	f.row(&b, "Duration", formatSeconds(s.Source.DurationSec))
	if s.Source.AudioCodec != "" {
		f.row(&b, "Audio", fmt.Sprintf("%s, %s", s.Source.AudioCodec, formatSeconds(s.Source.AudioDurationSec)))
	} else {
		f.row(&b, "Audio", t("None"))
	}

	// Settings
	fmt.Fprintf(&b, "\n## %s\n\n", t("Settings"))
	f.tableHeader(&b)
	f.row(&b, "Metric", s.Settings.Metric)
	f.row(&b, "Threshold", strconv.FormatFloat(s.Settings.Threshold, 'g', -1, 64))
	f.row(&b, "Strategy", s.Settings.Strategy)
	f.row(&b, "Workers", strconv.Itoa(s.Settings.Workers))
	if s.Settings.Preset != "" {
		f.row(&b, "Encoder", fmt.Sprintf("CRF %d, %s", s.Settings.CRF, s.Settings.Preset))
	} else {
		f.row(&b, "Encoder", fmt.Sprintf("CRF %d", s.Settings.CRF))
	}

	// Result
	fmt.Fprintf(&b, "\n## %s\n\n", t("Result"))
	f.tableHeader(&b)
	f.row(&b, "Output", s.Output.Path)
	f.row(&b, "Frames", strconv.Itoa(s.Output.FrameCount))
	f.row(&b, "Unique Frames", fmt.Sprintf("%d (%s)", s.Output.UniqueFrames, formatPercent(s.Output.UniqueFrames, s.Output.FrameCount)))
	f.row(&b, "Replaced Frames", fmt.Sprintf("%d (%s)", s.Output.ReplacedFrames, formatPercent(s.Output.ReplacedFrames, s.Output.FrameCount)))
	f.row(&b, "Duration", formatSeconds(s.Output.DurationSec))
	f.row(&b, "Audio Duration", formatSeconds(s.Output.AudioDurationSec))
	if s.Output.FileSize > 0 {
		f.row(&b, "File Size", formatBytes(s.Output.FileSize))
	}
	f.row(&b, "Processing Time", formatMillis(s.Output.ElapsedMs))

	// Segments
	if len(s.Segments) > 0 {
		fmt.Fprintf(&b, "\n## %s\n\n", t("Segments"))
		fmt.Fprintf(&b, "| # | %s | %s | %s | %s | %s |\n", t("Range"), t("Frames"), t("Unique"), t("Truncated"), t("Time"))
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, seg := range s.Segments {
			truncated := t("No")
			if seg.Truncated {
				truncated = t("Yes")
			}
			fmt.Fprintf(&b, "| %d | %d-%d | %d | %d | %s | %s |\n",
				seg.Index, seg.Start, seg.End-1, seg.EmittedFrames, seg.UniqueFrames, truncated, formatMillis(seg.ElapsedMs))
		}
	}

	// States
	if len(s.States) > 0 {
		fmt.Fprintf(&b, "\n## %s\n\n", t("Pipeline"))
		fmt.Fprintf(&b, "| %s | %s |\n", t("Transition"), t("At"))
		b.WriteString("|---|---|\n")
		for _, st := range s.States {
			fmt.Fprintf(&b, "| %s → %s | +%s |\n", st.From, st.To, formatMillis(st.OffsetMs))
		}
	}

	b.WriteString("\n---\n\n")
	if f.version != "" {
		fmt.Fprintf(&b, "%s framededup %s\n", t("Generated by"), f.version)
	} else {
		fmt.Fprintf(&b, "%s framededup\n", t("Generated by"))
	}

	return b.String()
}

func (f *MarkdownFormatter) tableHeader(b *strings.Builder) {
	fmt.Fprintf(b, "| %s | %s |\n", f.translate("Item"), f.translate("Value"))
	b.WriteString("|---|---|\n")
}

func (f *MarkdownFormatter) row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", f.translate(label), value)
}

// formatBytes formats a byte count with binary units.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit && exp < 2; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMG"[exp])
}

func formatSeconds(sec float64) string {
	return fmt.Sprintf("%.2f s", sec)
}

func formatMillis(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%d ms", ms)
	}
	return fmt.Sprintf("%.2f s", float64(ms)/1000)
}

func formatPercent(part, total int) string {
	if total <= 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(total))
}

var _ Formatter = (*MarkdownFormatter)(nil)
