package summarizer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/user/framededup/pkg/mocks"
)

func sampleSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		RunID:       "3f2a",
		Source: SourceInfo{
			Path:             "/videos/talk.mp4",
			Codec:            "h264",
			Width:            1920,
			Height:           1080,
			FrameRate:        "30000/1001",
			FrameCount:       200,
			DurationSec:      6.673,
			AudioCodec:       "aac",
			AudioDurationSec: 6.68,
		},
		Settings: Settings{
			Metric:    "pixel",
			Threshold: 30,
			Strategy:  "parallel",
			Workers:   2,
			CRF:       23,
			Preset:    "fast",
		},
		Segments: []SegmentInfo{
			{Index: 0, Start: 0, End: 100, EmittedFrames: 100, UniqueFrames: 9, ElapsedMs: 850},
			{Index: 1, Start: 100, End: 200, EmittedFrames: 100, UniqueFrames: 11, Truncated: true, ElapsedMs: 1200},
		},
		Output: OutputInfo{
			Path:             "/videos/talk-dedup.mp4",
			FrameCount:       200,
			UniqueFrames:     20,
			ReplacedFrames:   178,
			DurationSec:      6.673,
			AudioDurationSec: 6.68,
			FileSize:         1024 * 1024,
			ElapsedMs:        2500,
		},
		States: []StateInfo{
			{From: "idle", To: "validating"},
			{From: "validating", To: "partitioning", OffsetMs: 40},
		},
	}
}

func TestMarkdownFormatter_Format_Basic(t *testing.T) {
	result := NewMarkdownFormatter().Format(sampleSummary())

	checks := []string{
		"# Deduplication Summary",
		"2024-01-15 10:30:00 UTC",
		"`3f2a`",
		"/videos/talk.mp4",
		"h264 1920x1080 @ 30000/1001 fps",
		"6.67 s",
		"aac, 6.68 s",
		"| Metric | pixel |",
		"| Threshold | 30 |",
		"| Workers | 2 |",
		"CRF 23, fast",
		"20 (10.0%)",
		"178 (89.0%)",
		"1.00 MB",
		"2.50 s",
		"| 0 | 0-99 | 100 | 9 | No | 850 ms |",
		"| 1 | 100-199 | 100 | 11 | Yes | 1.20 s |",
		"| validating → partitioning | +40 ms |",
	}

	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q", check)
		}
	}
}

func TestMarkdownFormatter_Format_Minimal(t *testing.T) {
	summary := &Summary{GeneratedAt: time.Now()}

	result := NewMarkdownFormatter().Format(summary)

	if !strings.Contains(result, "| Audio | None |") {
		t.Error("expected missing audio to be shown as None")
	}
	if !strings.Contains(result, "0 (0.0%)") {
		t.Error("expected zero percentage without division by zero")
	}
	if strings.Contains(result, "## Segments") || strings.Contains(result, "## Pipeline") {
		t.Error("expected empty sections to be omitted")
	}
	if strings.Contains(result, "File Size") {
		t.Error("expected unknown file size to be omitted")
	}
}

func TestMarkdownFormatter_WithTranslator(t *testing.T) {
	translator := func(key string) string {
		translations := map[string]string{
			"Deduplication Summary": "重複除去サマリー",
			"Unique Frames":         "ユニークフレーム",
			"Yes":                   "はい",
		}
		if v, ok := translations[key]; ok {
			return v
		}
		return key
	}

	result := NewMarkdownFormatter(WithTranslator(translator)).Format(sampleSummary())

	for _, want := range []string{"重複除去サマリー", "ユニークフレーム", "はい"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected translated %q", want)
		}
	}
}

func TestMarkdownFormatter_WithVersion(t *testing.T) {
	result := NewMarkdownFormatter(WithVersion("v1.2.0")).Format(sampleSummary())

	if !strings.Contains(result, "framededup v1.2.0") {
		t.Error("expected output to contain version 'v1.2.0'")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
		{1536 * 1024 * 1024, "1.50 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := formatBytes(tt.bytes)
			if got != tt.want {
				t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(FormatFunc(func(s *Summary) string { return "report " + s.RunID }), fs)

	if err := w.Write("/reports/run/summary.md", &Summary{RunID: "42"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, ok := fs.GetFile("/reports/run/summary.md")
	if !ok || string(data) != "report 42" {
		t.Errorf("unexpected file content %q", data)
	}
	if !fs.HasDir("/reports/run") {
		t.Error("expected parent directory to be created")
	}
}

func TestWriter_WriteError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(path string, data []byte) error {
		return errors.New("disk full")
	}

	w := NewWriter(NewMarkdownFormatter(), fs)
	if err := w.Write("summary.md", sampleSummary()); err == nil {
		t.Error("expected error")
	}
}
