// Package main provides localization for the framededup CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Output":         "出力",
		"Similarity":     "類似度",
		"Scheduling":     "スケジューリング",
		"Encoding":       "エンコード",
		"External Tools": "外部ツール",
		"Debug":          "デバッグ",
		"Logging":        "ログ",

		// Root command
		"Replace near-duplicate video frames while keeping timing and audio": "タイミングと音声を保ったまま動画の重複フレームを置き換えます",

		// Commands
		"Deduplicate the frames of a video":               "動画のフレームを重複除去",
		"Print what the pipeline sees in a video as JSON": "パイプラインが認識する動画情報をJSONで表示",
		"Show version information":                        "バージョン情報を表示",
		"framededup version %s":                           "framededup バージョン %s",

		// Output flags
		"Output video file path (mp4, m4v, mov)":                         "出力動画ファイルパス（mp4, m4v, mov）",
		"YAML configuration file":                                        "YAML設定ファイル",
		"Write a run summary to this path (Markdown, or JSON for .json)": "実行サマリーの出力先（Markdown、.json の場合はJSON）",
		"Directory for intermediate files (default: next to the output)": "中間ファイルのディレクトリ（デフォルト: 出力と同じ場所）",
		"Keep intermediate files after the run":                          "実行後に中間ファイルを残す",

		// Similarity flags
		"Similarity metric (pixel, ssim)":                                        "類似度指標（pixel, ssim）",
		"Distance below which frames are duplicates (default depends on metric)": "重複とみなす距離のしきい値（デフォルトは指標による）",

		// Scheduling flags
		"Number of segments processed concurrently":                 "同時に処理するセグメント数",
		"Scheduling strategy (parallel, sequential)":                "スケジューリング方式（parallel, sequential）",
		"Abort a segment that runs longer than this (0 = no limit)": "この時間を超えたセグメントを中止（0 = 無制限）",

		// Encoding flags
		"Quality preset (low, medium, high)":                               "品質プリセット（low, medium, high）",
		"x264 CRF value (0-51, lower is better, overrides quality preset)": "x264のCRF値（0-51、低いほど高品質、品質プリセットを上書き）",
		"x264 speed preset (overrides quality preset)":                     "x264の速度プリセット（品質プリセットを上書き）",

		// Tool flags
		"Path to the ffmpeg executable":  "ffmpeg実行ファイルのパス",
		"Path to the ffprobe executable": "ffprobe実行ファイルのパス",

		// Debug and logging flags
		"Save representatives and a timeline for inspection": "代表フレームとタイムラインを保存",
		"Directory for debug output":                         "デバッグ出力先ディレクトリ",
		"Log level (debug, info, warn, error)":               "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                            "すべてのログ出力を抑制",
		"Disable the progress bar":                           "プログレスバーを表示しない",

		// Runtime messages
		"Deduplicating":               "重複除去中",
		"Failed to write summary: %v": "サマリーの書き込みに失敗しました: %v",
		"Error: %v":                   "エラー: %v",

		// Summary report
		"Deduplication Summary": "重複除去サマリー",
		"Generated":             "生成日時",
		"Run ID":                "実行ID",
		"Source":                "入力",
		"Settings":              "設定",
		"Result":                "結果",
		"Segments":              "セグメント",
		"Pipeline":              "パイプライン",
		"Item":                  "項目",
		"Value":                 "値",
		"File":                  "ファイル",
		"Video":                 "動画",
		"Frames":                "フレーム数",
		"Duration":              "長さ",
		"Audio":                 "音声",
		"None":                  "なし",
		"Metric":                "指標",
		"Threshold":             "しきい値",
		"Strategy":              "方式",
		"Workers":               "ワーカー数",
		"Encoder":               "エンコーダー",
		"Unique Frames":         "ユニークフレーム",
		"Replaced Frames":       "置換フレーム",
		"Audio Duration":        "音声の長さ",
		"File Size":             "ファイルサイズ",
		"Processing Time":       "処理時間",
		"Range":                 "範囲",
		"Unique":                "ユニーク",
		"Truncated":             "途中終了",
		"Time":                  "時間",
		"Yes":                   "はい",
		"No":                    "いいえ",
		"Transition":            "遷移",
		"At":                    "時刻",
		"Generated by":          "生成元",
	})
}
