package logger

import "github.com/ideamans/go-l10n"

// jaLexicon translates pipeline log messages to Japanese.
var jaLexicon = l10n.LexiconMap{
	// Orchestration
	"Starting pipeline (run %s)":                   "パイプラインを開始します (実行 %s)",
	"Source: %dx%d, %d frames at %s fps, audio %s": "入力: %dx%d, %d フレーム, %s fps, 音声 %s",
	"State %s -> %s":                               "状態 %s -> %s",
	"Segments processed: %d unique of %d frames":   "セグメント処理完了: ユニーク %d / %d フレーム",
	"Keeping temp files in %s":                     "一時ファイルを %s に残します",
	"Pipeline completed successfully":              "パイプラインが正常に完了しました",
	"Output saved to %s":                           "出力を %s に保存しました",
	"Summary saved to %s":                          "サマリーを %s に保存しました",
	"Debug output saved to %s":                     "デバッグ出力を %s に保存しました",
	"Interrupted, shutting down...":                "中断されました。シャットダウン中...",

	// Validation
	"Source: %dx%d, %s fps, %d frames, codec %s, audio %v": "入力: %dx%d, %s fps, %d フレーム, コーデック %s, 音声 %v",

	// Scheduling
	"Worker count clamped from %d to %d (source has %d frames)": "ワーカー数を %d から %d に制限しました (入力は %d フレーム)",
	"Processing %d segments (%s)":                               "%d セグメントを処理中 (%s)",
	"All %d segments finished: %d frames, %d unique":            "全 %d セグメント完了: %d フレーム, ユニーク %d",

	// Segment deduplication
	"Segment %d: frames [%d, %d)":          "セグメント %d: フレーム [%d, %d)",
	"Segment %d: %d frames, %d unique, %v": "セグメント %d: %d フレーム, ユニーク %d, %v",

	// Merge and remux
	"Merging %d segments (%d frames)":         "%d セグメントを結合中 (%d フレーム)",
	"Segment %d produced no frames, skipping": "セグメント %d はフレームがないためスキップします",
	"Merged %d frames, %.3fs":                 "%d フレームを結合しました (%.3f 秒)",
	"Attaching audio from %s":                 "%s の音声を付与中",
	"Output: %d frames, audio %.3fs":          "出力: %d フレーム, 音声 %.3f 秒",

	// Warnings
	"Segment %d ended early: %d of %d frames decoded": "セグメント %d が途中で終了しました: %d / %d フレームをデコード",
	"Failed to save representative %d: %v":            "代表フレーム %d の保存に失敗しました: %v",
	"Failed to save timeline: %v":                     "タイムラインの保存に失敗しました: %v",
	"Failed to remove temp files: %v":                 "一時ファイルの削除に失敗しました: %v",

	// Errors
	"Segment processing failed: %v": "セグメント処理に失敗しました: %v",
	"Pipeline failed while %s: %v":  "%s 中にパイプラインが失敗しました: %v",
	"Failed to write output: %v":    "出力の書き込みに失敗しました: %v",
}

func init() {
	l10n.Register("ja", jaLexicon)
}
