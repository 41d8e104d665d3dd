package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// levelがnilの場合はInfoレベルで出力する。
func Setup(w io.Writer, level slog.Leveler) *slog.Logger {
	if level == nil {
		level = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// 設定読み込み前に呼び出せるようにInfoレベルで開始し、
// 返却したLevelVarで後からレベルを変更できる。
// writerがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer) *slog.LevelVar {
	if w == nil {
		w = os.Stdout
	}
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelInfo)
	slog.SetDefault(Setup(w, lv))
	return lv
}

// ParseLevel はLOG_LEVELの値をslog.Levelに変換する。
// 未知の値はInfoとして扱う。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
