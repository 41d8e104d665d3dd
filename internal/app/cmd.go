package app

import (
	"fmt"
	"strconv"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandSeed はYAMLファイルから映画カタログを取り込むことを示す。
	CommandSeed Command = "seed"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "seed":
		return CommandSeed
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// MigrateAction はmigrateサブコマンドの動作を表す。
type MigrateAction struct {
	Direction string // "up"、"down"、"version"
	Steps     int    // downで巻き戻す件数
}

// ParseMigrateAction はmigrateに続く引数を解析する。
// 引数なしは"up"、"down"の件数省略は1件とする。
func ParseMigrateAction(args []string) (MigrateAction, error) {
	if len(args) == 0 {
		return MigrateAction{Direction: "up"}, nil
	}

	switch args[0] {
	case "up", "version":
		return MigrateAction{Direction: args[0]}, nil
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return MigrateAction{}, fmt.Errorf("invalid rollback steps: %q", args[1])
			}
			steps = n
		}
		return MigrateAction{Direction: "down", Steps: steps}, nil
	default:
		return MigrateAction{}, fmt.Errorf("unknown migrate action: %q", args[0])
	}
}
