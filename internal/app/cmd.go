package app

import "slices"

// Command はminyanimバイナリのサブコマンド。
type Command string

const (
	CommandServe   Command = "serve"
	CommandWorker  Command = "worker"  // 定期取り込みと古いエントリの整理
	CommandMigrate Command = "migrate" // up（省略時） / down <steps> / version
	CommandImport  Command = "import"  // 1回だけ取り込む。団体IDを渡すとその団体のみ
	CommandSeed    Command = "seed"    // YAMLから団体・場所・定例礼拝を登録する
	// CommandHealthcheck はコンテナ内から/healthを叩く。設定の読み込みを行わない。
	CommandHealthcheck Command = "healthcheck"
)

var knownCommands = []Command{
	CommandServe,
	CommandWorker,
	CommandMigrate,
	CommandImport,
	CommandSeed,
	CommandHealthcheck,
}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// 空や未知の値はserveとみなす。
func ParseCommand(args []string) Command {
	if len(args) > 0 {
		if cmd := Command(args[0]); slices.Contains(knownCommands, cmd) {
			return cmd
		}
	}
	return CommandServe
}

// commandArgs はサブコマンドより後ろの引数を返す。
func commandArgs(args []string) []string {
	if len(args) < 2 {
		return nil
	}
	return args[1:]
}
