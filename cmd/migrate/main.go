package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"redminetogitlab/api"
	"redminetogitlab/config"
	"redminetogitlab/services"
	"redminetogitlab/utils"
)

func main() {
	// コマンドラインフラグの定義
	start := flag.Int("start", 1, "移行を開始するチケット番号")
	projects := flag.IntSlice("project", nil, "対象のRedmineプロジェクトID（複数指定可、省略時は全プロジェクト）")
	yes := flag.Bool("yes", false, "範囲の確認プロンプトをスキップする")
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	// 開始時間の記録
	startTime := time.Now()

	utils.LogInfo("Redmine → GitLab 移行ツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}

	// マッピングファイルの読み込み
	labels, users, err := config.LoadMapping(cfg.MappingFile)
	if err != nil {
		utils.LogError("マッピングの読み込みに失敗しました: %v", err)
		os.Exit(1)
	}

	// クライアントとサービスの初期化
	httpClient := api.NewHTTPClient()
	redmine := api.NewRedmineClient(cfg, httpClient)
	gitlab := api.NewGitLabClient(cfg, httpClient)
	migrationService := services.NewMigrationService(redmine, gitlab, labels, users)

	// 認証チェック
	if err := redmine.CheckAuth(); err != nil {
		utils.LogError("Redmine認証エラー: %v", err)
		os.Exit(1)
	}
	if err := gitlab.CheckAuth(); err != nil {
		utils.LogError("GitLab認証エラー: %v", err)
		os.Exit(1)
	}
	utils.LogInfo("Redmine / GitLab 認証成功")

	// 処理範囲の決定
	last, err := migrationService.LastTicketID()
	if err != nil {
		utils.LogError("処理範囲の決定に失敗しました: %v", err)
		os.Exit(1)
	}

	if *start > last {
		utils.LogInfo("処理対象のチケットがありません (開始=%d, 最大=%d)", *start, last)
		return
	}

	// 範囲の確認
	if !*yes && !confirm(*start, last) {
		utils.LogInfo("移行を中止しました")
		return
	}

	// 移行の実行
	if err := migrationService.Run(*start, last, *projects); err != nil {
		utils.LogError("移行処理に失敗しました: %v", err)
		os.Exit(1)
	}

	// 合計実行時間の表示
	elapsed := time.Since(startTime)
	utils.LogInfo("移行処理が完了しました。合計実行時間: %s", elapsed)
}

// confirm は処理範囲をユーザーに確認します
func confirm(first, last int) bool {
	fmt.Printf("チケット %d〜%d を移行します。続行しますか? [y/N]: ", first, last)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
Redmine → GitLab 移行ツール

使用方法:
  %s [オプション]

オプション:
  --start=N           移行を開始するチケット番号 (デフォルト: 1)
  --project=ID        対象のRedmineプロジェクトID（複数指定可）
  --yes               範囲の確認プロンプトをスキップする
  --help              このヘルプを表示する

環境変数:
  REDMINE_URL         RedmineのベースURL (必須)
  REDMINE_API_KEY     RedmineのAPIキー (必須)
  GITLAB_URL          GitLabのベースURL (必須)
  GITLAB_TOKEN        GitLabのアクセストークン (必須)
  GITLAB_PROJECT_ID   移行先のGitLabプロジェクトID (必須)
  MAPPING_FILE        ラベル・ユーザーマッピングYAMLのパス (デフォルト: mapping.yml)

説明:
  Redmineのチケット番号をそのままGitLabのイシュー番号として保存します。
  対応するチケットがない番号には "Dummy issue created by Redmine import"
  というダミーイシューを作成して欠番を防ぎます。

  再実行すると既存イシューのフィールドはRedmine側の値で上書きされますが、
  コメントと添付ファイルは毎回追記される点に注意してください。

例:
  # すべてのプロジェクトをチケット1番から移行
  %s --yes

  # チケット100番から、プロジェクト3と5のみを移行
  %s --start=100 --project=3 --project=5
`, os.Args[0], os.Args[0], os.Args[0])
}
