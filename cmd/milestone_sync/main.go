package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"redminetogitlab/api"
	"redminetogitlab/config"
	"redminetogitlab/services"
	"redminetogitlab/utils"
)

func main() {
	// コマンドラインフラグの定義
	projects := flag.IntSlice("project", nil, "対象のRedmineプロジェクトID（複数指定可、省略時は全プロジェクト）")
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

	utils.LogInfo("マイルストーン同期ツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}

	// クライアントとサービスの初期化
	// マイルストーン同期はラベル・ユーザーマッピングを使わないため読み込まない
	httpClient := api.NewHTTPClient()
	redmine := api.NewRedmineClient(cfg, httpClient)
	gitlab := api.NewGitLabClient(cfg, httpClient)
	migrationService := services.NewMigrationService(redmine, gitlab, nil, nil)

	// マイルストーン同期の実行
	titleToID, err := migrationService.SyncMilestones(*projects)
	if err != nil {
		utils.LogError("マイルストーン同期エラー: %v", err)
		os.Exit(1)
	}

	// 処理時間の表示
	elapsed := time.Since(startTime)
	utils.LogInfo("マイルストーン同期が完了しました: %d 件参照可能。処理時間: %s", len(titleToID), elapsed)
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
マイルストーン同期ツール

使用方法:
  %s [オプション]

オプション:
  --project=ID        対象のRedmineプロジェクトID（複数指定可）
  --help              このヘルプを表示する

環境変数:
  REDMINE_URL         RedmineのベースURL (必須)
  REDMINE_API_KEY     RedmineのAPIキー (必須)
  GITLAB_URL          GitLabのベースURL (必須)
  GITLAB_TOKEN        GitLabのアクセストークン (必須)
  GITLAB_PROJECT_ID   移行先のGitLabプロジェクトID (必須)

説明:
  Redmineの各プロジェクトのバージョンをGitLabのマイルストーンとして作成します。
  同じタイトルのマイルストーンが既に存在する場合は作成をスキップします。
  移行本体を実行する前の動作確認に使えます。
`, os.Args[0])
}
