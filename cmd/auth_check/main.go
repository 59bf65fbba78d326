package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"redminetogitlab/api"
	"redminetogitlab/config"
	"redminetogitlab/utils"
)

func main() {
	// コマンドラインフラグの定義
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	utils.LogInfo("Redmine / GitLab 認証チェックツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}

	httpClient := api.NewHTTPClient()

	// Redmine認証の確認
	utils.LogInfo("Redmine認証情報を確認しています...")
	redmine := api.NewRedmineClient(cfg, httpClient)
	if err := redmine.CheckAuth(); err != nil {
		utils.LogError("Redmine認証エラー: %v", err)
		os.Exit(1)
	}
	utils.LogInfo("Redmine認証成功")

	// GitLab認証の確認
	utils.LogInfo("GitLab認証情報を確認しています...")
	gitlab := api.NewGitLabClient(cfg, httpClient)
	if err := gitlab.CheckAuth(); err != nil {
		utils.LogError("GitLab認証エラー: %v", err)
		os.Exit(1)
	}
	utils.LogInfo("GitLab認証成功")

	utils.LogInfo("両方の認証に成功しました")
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
Redmine / GitLab 認証チェックツール

使用方法:
  %s [オプション]

オプション:
  --help              このヘルプを表示する

環境変数:
  REDMINE_URL         RedmineのベースURL (必須)
  REDMINE_API_KEY     RedmineのAPIキー (必須)
  GITLAB_URL          GitLabのベースURL (必須)
  GITLAB_TOKEN        GitLabのアクセストークン (必須)
  GITLAB_PROJECT_ID   移行先のGitLabプロジェクトID (必須)

説明:
  移行を実行する前に、両方のAPIの認証情報が正しいことを確認します。
`, os.Args[0])
}
