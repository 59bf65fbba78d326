package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Redmine API設定 (移行元)
	RedmineURL    string
	RedmineAPIKey string

	// GitLab API設定 (移行先)
	GitLabURL       string
	GitLabToken     string
	GitLabProjectID int

	// ラベル・ユーザーマッピングファイルのパス
	MappingFile string
}

// ValidationError は設定のフィールド単位の問題をまとめて表します
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "設定が不正です:\n  " + strings.Join(e.Problems, "\n  ")
}

// LoadConfig は環境変数から設定を読み込み、検証します
func LoadConfig() (*Config, error) {
	// .envファイルを読み込む
	_ = godotenv.Load()

	config := &Config{
		RedmineURL:      strings.TrimRight(os.Getenv("REDMINE_URL"), "/"),
		RedmineAPIKey:   os.Getenv("REDMINE_API_KEY"),
		GitLabURL:       strings.TrimRight(os.Getenv("GITLAB_URL"), "/"),
		GitLabToken:     os.Getenv("GITLAB_TOKEN"),
		GitLabProjectID: getEnvAsIntWithDefault("GITLAB_PROJECT_ID", 0),
		MappingFile:     getEnvWithDefault("MAPPING_FILE", "mapping.yml"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate は必須フィールドとURLの形式をチェックします
// ネットワークアクセスより前に、問題のあるフィールドをすべて報告します
func (c *Config) Validate() error {
	var problems []string

	if c.RedmineURL == "" {
		problems = append(problems, "REDMINE_URL: 必須です")
	} else if err := validateURL(c.RedmineURL); err != nil {
		problems = append(problems, fmt.Sprintf("REDMINE_URL: %v", err))
	}

	if c.RedmineAPIKey == "" {
		problems = append(problems, "REDMINE_API_KEY: 必須です")
	}

	if c.GitLabURL == "" {
		problems = append(problems, "GITLAB_URL: 必須です")
	} else if err := validateURL(c.GitLabURL); err != nil {
		problems = append(problems, fmt.Sprintf("GITLAB_URL: %v", err))
	}

	if c.GitLabToken == "" {
		problems = append(problems, "GITLAB_TOKEN: 必須です")
	}

	if c.GitLabProjectID <= 0 {
		problems = append(problems, "GITLAB_PROJECT_ID: 正の整数が必要です")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}

// validateURL はベースURLとして使える形式かをチェックします
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URLを解析できません: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("スキームは http または https が必要です: %q", rawURL)
	}
	if u.Host == "" {
		return fmt.Errorf("ホストが含まれていません: %q", rawURL)
	}
	return nil
}

// デフォルト値付きで環境変数を取得
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// デフォルト値付きで環境変数を整数として取得
func getEnvAsIntWithDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
