package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"redminetogitlab/models"
)

// mappingFile はマッピングYAMLのスキーマです
type mappingFile struct {
	Labels mappingLabels `yaml:"labels"`
	Users  map[int]int   `yaml:"users"`
}

type mappingLabels struct {
	Tracker     map[string][]string            `yaml:"tracker"`
	Status      map[string][]string            `yaml:"status"`
	Priority    map[string][]string            `yaml:"priority"`
	CustomField map[string]map[string][]string `yaml:"custom_field"`
}

// LoadMapping はYAMLファイルからラベル・ユーザーマッピングを読み込みます
// 未知のキーや不正なユーザーIDはフィールド単位で報告します
func LoadMapping(path string) (*models.LabelMapping, models.UserMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("マッピングファイルオープンエラー: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	// スキーマ外のキー（カテゴリのタイプミスなど）を拒否する
	decoder.KnownFields(true)

	var mf mappingFile
	if err := decoder.Decode(&mf); err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("マッピングファイル %s の解析エラー: %w", path, err)
	}

	var problems []string
	for redmineID, gitlabID := range mf.Users {
		if redmineID <= 0 {
			problems = append(problems, fmt.Sprintf("users[%d]: RedmineユーザーIDは正の整数が必要です", redmineID))
		}
		if gitlabID <= 0 {
			problems = append(problems, fmt.Sprintf("users[%d]: GitLabユーザーIDは正の整数が必要です (値: %d)", redmineID, gitlabID))
		}
	}
	if len(problems) > 0 {
		return nil, nil, &ValidationError{Problems: problems}
	}

	labels := &models.LabelMapping{
		Tracker:     mf.Labels.Tracker,
		Status:      mf.Labels.Status,
		Priority:    mf.Labels.Priority,
		CustomField: mf.Labels.CustomField,
	}

	return labels, models.UserMapping(mf.Users), nil
}
