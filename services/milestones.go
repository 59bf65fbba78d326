package services

import (
	"fmt"

	"redminetogitlab/utils"
)

// MilestoneSyncer はRedmineのバージョンをGitLabのマイルストーンとして同期します
type MilestoneSyncer struct {
	redmine RedmineAPI
	gitlab  GitLabAPI
}

// NewMilestoneSyncer は新しいシンクロナイザーを作成します
func NewMilestoneSyncer(redmine RedmineAPI, gitlab GitLabAPI) *MilestoneSyncer {
	return &MilestoneSyncer{
		redmine: redmine,
		gitlab:  gitlab,
	}
}

// Sync は選択された各プロジェクトのバージョンをマイルストーンに反映し、
// タイトル→マイルストーンIDの対応表を返します
// 既存マイルストーンの参照は最初の1ページ（最大100件）に限られるため、
// それ以降のタイトルは見えず再作成される可能性があります
func (s *MilestoneSyncer) Sync(projectIDs []int) (map[string]int, error) {
	existing, err := s.gitlab.ListMilestones()
	if err != nil {
		return nil, fmt.Errorf("マイルストーン一覧取得エラー: %w", err)
	}

	knownTitles := make(map[string]bool, len(existing))
	for _, m := range existing {
		knownTitles[m.Title] = true
	}

	// 一覧は最初の1ページに限られるため、ページが埋まっている場合は
	// 見えていないタイトルを再作成する可能性がある
	if len(existing) >= 100 {
		utils.LogWarn("マイルストーンが100件以上あります。101件目以降は参照できず、再作成される可能性があります")
	}

	created := 0
	for _, projectID := range projectIDs {
		versions, err := s.redmine.ListVersions(projectID)
		if err != nil {
			return nil, fmt.Errorf("プロジェクト %d のバージョン取得エラー: %w", projectID, err)
		}

		for _, version := range versions {
			if knownTitles[version.Name] {
				utils.LogInfo("マイルストーン '%s' は既に存在します", version.Name)
				continue
			}

			if err := s.gitlab.CreateMilestone(version.Name, version.DueDate); err != nil {
				return nil, fmt.Errorf("マイルストーン '%s' の作成エラー: %w", version.Name, err)
			}

			// 親子プロジェクトで共有されるバージョンを二重に作らない
			knownTitles[version.Name] = true
			created++
			utils.LogInfo("マイルストーン '%s' を作成しました", version.Name)
		}
	}

	// 作成分のIDを含めるために一覧を取り直す
	milestones, err := s.gitlab.ListMilestones()
	if err != nil {
		return nil, fmt.Errorf("マイルストーン一覧再取得エラー: %w", err)
	}

	titleToID := make(map[string]int, len(milestones))
	for _, m := range milestones {
		titleToID[m.Title] = m.ID
	}

	utils.LogInfo("マイルストーン同期完了: 作成=%d, 参照可能=%d", created, len(titleToID))
	return titleToID, nil
}
