package services

import (
	"fmt"
	"strings"

	"redminetogitlab/models"
	"redminetogitlab/utils"
)

// Substitution は本文中の添付ファイル参照の置換ルールです
type Substitution struct {
	Old string
	New string
}

// AttachmentMigrator はRedmineの添付ファイルをGitLabに移し替えます
type AttachmentMigrator struct {
	redmine RedmineAPI
	gitlab  GitLabAPI
}

// NewAttachmentMigrator は新しいマイグレーターを作成します
func NewAttachmentMigrator(redmine RedmineAPI, gitlab GitLabAPI) *AttachmentMigrator {
	return &AttachmentMigrator{
		redmine: redmine,
		gitlab:  gitlab,
	}
}

// Migrate はチケットの添付ファイルをリスト順にダウンロード・再アップロードし、
// 本文中のインライン参照を置き換えるためのルールを返します
// ダウンロードまたはアップロードの失敗は致命的エラーです
func (m *AttachmentMigrator) Migrate(ticket *models.RedmineTicket) ([]Substitution, error) {
	var subs []Substitution

	for _, attachment := range ticket.Attachments {
		data, err := m.redmine.DownloadAttachment(attachment.ContentURL)
		if err != nil {
			return nil, fmt.Errorf("添付ファイル %s のダウンロードエラー: %w", attachment.Filename, err)
		}

		reference, err := m.gitlab.UploadFile(attachment.Filename, data)
		if err != nil {
			return nil, fmt.Errorf("添付ファイル %s のアップロードエラー: %w", attachment.Filename, err)
		}

		utils.LogInfo("添付ファイル %s をアップロードしました (%d バイト)", attachment.Filename, len(data))

		// インライン参照の既知パターン2種を置換対象にする
		subs = append(subs,
			Substitution{
				Old: fmt.Sprintf("![%s](%s)", attachment.Filename, attachment.Filename),
				New: reference,
			},
			Substitution{
				Old: fmt.Sprintf("![](%s)", attachment.Filename),
				New: reference,
			},
		)
	}

	return subs, nil
}

// ApplySubstitutions は置換ルールを順に適用します
func ApplySubstitutions(text string, subs []Substitution) string {
	for _, sub := range subs {
		text = strings.ReplaceAll(text, sub.Old, sub.New)
	}
	return text
}
