package services

import (
	"fmt"
	"regexp"
	"strings"

	"redminetogitlab/models"
)

// commitHashPattern はRedmineのコミット連携コメントからハッシュを抜き出すためのパターンです
// 特定のテンプレート "commit:リポジトリ|ハッシュ" に依存したベストエフォートのマッチです
var commitHashPattern = regexp.MustCompile(`commit:[^|]*\|([0-9a-f]{40})`)

// BuildJournalComment はコメント履歴1件からGitLabに投稿するコメント本文を組み立てます
// コミット連携コメントはハッシュのみに置き換え、それ以外は添付ファイル参照を
// 書き換えた上でそのまま残します
func BuildJournalComment(journal models.Journal, subs []Substitution) string {
	note := journal.Notes

	if strings.Contains(note, "commit:") {
		if match := commitHashPattern.FindStringSubmatch(note); match != nil {
			return fmt.Sprintf("By %s: %s", journal.AuthorName, match[1])
		}
	}

	note = ApplySubstitutions(note, subs)
	return fmt.Sprintf("By %s: %s", journal.AuthorName, note)
}

// BuildRelationComment はチケット間の関連をテキストコメントに変換します
// GitLab側に構造的な関連は作成しません
func BuildRelationComment(relation models.Relation) string {
	return fmt.Sprintf("#%d %s #%d", relation.FromID, relation.Type, relation.ToID)
}
