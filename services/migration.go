package services

import (
	"fmt"
	"strings"
	"time"

	"redminetogitlab/models"
	"redminetogitlab/utils"
)

// RedmineAPI は移行元(Redmine)に対して必要な操作です
type RedmineAPI interface {
	MaxTicketID() (int, error)
	ListProjects() ([]models.RedmineProject, error)
	ListStatuses() ([]models.RedmineStatus, error)
	ListVersions(projectID int) ([]models.RedmineVersion, error)
	GetTicket(id int) (*models.RedmineTicket, error)
	DownloadAttachment(contentURL string) ([]byte, error)
}

// GitLabAPI は移行先(GitLab)に対して必要な操作です
type GitLabAPI interface {
	ListMilestones() ([]models.Milestone, error)
	CreateMilestone(title, dueDate string) error
	GetIssue(iid int) (*models.GitLabIssue, error)
	CreateIssue(iid int, payload models.IssuePayload) error
	UpdateIssue(iid int, payload models.IssuePayload) error
	CloseIssue(iid int) error
	CreateComment(iid int, body string) error
	UploadFile(filename string, data []byte) (string, error)
}

// ダミーイシューの固定値
const (
	// DummyTitle は欠番を埋めるダミーイシューのタイトルです
	DummyTitle = "Dummy issue created by Redmine import"
	// SkippedLabel はダミーイシューに付けるラベルです
	SkippedLabel = "import/skipped"
)

// MissingMilestoneError はチケットが参照するバージョンのマイルストーンが
// 同期結果に存在しないことを表します（不変条件違反のため黙殺しません）
type MissingMilestoneError struct {
	TicketID int
	Title    string
}

func (e *MissingMilestoneError) Error() string {
	return fmt.Sprintf("チケット #%d: マイルストーン '%s' がGitLab側に見つかりません", e.TicketID, e.Title)
}

// MigrationService はRedmineからGitLabへのチケット移行を処理します
// チケット番号の連番を保つため、移行できない番号にはダミーイシューを作成します
type MigrationService struct {
	redmine     RedmineAPI
	gitlab      GitLabAPI
	resolver    *LabelResolver
	attachments *AttachmentMigrator
	milestones  *MilestoneSyncer
}

// NewMigrationService は新しい移行サービスを作成します
func NewMigrationService(redmine RedmineAPI, gitlab GitLabAPI, labels *models.LabelMapping, users models.UserMapping) *MigrationService {
	return &MigrationService{
		redmine:     redmine,
		gitlab:      gitlab,
		resolver:    NewLabelResolver(labels, users),
		attachments: NewAttachmentMigrator(redmine, gitlab),
		milestones:  NewMilestoneSyncer(redmine, gitlab),
	}
}

// LastTicketID は処理範囲の上限（Redmineに存在する最大チケットID）を返します
func (m *MigrationService) LastTicketID() (int, error) {
	last, err := m.redmine.MaxTicketID()
	if err != nil {
		return 0, fmt.Errorf("最大チケットID取得エラー: %w", err)
	}
	return last, nil
}

// SelectProjects は移行対象のプロジェクトIDの集合を解決します
// 明示的な指定がない場合は全プロジェクトが対象になります
func (m *MigrationService) SelectProjects(configured []int) (map[int]bool, error) {
	selected := make(map[int]bool)

	if len(configured) > 0 {
		for _, id := range configured {
			selected[id] = true
		}
		return selected, nil
	}

	projects, err := m.redmine.ListProjects()
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧取得エラー: %w", err)
	}
	for _, p := range projects {
		selected[p.ID] = true
	}
	return selected, nil
}

// ClosedStatusNames はクローズ扱いにすべきRedmineステータス名の集合を返します
func (m *MigrationService) ClosedStatusNames() (map[string]bool, error) {
	statuses, err := m.redmine.ListStatuses()
	if err != nil {
		return nil, fmt.Errorf("ステータス一覧取得エラー: %w", err)
	}

	closed := make(map[string]bool)
	for _, s := range statuses {
		if s.IsClosed {
			closed[s.Name] = true
		}
	}
	return closed, nil
}

// SyncMilestones はマイルストーン同期のみを実行します
func (m *MigrationService) SyncMilestones(projectIDs []int) (map[string]int, error) {
	selected, err := m.SelectProjects(projectIDs)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}
	return m.milestones.Sync(ids)
}

// Run は [first, last] の全チケット番号を順に移行します
// first > last の場合は何も書き込まずに成功します
func (m *MigrationService) Run(first, last int, projectIDs []int) error {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "移行処理全体")

	if first > last {
		utils.LogInfo("処理対象のチケットがありません (開始=%d, 最大=%d)", first, last)
		return nil
	}

	selected, err := m.SelectProjects(projectIDs)
	if err != nil {
		return err
	}
	utils.LogInfo("対象プロジェクト数: %d", len(selected))

	closed, err := m.ClosedStatusNames()
	if err != nil {
		return err
	}

	projectList := make([]int, 0, len(selected))
	for id := range selected {
		projectList = append(projectList, id)
	}
	milestoneIDs, err := m.milestones.Sync(projectList)
	if err != nil {
		return err
	}

	utils.LogInfo("チケット %d〜%d の移行を開始します", first, last)

	for number := first; number <= last; number++ {
		if err := m.migrateTicket(number, first, last, selected, closed, milestoneIDs); err != nil {
			return fmt.Errorf("チケット #%d の移行エラー: %w", number, err)
		}
	}

	utils.LogInfo("移行処理が完了しました: %d 件", last-first+1)
	return nil
}

// migrateTicket はチケット番号1つ分の照合・書き込みを行います
func (m *MigrationService) migrateTicket(number, first, last int, selected map[int]bool, closed map[string]bool, milestoneIDs map[string]int) error {
	ticket, err := m.redmine.GetTicket(number)
	if err != nil {
		return err
	}

	existing, err := m.gitlab.GetIssue(number)
	if err != nil {
		return err
	}

	// 移行パターンの決定
	var payload models.IssuePayload
	var subs []Substitution
	real := false

	switch {
	case ticket == nil:
		utils.LogProgress(number, first, last, "チケット #%d: Redmine側に存在しないためダミーを作成します", number)
		payload = dummyPayload(fmt.Sprintf("No Redmine ticket #%d exists. This issue preserves the original ticket numbering.", number))
	case !selected[ticket.ProjectID]:
		utils.LogProgress(number, first, last, "チケット #%d: 対象外プロジェクト (%d) のためダミーを作成します", number, ticket.ProjectID)
		payload = dummyPayload(fmt.Sprintf("Redmine ticket #%d belongs to a project that was not selected for import.", number))
	default:
		real = true
		utils.LogProgress(number, first, last, "チケット #%d: '%s' を移行します", number, ticket.Subject)

		subs, err = m.attachments.Migrate(ticket)
		if err != nil {
			return err
		}

		payload, err = m.buildRealPayload(ticket, subs, milestoneIDs)
		if err != nil {
			return err
		}
	}

	// 作成または全フィールド上書き（再実行時はここで収束する）
	if existing != nil {
		if err := m.gitlab.UpdateIssue(number, payload); err != nil {
			return err
		}
		utils.LogInfo("イシュー #%d を更新しました", number)
	} else {
		if err := m.gitlab.CreateIssue(number, payload); err != nil {
			return err
		}
		utils.LogInfo("イシュー #%d を作成しました", number)
	}

	// コメントはクローズ後に投稿できない場合があるため、必ずクローズより先に移行する
	if real {
		for _, journal := range ticket.Journals {
			if strings.TrimSpace(journal.Notes) == "" {
				continue
			}
			if err := m.gitlab.CreateComment(number, BuildJournalComment(journal, subs)); err != nil {
				return err
			}
		}

		for _, relation := range ticket.Relations {
			if err := m.gitlab.CreateComment(number, BuildRelationComment(relation)); err != nil {
				return err
			}
		}
	}

	if !real || closed[ticket.StatusName] {
		if err := m.gitlab.CloseIssue(number); err != nil {
			return err
		}
		utils.LogInfo("イシュー #%d をクローズしました", number)
	}

	return nil
}

// buildRealPayload は実チケットからイシューのフィールド一式を組み立てます
func (m *MigrationService) buildRealPayload(ticket *models.RedmineTicket, subs []Substitution, milestoneIDs map[string]int) (models.IssuePayload, error) {
	description := fmt.Sprintf("Created/reported by: %s\n\n%s",
		ticket.AuthorName, ApplySubstitutions(ticket.Description, subs))

	payload := models.IssuePayload{
		Title:        ticket.Subject,
		Description:  description,
		Confidential: ticket.IsPrivate,
		Labels:       m.resolver.ResolveLabels(ticket),
		AssigneeIDs:  m.resolver.ResolveAssignee(ticket),
	}

	if ticket.VersionName != nil {
		id, ok := milestoneIDs[*ticket.VersionName]
		if !ok {
			return models.IssuePayload{}, &MissingMilestoneError{TicketID: ticket.ID, Title: *ticket.VersionName}
		}
		payload.MilestoneID = &id
	}

	return payload, nil
}

// dummyPayload は欠番を埋めるダミーイシューのフィールド一式を返します
func dummyPayload(reason string) models.IssuePayload {
	return models.IssuePayload{
		Title:        DummyTitle,
		Description:  reason,
		Confidential: true,
		Labels:       []string{SkippedLabel},
	}
}
