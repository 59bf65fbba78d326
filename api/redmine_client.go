package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"redminetogitlab/config"
	"redminetogitlab/models"
)

// RedmineClient はRedmine API（移行元）とのやり取りを処理します
type RedmineClient struct {
	config *config.Config
	client HTTPClient
}

// NewRedmineClient は新しいRedmineクライアントを作成します
func NewRedmineClient(cfg *config.Config, client HTTPClient) *RedmineClient {
	if client == nil {
		client = NewHTTPClient()
	}
	return &RedmineClient{
		config: cfg,
		client: client,
	}
}

// CheckAuth はRedmine認証をチェックします
func (r *RedmineClient) CheckAuth() error {
	url := fmt.Sprintf("%s/users/current.json", r.config.RedmineURL)

	resp, err := r.get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Redmine認証失敗: %s", string(body))
	}

	return nil
}

// MaxTicketID は全ステータスを対象に存在する最大のチケットIDを取得します
// チケットが1件もない場合は0を返します
func (r *RedmineClient) MaxTicketID() (int, error) {
	url := fmt.Sprintf("%s/issues.json?status_id=*&sort=id:desc&limit=1", r.config.RedmineURL)

	var result struct {
		Issues []struct {
			ID int `json:"id"`
		} `json:"issues"`
	}
	if err := r.getJSON("MaxTicketID", url, &result); err != nil {
		return 0, err
	}

	if len(result.Issues) == 0 {
		return 0, nil
	}
	return result.Issues[0].ID, nil
}

// ListProjects はRedmineの全プロジェクトを取得します
func (r *RedmineClient) ListProjects() ([]models.RedmineProject, error) {
	url := fmt.Sprintf("%s/projects.json?limit=100", r.config.RedmineURL)

	var result struct {
		Projects []redmineProject `json:"projects"`
	}
	if err := r.getJSON("ListProjects", url, &result); err != nil {
		return nil, err
	}

	projects := make([]models.RedmineProject, len(result.Projects))
	for i, p := range result.Projects {
		projects[i] = models.RedmineProject{ID: p.ID, Name: p.Name}
	}
	return projects, nil
}

// ListStatuses はRedmineに定義されたチケットステータスを取得します
func (r *RedmineClient) ListStatuses() ([]models.RedmineStatus, error) {
	url := fmt.Sprintf("%s/issue_statuses.json", r.config.RedmineURL)

	var result struct {
		Statuses []redmineStatus `json:"issue_statuses"`
	}
	if err := r.getJSON("ListStatuses", url, &result); err != nil {
		return nil, err
	}

	statuses := make([]models.RedmineStatus, len(result.Statuses))
	for i, s := range result.Statuses {
		statuses[i] = models.RedmineStatus{Name: s.Name, IsClosed: s.IsClosed}
	}
	return statuses, nil
}

// ListVersions はプロジェクトのバージョン一覧を取得します
func (r *RedmineClient) ListVersions(projectID int) ([]models.RedmineVersion, error) {
	url := fmt.Sprintf("%s/projects/%d/versions.json", r.config.RedmineURL, projectID)

	var result struct {
		Versions []redmineVersion `json:"versions"`
	}
	if err := r.getJSON("ListVersions", url, &result); err != nil {
		return nil, err
	}

	versions := make([]models.RedmineVersion, len(result.Versions))
	for i, v := range result.Versions {
		versions[i] = models.RedmineVersion{Name: v.Name, DueDate: v.DueDate}
	}
	return versions, nil
}

// GetTicket はチケット1件を添付ファイル・関連・コメント履歴込みで取得します
// チケットが存在しない場合は (nil, nil) を返します
func (r *RedmineClient) GetTicket(id int) (*models.RedmineTicket, error) {
	url := fmt.Sprintf("%s/issues/%d.json?include=attachments,journals,relations", r.config.RedmineURL, id)

	resp, err := r.get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &UnexpectedStatusError{Op: "GetTicket", Status: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		Issue redmineIssue `json:"issue"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	return convertTicket(result.Issue), nil
}

// DownloadAttachment は添付ファイルの中身を取得します
func (r *RedmineClient) DownloadAttachment(contentURL string) ([]byte, error) {
	resp, err := r.get(contentURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &UnexpectedStatusError{Op: "DownloadAttachment", Status: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("添付ファイル読み込みエラー: %w", err)
	}

	return data, nil
}

// get はAPIキー付きのGETリクエストを送信します
func (r *RedmineClient) get(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成エラー: %w", err)
	}

	req.Header.Set("X-Redmine-API-Key", r.config.RedmineAPIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
	}

	return resp, nil
}

// getJSON はGETリクエストを送信し、200レスポンスをデコードします
func (r *RedmineClient) getJSON(op, url string, result interface{}) error {
	resp, err := r.get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &UnexpectedStatusError{Op: op, Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	return nil
}

// convertTicket はAPIレスポンスをドメインモデルに変換します
func convertTicket(in redmineIssue) *models.RedmineTicket {
	ticket := &models.RedmineTicket{
		ID:           in.ID,
		ProjectID:    in.Project.ID,
		Subject:      in.Subject,
		Description:  in.Description,
		StatusName:   in.Status.Name,
		TrackerName:  in.Tracker.Name,
		PriorityName: in.Priority.Name,
		AuthorName:   in.Author.Name,
		IsPrivate:    in.IsPrivate,
	}

	if in.AssignedTo != nil {
		id := in.AssignedTo.ID
		ticket.AssigneeID = &id
	}
	if in.FixedVersion != nil {
		name := in.FixedVersion.Name
		ticket.VersionName = &name
	}

	for _, cf := range in.CustomFields {
		values := cf.values()
		if len(values) == 0 {
			continue
		}
		ticket.CustomFields = append(ticket.CustomFields, models.CustomField{Name: cf.Name, Values: values})
	}

	for _, a := range in.Attachments {
		ticket.Attachments = append(ticket.Attachments, models.Attachment{
			Filename:   a.Filename,
			ContentURL: a.ContentURL,
		})
	}

	for _, j := range in.Journals {
		ticket.Journals = append(ticket.Journals, models.Journal{
			AuthorName: j.User.Name,
			Notes:      j.Notes,
		})
	}

	for _, rel := range in.Relations {
		ticket.Relations = append(ticket.Relations, models.Relation{
			FromID: rel.IssueID,
			Type:   rel.RelationType,
			ToID:   rel.IssueToID,
		})
	}

	return ticket
}

// Redmine APIレスポンス型
type redmineProject struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type redmineStatus struct {
	Name     string `json:"name"`
	IsClosed bool   `json:"is_closed"`
}

type redmineVersion struct {
	Name    string `json:"name"`
	DueDate string `json:"due_date"`
}

type redmineRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type redmineCustomField struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// values はカスタムフィールド値を文字列のリストに正規化します
// Redmineは単一値フィールドでは文字列、複数値フィールドでは配列を返します
func (cf redmineCustomField) values() []string {
	if len(cf.Value) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(cf.Value, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}

	var multiple []string
	if err := json.Unmarshal(cf.Value, &multiple); err == nil {
		var values []string
		for _, v := range multiple {
			if v != "" {
				values = append(values, v)
			}
		}
		return values
	}

	return nil
}

type redmineAttachment struct {
	Filename   string `json:"filename"`
	ContentURL string `json:"content_url"`
}

type redmineJournal struct {
	User  redmineRef `json:"user"`
	Notes string     `json:"notes"`
}

type redmineRelation struct {
	IssueID      int    `json:"issue_id"`
	IssueToID    int    `json:"issue_to_id"`
	RelationType string `json:"relation_type"`
}

type redmineIssue struct {
	ID           int                  `json:"id"`
	Project      redmineRef           `json:"project"`
	Subject      string               `json:"subject"`
	Description  string               `json:"description"`
	Status       redmineRef           `json:"status"`
	Tracker      redmineRef           `json:"tracker"`
	Priority     redmineRef           `json:"priority"`
	Author       redmineRef           `json:"author"`
	AssignedTo   *redmineRef          `json:"assigned_to"`
	FixedVersion *redmineRef          `json:"fixed_version"`
	IsPrivate    bool                 `json:"is_private"`
	CustomFields []redmineCustomField `json:"custom_fields"`
	Attachments  []redmineAttachment  `json:"attachments"`
	Journals     []redmineJournal     `json:"journals"`
	Relations    []redmineRelation    `json:"relations"`
}
