package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"redminetogitlab/config"
	"redminetogitlab/models"
)

// GitLabClient はGitLab API（移行先）とのやり取りを処理します
type GitLabClient struct {
	config *config.Config
	client HTTPClient
}

// NewGitLabClient は新しいGitLabクライアントを作成します
func NewGitLabClient(cfg *config.Config, client HTTPClient) *GitLabClient {
	if client == nil {
		client = NewHTTPClient()
	}
	return &GitLabClient{
		config: cfg,
		client: client,
	}
}

// CheckAuth はGitLab認証をチェックします
func (g *GitLabClient) CheckAuth() error {
	url := fmt.Sprintf("%s/api/v4/user", g.config.GitLabURL)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("リクエスト作成エラー: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitLab認証失敗: %s", string(body))
	}

	return nil
}

// ListMilestones は対象プロジェクトのマイルストーンを取得します
// 最初の1ページ（最大100件）のみを参照します
func (g *GitLabClient) ListMilestones() ([]models.Milestone, error) {
	url := fmt.Sprintf("%s/api/v4/projects/%d/milestones?per_page=100", g.config.GitLabURL, g.config.GitLabProjectID)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成エラー: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &UnexpectedStatusError{Op: "ListMilestones", Status: resp.StatusCode, Body: string(body)}
	}

	var glMilestones []gitlabMilestone
	if err := json.NewDecoder(resp.Body).Decode(&glMilestones); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	milestones := make([]models.Milestone, len(glMilestones))
	for i, m := range glMilestones {
		milestones[i] = models.Milestone{ID: m.ID, Title: m.Title}
	}
	return milestones, nil
}

// CreateMilestone はマイルストーンを作成します (dueDateが空の場合は期日なし)
func (g *GitLabClient) CreateMilestone(title, dueDate string) error {
	url := fmt.Sprintf("%s/api/v4/projects/%d/milestones", g.config.GitLabURL, g.config.GitLabProjectID)

	payload := map[string]interface{}{
		"title": title,
	}
	if dueDate != "" {
		payload["due_date"] = dueDate
	}

	return g.sendJSON("CreateMilestone", "POST", url, payload, http.StatusCreated, nil)
}

// GetIssue はイシューをIID（イシュー番号）で取得します
// イシューが存在しない場合は (nil, nil) を返します
func (g *GitLabClient) GetIssue(iid int) (*models.GitLabIssue, error) {
	url := fmt.Sprintf("%s/api/v4/projects/%d/issues/%d", g.config.GitLabURL, g.config.GitLabProjectID, iid)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成エラー: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &UnexpectedStatusError{Op: "GetIssue", Status: resp.StatusCode, Body: string(body)}
	}

	var glIssue gitlabIssue
	if err := json.NewDecoder(resp.Body).Decode(&glIssue); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	return convertIssue(glIssue), nil
}

// CreateIssue はチケット番号と同じIIDでイシューを作成します
func (g *GitLabClient) CreateIssue(iid int, payload models.IssuePayload) error {
	url := fmt.Sprintf("%s/api/v4/projects/%d/issues", g.config.GitLabURL, g.config.GitLabProjectID)

	body := issuePayloadBody(payload)
	body["iid"] = iid

	return g.sendJSON("CreateIssue", "POST", url, body, http.StatusCreated, nil)
}

// UpdateIssue は既存イシューのフィールドをペイロードの値で置き換えます
func (g *GitLabClient) UpdateIssue(iid int, payload models.IssuePayload) error {
	url := fmt.Sprintf("%s/api/v4/projects/%d/issues/%d", g.config.GitLabURL, g.config.GitLabProjectID, iid)

	return g.sendJSON("UpdateIssue", "PUT", url, issuePayloadBody(payload), http.StatusOK, nil)
}

// CloseIssue はイシューをクローズ状態に遷移させます
func (g *GitLabClient) CloseIssue(iid int) error {
	url := fmt.Sprintf("%s/api/v4/projects/%d/issues/%d", g.config.GitLabURL, g.config.GitLabProjectID, iid)

	payload := map[string]interface{}{
		"state_event": "close",
	}

	return g.sendJSON("CloseIssue", "PUT", url, payload, http.StatusOK, nil)
}

// CreateComment はイシューにコメントを追加します
func (g *GitLabClient) CreateComment(iid int, body string) error {
	url := fmt.Sprintf("%s/api/v4/projects/%d/issues/%d/notes", g.config.GitLabURL, g.config.GitLabProjectID, iid)

	payload := map[string]interface{}{
		"body": body,
	}

	return g.sendJSON("CreateComment", "POST", url, payload, http.StatusCreated, nil)
}

// UploadFile はファイルをプロジェクトにアップロードし、埋め込み用のMarkdown参照を返します
func (g *GitLabClient) UploadFile(filename string, data []byte) (string, error) {
	url := fmt.Sprintf("%s/api/v4/projects/%d/uploads", g.config.GitLabURL, g.config.GitLabProjectID)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("multipartフォーム作成エラー: %w", err)
	}

	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("ファイルコピーエラー: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("writerクローズエラー: %w", err)
	}

	req, err := http.NewRequest("POST", url, body)
	if err != nil {
		return "", fmt.Errorf("リクエスト作成エラー: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", &UnexpectedStatusError{Op: "UploadFile", Status: resp.StatusCode, Body: string(bodyBytes)}
	}

	var result struct {
		Markdown string `json:"markdown"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	if result.Markdown == "" {
		return "", fmt.Errorf("アップロード結果にMarkdown参照が含まれていません")
	}

	return result.Markdown, nil
}

// sendJSON はJSONペイロードを送信し、期待するステータスをチェックします
func (g *GitLabClient) sendJSON(op, method, url string, payload interface{}, wantStatus int, result interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("JSONエンコードエラー: %w", err)
	}

	req, err := http.NewRequest(method, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("リクエスト作成エラー: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		return &UnexpectedStatusError{Op: op, Status: resp.StatusCode, Body: string(body)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("レスポンス解析エラー: %w", err)
		}
	}

	return nil
}

// setHeaders は認証ヘッダーを設定します
func (g *GitLabClient) setHeaders(req *http.Request) {
	req.Header.Set("PRIVATE-TOKEN", g.config.GitLabToken)
	req.Header.Set("Accept", "application/json")
}

// issuePayloadBody はイシューペイロードをAPIのリクエストボディに変換します
func issuePayloadBody(payload models.IssuePayload) map[string]interface{} {
	body := map[string]interface{}{
		"title":        payload.Title,
		"description":  payload.Description,
		"confidential": payload.Confidential,
		"labels":       strings.Join(payload.Labels, ","),
	}

	if len(payload.AssigneeIDs) > 0 {
		body["assignee_ids"] = payload.AssigneeIDs
	} else {
		body["assignee_ids"] = []int{}
	}

	if payload.MilestoneID != nil {
		body["milestone_id"] = *payload.MilestoneID
	}

	return body
}

// convertIssue はAPIレスポンスをドメインモデルに変換します
func convertIssue(in gitlabIssue) *models.GitLabIssue {
	issue := &models.GitLabIssue{
		IID:          in.IID,
		Title:        in.Title,
		Description:  in.Description,
		Confidential: in.Confidential,
		Labels:       in.Labels,
		State:        in.State,
	}

	for _, a := range in.Assignees {
		issue.AssigneeIDs = append(issue.AssigneeIDs, a.ID)
	}
	if in.Milestone != nil {
		id := in.Milestone.ID
		issue.MilestoneID = &id
	}

	return issue
}

// GitLab APIレスポンス型
type gitlabMilestone struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type gitlabUser struct {
	ID int `json:"id"`
}

type gitlabIssue struct {
	IID          int              `json:"iid"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Confidential bool             `json:"confidential"`
	Labels       []string         `json:"labels"`
	State        string           `json:"state"`
	Assignees    []gitlabUser     `json:"assignees"`
	Milestone    *gitlabMilestone `json:"milestone"`
}
