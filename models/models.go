package models

// RedmineTicket はRedmineのチケットを表します
type RedmineTicket struct {
	ID           int
	ProjectID    int
	Subject      string
	Description  string
	StatusName   string
	TrackerName  string
	PriorityName string
	AuthorName   string
	CustomFields []CustomField
	AssigneeID   *int    // 未割り当ての場合は nil
	VersionName  *string // 対象バージョンなしの場合は nil
	IsPrivate    bool
	Attachments  []Attachment
	Journals     []Journal
	Relations    []Relation
}

// CustomField はRedmineのカスタムフィールド値を表します
type CustomField struct {
	Name   string
	Values []string
}

// Attachment はRedmineチケットの添付ファイルを表します
type Attachment struct {
	Filename   string
	ContentURL string
}

// Journal はチケットのコメント履歴の1件を表します
type Journal struct {
	AuthorName string
	Notes      string
}

// Relation はチケット間の関連を表します
type Relation struct {
	FromID int
	Type   string
	ToID   int
}

// RedmineProject はRedmineのプロジェクトを表します
type RedmineProject struct {
	ID   int
	Name string
}

// RedmineStatus はRedmineのチケットステータスを表します
type RedmineStatus struct {
	Name     string
	IsClosed bool
}

// RedmineVersion はRedmineのバージョンを表します (DueDateが空の場合は期日なし)
type RedmineVersion struct {
	Name    string
	DueDate string
}

// GitLabIssue はGitLab側のイシューを表します
type GitLabIssue struct {
	IID          int
	Title        string
	Description  string
	Confidential bool
	Labels       []string
	AssigneeIDs  []int
	MilestoneID  *int
	State        string
}

// IssuePayload はイシューの作成・更新に使うフィールド一式です
type IssuePayload struct {
	Title        string
	Description  string
	Confidential bool
	Labels       []string
	AssigneeIDs  []int
	MilestoneID  *int
}

// Milestone はGitLabのマイルストーンを表します
type Milestone struct {
	ID    int
	Title string
}

// LabelMapping はRedmineのメタデータからGitLabラベルへの変換表です
// カテゴリごとにフィールドを分けることで対応漏れをコンパイル時に防ぎます
type LabelMapping struct {
	Tracker     map[string][]string
	Status      map[string][]string
	Priority    map[string][]string
	CustomField map[string]map[string][]string
}

// UserMapping はRedmineユーザーIDからGitLabユーザーIDへの変換表です
type UserMapping map[int]int
