package services

import (
	"redminetogitlab/models"
)

// LabelResolver はRedmineチケットのメタデータをGitLabのラベルと担当者に変換します
type LabelResolver struct {
	labels *models.LabelMapping
	users  models.UserMapping
}

// NewLabelResolver は新しいリゾルバを作成します
func NewLabelResolver(labels *models.LabelMapping, users models.UserMapping) *LabelResolver {
	if labels == nil {
		labels = &models.LabelMapping{}
	}
	return &LabelResolver{
		labels: labels,
		users:  users,
	}
}

// ResolveLabels はトラッカー・ステータス・優先度・カスタムフィールドの
// 4種類の参照結果を連結して返します（重複除去は行いません）
// マッピングにないキーは黙ってスキップされます
func (r *LabelResolver) ResolveLabels(ticket *models.RedmineTicket) []string {
	var labels []string

	labels = append(labels, r.labels.Tracker[ticket.TrackerName]...)
	labels = append(labels, r.labels.Status[ticket.StatusName]...)
	labels = append(labels, r.labels.Priority[ticket.PriorityName]...)

	for _, cf := range ticket.CustomFields {
		byValue, ok := r.labels.CustomField[cf.Name]
		if !ok {
			continue
		}
		for _, value := range cf.Values {
			labels = append(labels, byValue[value]...)
		}
	}

	return labels
}

// ResolveAssignee はマッピング済みのGitLabユーザーIDを返します
// 担当者なし、またはマッピング未登録の場合は nil（未割り当て）を返します
func (r *LabelResolver) ResolveAssignee(ticket *models.RedmineTicket) []int {
	if ticket.AssigneeID == nil {
		return nil
	}

	gitlabID, ok := r.users[*ticket.AssigneeID]
	if !ok {
		return nil
	}

	return []int{gitlabID}
}
