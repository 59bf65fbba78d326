package api

import "fmt"

// UnexpectedStatusError は明示的に扱っていないHTTPステータスを受け取ったことを表します
// 移行処理はこのエラーを致命的として扱い、実行全体を中断します
type UnexpectedStatusError struct {
	Op     string // 例: "GetTicket", "CreateIssue"
	Status int
	Body   string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%s: 想定外のステータス %d: %s", e.Op, e.Status, e.Body)
}
