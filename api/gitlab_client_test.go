package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redminetogitlab/models"
)

func decodeBody(t *testing.T, req *http.Request) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
	return body
}

func TestListMilestonesFirstPageOnly(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "token", req.Header.Get("PRIVATE-TOKEN"))
			assert.Contains(t, req.URL.Path, "/api/v4/projects/42/milestones")
			assert.Contains(t, req.URL.RawQuery, "per_page=100")
			return jsonResponse(http.StatusOK, `[{"id":11,"title":"v1.0"}]`), nil
		},
	}

	client := NewGitLabClient(testConfig(), mock)
	milestones, err := client.ListMilestones()
	require.NoError(t, err)

	require.Len(t, milestones, 1)
	assert.Equal(t, models.Milestone{ID: 11, Title: "v1.0"}, milestones[0])
}

func TestCreateMilestone(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "POST", req.Method)
			body := decodeBody(t, req)
			assert.Equal(t, "v1.0", body["title"])
			assert.Equal(t, "2026-01-31", body["due_date"])
			return jsonResponse(http.StatusCreated, `{"id":12,"title":"v1.0"}`), nil
		},
	}

	client := NewGitLabClient(testConfig(), mock)
	require.NoError(t, client.CreateMilestone("v1.0", "2026-01-31"))
}

func TestCreateMilestoneWithoutDueDate(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			body := decodeBody(t, req)
			_, hasDueDate := body["due_date"]
			assert.False(t, hasDueDate, "期日なしの場合 due_date は送らない")
			return jsonResponse(http.StatusCreated, `{"id":13,"title":"v2.0"}`), nil
		},
	}

	client := NewGitLabClient(testConfig(), mock)
	require.NoError(t, client.CreateMilestone("v2.0", ""))
}

func TestGetIssueNotFound(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusNotFound, `{"message":"404 Not found"}`), nil
		},
	}

	client := NewGitLabClient(testConfig(), mock)
	issue, err := client.GetIssue(10)
	require.NoError(t, err)
	assert.Nil(t, issue)
}

func TestGetIssueFound(t *testing.T) {
	body := `{
		"iid": 10,
		"title": "Crash on startup",
		"description": "boom",
		"confidential": true,
		"labels": ["type/bug"],
		"state": "closed",
		"assignees": [{"id": 42}],
		"milestone": {"id": 11, "title": "v1.0"}
	}`

	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			assert.Contains(t, req.URL.Path, "/api/v4/projects/42/issues/10")
			return jsonResponse(http.StatusOK, body), nil
		},
	}

	client := NewGitLabClient(testConfig(), mock)
	issue, err := client.GetIssue(10)
	require.NoError(t, err)
	require.NotNil(t, issue)

	assert.Equal(t, 10, issue.IID)
	assert.True(t, issue.Confidential)
	assert.Equal(t, "closed", issue.State)
	assert.Equal(t, []int{42}, issue.AssigneeIDs)
	require.NotNil(t, issue.MilestoneID)
	assert.Equal(t, 11, *issue.MilestoneID)
}

func TestCreateIssuePayload(t *testing.T) {
	milestoneID := 11
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "POST", req.Method)
			body := decodeBody(t, req)

			// IIDはチケット番号と一致させる
			assert.Equal(t, float64(10), body["iid"])
			assert.Equal(t, "Crash on startup", body["title"])
			assert.Equal(t, true, body["confidential"])
			// ラベルはカンマ区切りで、順序も重複もそのまま
			assert.Equal(t, "type/bug,triage,triage", body["labels"])
			assert.Equal(t, []interface{}{float64(42)}, body["assignee_ids"])
			assert.Equal(t, float64(11), body["milestone_id"])

			return jsonResponse(http.StatusCreated, `{"iid":10}`), nil
		},
	}

	client := NewGitLabClient(testConfig(), mock)
	err := client.CreateIssue(10, models.IssuePayload{
		Title:        "Crash on startup",
		Description:  "boom",
		Confidential: true,
		Labels:       []string{"type/bug", "triage", "triage"},
		AssigneeIDs:  []int{42},
		MilestoneID:  &milestoneID,
	})
	require.NoError(t, err)
}

func TestUpdateIssueClearsAssignees(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "PUT", req.Method)
			body := decodeBody(t, req)

			// 担当者なしのペイロードでは既存の割り当ても外す
			assert.Equal(t, []interface{}{}, body["assignee_ids"])
			_, hasMilestone := body["milestone_id"]
			assert.False(t, hasMilestone)

			return jsonResponse(http.StatusOK, `{"iid":10}`), nil
		},
	}

	client := NewGitLabClient(testConfig(), mock)
	require.NoError(t, client.UpdateIssue(10, models.IssuePayload{Title: "x"}))
}

func TestCloseIssue(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "PUT", req.Method)
			body := decodeBody(t, req)
			assert.Equal(t, "close", body["state_event"])
			return jsonResponse(http.StatusOK, `{"iid":10,"state":"closed"}`), nil
		},
	}

	client := NewGitLabClient(testConfig(), mock)
	require.NoError(t, client.CloseIssue(10))
}

func TestCreateComment(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			assert.Contains(t, req.URL.Path, "/issues/10/notes")
			body := decodeBody(t, req)
			assert.Equal(t, "By alice: looking", body["body"])
			return jsonResponse(http.StatusCreated, `{"id":1}`), nil
		},
	}

	client := NewGitLabClient(testConfig(), mock)
	require.NoError(t, client.CreateComment(10, "By alice: looking"))
}

func TestCreateCommentUnexpectedStatus(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusUnprocessableEntity, `{"message":"locked"}`), nil
		},
	}

	client := NewGitLabClient(testConfig(), mock)
	err := client.CreateComment(10, "x")
	require.Error(t, err)

	var unexpected *UnexpectedStatusError
	require.True(t, errors.As(err, &unexpected))
	assert.Equal(t, http.StatusUnprocessableEntity, unexpected.Status)
}

func TestUploadFile(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			assert.Contains(t, req.URL.Path, "/api/v4/projects/42/uploads")

			mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
			require.NoError(t, err)
			require.Equal(t, "multipart/form-data", mediaType)

			reader := multipart.NewReader(req.Body, params["boundary"])
			part, err := reader.NextPart()
			require.NoError(t, err)
			assert.Equal(t, "file", part.FormName())
			assert.Equal(t, "diagram.png", part.FileName())

			data, err := io.ReadAll(part)
			require.NoError(t, err)
			assert.Equal(t, []byte("png-bytes"), data)

			return jsonResponse(http.StatusCreated,
				`{"markdown":"![diagram.png](/uploads/abc/diagram.png)"}`), nil
		},
	}

	client := NewGitLabClient(testConfig(), mock)
	reference, err := client.UploadFile("diagram.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "![diagram.png](/uploads/abc/diagram.png)", reference)
}

func TestUploadFileMissingMarkdown(t *testing.T) {
	mock := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusCreated, `{}`), nil
		},
	}

	client := NewGitLabClient(testConfig(), mock)
	_, err := client.UploadFile("diagram.png", []byte("png"))
	require.Error(t, err)
}
