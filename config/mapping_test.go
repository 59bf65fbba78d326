package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redminetogitlab/models"
)

func writeMapping(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mapping.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMapping(t *testing.T) {
	path := writeMapping(t, `
labels:
  tracker:
    Bug: [type/bug]
  status:
    In Progress: [doing]
  priority:
    High: [prio/high, triage]
  custom_field:
    Component:
      backend: [area/backend]
users:
  7: 42
  8: 43
`)

	labels, users, err := LoadMapping(path)
	require.NoError(t, err)

	want := &models.LabelMapping{
		Tracker:  map[string][]string{"Bug": {"type/bug"}},
		Status:   map[string][]string{"In Progress": {"doing"}},
		Priority: map[string][]string{"High": {"prio/high", "triage"}},
		CustomField: map[string]map[string][]string{
			"Component": {"backend": {"area/backend"}},
		},
	}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("ラベルマッピングが一致しません (-want +got):\n%s", diff)
	}

	assert.Equal(t, models.UserMapping{7: 42, 8: 43}, users)
}

func TestLoadMappingEmptyFile(t *testing.T) {
	path := writeMapping(t, "")

	labels, users, err := LoadMapping(path)
	require.NoError(t, err)
	assert.NotNil(t, labels)
	assert.Empty(t, users)
}

func TestLoadMappingRejectsUnknownCategory(t *testing.T) {
	// "tracker" のタイプミスはスキーマ違反として報告する
	path := writeMapping(t, `
labels:
  trakcer:
    Bug: [type/bug]
`)

	_, _, err := LoadMapping(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trakcer")
}

func TestLoadMappingRejectsBadUserID(t *testing.T) {
	path := writeMapping(t, `
users:
  7: -1
`)

	_, _, err := LoadMapping(path)
	require.Error(t, err)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, err.Error(), "users[7]")
}

func TestLoadMappingMissingFile(t *testing.T) {
	_, _, err := LoadMapping(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}
