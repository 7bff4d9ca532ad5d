package mockpdl_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/pdl-enricher/pkg/mockpdl"
)

func post(t *testing.T, url, apiKey, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-api-key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.Bytes()
}

func TestMockPDL_AnswersInRequestOrder(t *testing.T) {
	t.Parallel()

	srv := mockpdl.New()
	srv.SetRecord("b", `{"linkedin_username":"bee"}`)
	srv.SetFixture("c", mockpdl.Fixture{Status: http.StatusTooManyRequests})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	status, body := post(t, ts.URL+mockpdl.BulkPath, "", `{"requests":[{"params":{"profile":"a"}},{"params":{"profile":"b"}},{"params":{"profile":"c"}}]}`)
	require.Equal(t, http.StatusOK, status)

	var items []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 3)
	assert.Equal(t, "404", string(items[0]["status"]))
	assert.Equal(t, "200", string(items[1]["status"]))
	assert.JSONEq(t, `{"linkedin_username":"bee"}`, string(items[1]["data"]))
	assert.Equal(t, "429", string(items[2]["status"]))

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, mockpdl.BulkPath, calls[0].Path)
}

func TestMockPDL_RejectsWrongAPIKey(t *testing.T) {
	t.Parallel()

	srv := mockpdl.New()
	srv.RequireAPIKey("secret")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	status, body := post(t, ts.URL+mockpdl.BulkPath, "nope", `{"requests":[]}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, string(body), "authentication_error")

	status, _ = post(t, ts.URL+mockpdl.BulkPath, "secret", `{"requests":[]}`)
	assert.Equal(t, http.StatusOK, status)
}

func TestMockPDL_LoadFixtures(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fixtures.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"https://linkedin.com/in/jdoe": {"data": {"linkedin_username": "jdoe"}},
		"https://linkedin.com/in/gone": {"status": 404}
	}`), 0o644))

	srv := mockpdl.New()
	require.NoError(t, srv.LoadFixtures(path))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	_, body := post(t, ts.URL+mockpdl.BulkPath, "", `{"requests":[{"params":{"profile":"https://linkedin.com/in/jdoe"}},{"params":{"profile":"https://linkedin.com/in/gone"}}]}`)
	var items []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "200", string(items[0]["status"]))
	assert.Equal(t, "404", string(items[1]["status"]))
}
