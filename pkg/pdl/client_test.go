package pdl_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/pdl-enricher/pkg/mockpdl"
	"github.com/shpitdev/pdl-enricher/pkg/pdl"
)

func newTestClient(t *testing.T, mock *mockpdl.Server, apiKey string) *pdl.Client {
	t.Helper()
	ts := httptest.NewServer(mock.Handler())
	t.Cleanup(ts.Close)

	client, err := pdl.NewClient(pdl.Config{Endpoint: ts.URL + mockpdl.BulkPath, APIKey: apiKey})
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := pdl.NewClient(pdl.Config{APIKey: "  "})
		require.Error(t, err)
	})

	t.Run("defaults endpoint", func(t *testing.T) {
		c, err := pdl.NewClient(pdl.Config{APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, pdl.DefaultEndpoint, c.Endpoint())
	})

	t.Run("adds scheme", func(t *testing.T) {
		c, err := pdl.NewClient(pdl.Config{APIKey: "k", Endpoint: "proxy.internal/v5/person/bulk"})
		require.NoError(t, err)
		assert.Equal(t, "https://proxy.internal/v5/person/bulk", c.Endpoint())
	})
}

func TestBulkEnrich_SendsEnvelopeAndHeaders(t *testing.T) {
	t.Parallel()

	mock := mockpdl.New()
	mock.RequireAPIKey("test-key")
	mock.SetRecord("https://linkedin.com/in/jdoe", `{"linkedin_username":"jdoe","name":"Jane Doe"}`)
	client := newTestClient(t, mock, "test-key")

	req := pdl.NewBulkRequest([]string{"https://linkedin.com/in/jdoe", "https://linkedin.com/in/nobody"})
	out, err := client.BulkEnrich(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, out, 2)

	ok, isSuccess := out[0].(pdl.Success)
	require.True(t, isSuccess, "out[0]=%#v", out[0])
	assert.Equal(t, "jdoe", ok.Record.Username)
	assert.Equal(t, `{"linkedin_username":"jdoe","name":"Jane Doe"}`, string(ok.Record.JSON()))

	miss, isFailure := out[1].(pdl.Failure)
	require.True(t, isFailure, "out[1]=%#v", out[1])
	assert.Equal(t, http.StatusNotFound, miss.Status)
	assert.Equal(t, "https://linkedin.com/in/nobody", miss.Profile)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, mockpdl.BulkPath, calls[0].Path)
	assert.Equal(t, "test-key", calls[0].APIKey)

	assert.JSONEq(t,
		`{"requests":[{"params":{"profile":"https://linkedin.com/in/jdoe"}},{"params":{"profile":"https://linkedin.com/in/nobody"}}]}`,
		string(calls[0].Body),
	)
}

func TestBulkEnrich_HTTPError(t *testing.T) {
	t.Parallel()

	mock := mockpdl.New()
	mock.RequireAPIKey("right-key")
	client := newTestClient(t, mock, "wrong-key")

	_, err := client.BulkEnrich(context.Background(), pdl.NewBulkRequest([]string{"x"}))
	require.Error(t, err)

	var he *pdl.HTTPError
	require.True(t, errors.As(err, &he), "err=%T %v", err, err)
	assert.Equal(t, http.StatusUnauthorized, he.StatusCode)
	assert.Equal(t, "authentication_error", he.ErrorType)
	assert.Equal(t, "Invalid API Key", he.Message)
	assert.NotContains(t, err.Error(), "wrong-key")
}

func TestBulkEnrich_NonEnvelopeErrorBodyIsTruncated(t *testing.T) {
	t.Parallel()

	mock := mockpdl.New()
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	mock.SetRawResponse(http.StatusBadGateway, string(long))
	client := newTestClient(t, mock, "k")

	_, err := client.BulkEnrich(context.Background(), pdl.NewBulkRequest([]string{"x"}))
	var he *pdl.HTTPError
	require.True(t, errors.As(err, &he), "err=%T %v", err, err)
	assert.Equal(t, http.StatusBadGateway, he.StatusCode)
	assert.Len(t, he.Snippet, 256+len("..."))
}

func TestBulkEnrich_MalformedBody(t *testing.T) {
	t.Parallel()

	mock := mockpdl.New()
	mock.SetRawResponse(http.StatusOK, `{"unexpected":"object"}`)
	client := newTestClient(t, mock, "k")

	_, err := client.BulkEnrich(context.Background(), pdl.NewBulkRequest([]string{"x"}))
	var se *pdl.ShapeError
	require.True(t, errors.As(err, &se), "err=%T %v", err, err)
	assert.Equal(t, -1, se.Index)
}

func TestBulkEnrich_TransportError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	endpoint := ts.URL + mockpdl.BulkPath
	ts.Close()

	client, err := pdl.NewClient(pdl.Config{Endpoint: endpoint, APIKey: "k"})
	require.NoError(t, err)

	_, err = client.BulkEnrich(context.Background(), pdl.NewBulkRequest([]string{"x"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bulk person enrichment request")
}
