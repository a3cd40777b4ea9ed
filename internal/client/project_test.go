package client

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/kerraform/kelock/internal/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestProjectService_Versions(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.SetVersions("1.19.2", "1.19.3", "1.19.4")

	c := newTestClient(t, srv)
	got, err := c.Project.Versions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1.19.2", "1.19.3", "1.19.4"}, got)
}

func TestProjectService_LogsFetchedDocument(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.SetVersions("1.20.1")

	core, logs := observer.New(zap.InfoLevel)
	c := newTestClient(t, srv, WithLogger(zap.New(core)))
	_, err := c.Project.Versions(context.Background())
	require.NoError(t, err)

	entries := logs.FilterMessage("fetched document").All()
	require.Len(t, entries, 1)
	body := entries[0].ContextMap()["body"]
	assert.Contains(t, body, `"versions": [`)
	assert.Contains(t, body, `"1.20.1"`)
}

func TestProjectService_VersionsStalledBody(t *testing.T) {
	srv := stallingServer(t)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	c := New(u, WithTimeout(200*time.Millisecond))

	_, err = c.Project.Versions(context.Background())
	require.ErrorIs(t, err, ErrReadTimeout)
}

func TestProjectService_VersionsMissingKey(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.SetProjectBody([]byte(`{"project_id":"purpur"}`))

	c := newTestClient(t, srv)
	_, err := c.Project.Versions(context.Background())
	require.ErrorIs(t, err, ErrMissingKey)
}

func TestProjectService_VersionsStatus(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.FailNext(apitest.BasePath, http.StatusForbidden)

	c := newTestClient(t, srv)
	_, err := c.Project.Versions(context.Background())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}

func TestProjectService_VersionsInvalidJSON(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.SetProjectBody([]byte(`<html>`))

	c := newTestClient(t, srv)
	_, err := c.Project.Versions(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingKey)
}

func TestProjectService_Builds(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.SetVersionBody("1.20.1", []byte(`{"builds":{"latest":"2062","all":["2060",2061,"2062"]}}`))

	c := newTestClient(t, srv)
	got, err := c.Project.Builds(context.Background(), "1.20.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2060", "2061", "2062"}, got)
}

func TestProjectService_BuildsErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		missing bool
	}{
		{name: "no builds", body: `{"project":"purpur"}`, missing: true},
		{name: "no all", body: `{"builds":{"latest":"1"}}`, missing: true},
		{name: "unknown version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := apitest.NewServer(t)
			if tt.body != "" {
				srv.SetVersionBody("1.20.1", []byte(tt.body))
			}

			c := newTestClient(t, srv)
			_, err := c.Project.Builds(context.Background(), "1.20.1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "1.20.1")
			if tt.missing {
				assert.ErrorIs(t, err, ErrMissingKey)
				return
			}

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, http.StatusNotFound, se.StatusCode)
		})
	}
}

func TestProjectService_DownloadURL(t *testing.T) {
	srv := apitest.NewServer(t)
	c := newTestClient(t, srv)

	assert.Equal(t, srv.Endpoint()+"/1.20.1/2062/download", c.Project.DownloadURL("1.20.1", "2062"))
}

func TestLatest(t *testing.T) {
	tests := []struct {
		name string
		list []string
		n    int
		want []string
	}{
		{name: "longer", list: []string{"a", "b", "c", "d"}, n: 3, want: []string{"b", "c", "d"}},
		{name: "equal", list: []string{"a", "b", "c"}, n: 3, want: []string{"a", "b", "c"}},
		{name: "shorter", list: []string{"a"}, n: 3, want: []string{"a"}},
		{name: "empty", list: []string{}, n: 3, want: []string{}},
		{name: "zero", list: []string{"a", "b"}, n: 0, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Latest(tt.list, tt.n))
		})
	}
}
