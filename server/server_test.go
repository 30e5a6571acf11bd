package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmshv/untrack/internal"
	"github.com/tmshv/untrack/store"
	"github.com/tmshv/untrack/utils"
	"go.uber.org/zap"
)

func do(t *testing.T, srv *Server, req *http.Request) (int, string) {
	t.Helper()

	res, err := srv.App().Test(req)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res.StatusCode, string(body)
}

func get(t *testing.T, srv *Server, target string) (int, string) {
	t.Helper()
	return do(t, srv, httptest.NewRequest(http.MethodGet, target, nil))
}

func TestServer_untrack(t *testing.T) {
	srv := New(nil, zap.NewNop())

	tests := []struct {
		name     string
		query    url.Values
		wantCode int
		wantBody string
	}{
		{
			name:     "default policy",
			query:    url.Values{"url": {"https://www.example.com/?utm_content=x"}},
			wantCode: http.StatusOK,
			wantBody: `{"url":"https://www.example.com/"}`,
		},
		{
			name: "gclid allowed",
			query: url.Values{
				"url":   {"https://www.example.com/?utm_content=x&name=y&gclid=z"},
				"allow": {"gclid"},
			},
			wantCode: http.StatusOK,
			wantBody: `{"url":"https://www.example.com/?name=y&gclid=z"}`,
		},
		{
			name: "normalize",
			query: url.Values{
				"url":       {"HTTPS://WWW.Example.com:443/a/./b?fbclid=1#top"},
				"normalize": {"true"},
			},
			wantCode: http.StatusOK,
			wantBody: `{"url":"https://www.example.com/a/b#top"}`,
		},
		{
			name: "unknown tracker",
			query: url.Values{
				"url":   {"https://www.example.com/"},
				"allow": {"nope"},
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing url",
			query:    url.Values{},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed url",
			query:    url.Values{"url": {"http://[:::1]/"}},
			wantCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, srv, "/untrack?"+tt.query.Encode())
			assert.Equal(t, tt.wantCode, code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, body)
			} else {
				assert.Contains(t, body, `"error"`)
			}
		})
	}
}

func TestServer_filter(t *testing.T) {
	srv := New(nil, zap.NewNop())

	post := func(body string) (int, string) {
		req := httptest.NewRequest(http.MethodPost, "/filter", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return do(t, srv, req)
	}

	code, body := post(`{"url":"https://www.example.com/?&name=ferret&troop=12&item=vase","filters":["name","troop"]}`)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"url":"https://www.example.com/?item=vase"}`, body)

	code, _ = post(`{"url":"http://[:::1]/","filters":["utm_"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = post(`{"filters":["utm_"]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = post(`{`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestServer_trackers(t *testing.T) {
	code, body := get(t, New(nil, zap.NewNop()), "/trackers")
	assert.Equal(t, http.StatusOK, code)

	var got []utils.Tracker
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, utils.Trackers(), got)
}

func TestServer_history(t *testing.T) {
	code, _ := get(t, New(nil, zap.NewNop()), "/history")
	assert.Equal(t, http.StatusNotFound, code)

	s, err := store.NewSqliteStore(filepath.Join(t.TempDir(), "untrack.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	srv := New(s, zap.NewNop())

	q := url.Values{"url": {"https://www.example.com/?utm_content=x&id=1"}}
	code, _ = get(t, srv, "/untrack?"+q.Encode())
	require.Equal(t, http.StatusOK, code)

	q = url.Values{"url": {"https://www.example.com"}}
	code, _ = get(t, srv, "/untrack?"+q.Encode())
	require.Equal(t, http.StatusOK, code)

	code, body := get(t, srv, "/history?limit=10")
	require.Equal(t, http.StatusOK, code)

	var links []internal.Link
	require.NoError(t, json.Unmarshal([]byte(body), &links))
	require.Len(t, links, 1)
	assert.Equal(t, "https://www.example.com/?utm_content=x&id=1", links[0].Original)
	assert.Equal(t, "https://www.example.com/?id=1", links[0].Cleaned)
	assert.Equal(t, "http", links[0].Source)

	code, _ = get(t, srv, "/history?limit=abc")
	assert.Equal(t, http.StatusBadRequest, code)
}
