package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/signadot/sofa/system/sofad/api"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg *Config) *httptest.Server {
	t.Helper()
	s, err := New(&Spec{
		Config: cfg,
		Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func do(t *testing.T, ts *httptest.Server, method, path, body string, headers ...string) response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: data}
}

func decode[T any](t *testing.T, r response) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.body, &v), "body: %s", r.body)
	return v
}

func requireError(t *testing.T, r response, status int, code string) {
	t.Helper()
	require.Equal(t, status, r.status, "body: %s", r.body)
	e := decode[api.Error](t, r)
	require.Equal(t, code, e.Code)
	require.NotEmpty(t, e.Message)
}

func TestWelcome(t *testing.T) {
	ts := newTestServer(t, nil)
	r := do(t, ts, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, r.status)
	w := decode[api.Welcome](t, r)
	require.Equal(t, "Welcome", w.CouchDB)
	require.Equal(t, "sofa", w.Vendor.Name)
	require.Equal(t, Version, w.Version)
}

func TestDatabaseLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	r := do(t, ts, http.MethodPut, "/shop", "")
	require.Equal(t, http.StatusCreated, r.status)
	require.True(t, decode[api.OK](t, r).OK)

	requireError(t, do(t, ts, http.MethodPut, "/shop", ""), http.StatusPreconditionFailed, api.ErrCodeFileExists)
	requireError(t, do(t, ts, http.MethodPut, "/Shop", ""), http.StatusBadRequest, api.ErrCodeIllegalDatabaseName)
	requireError(t, do(t, ts, http.MethodPut, "/9lives", ""), http.StatusBadRequest, api.ErrCodeIllegalDatabaseName)

	r = do(t, ts, http.MethodPut, "/a%2Fb", "")
	require.Equal(t, http.StatusCreated, r.status, "body: %s", r.body)

	r = do(t, ts, http.MethodGet, "/_all_dbs", "")
	require.Equal(t, []string{"a/b", "shop"}, decode[[]string](t, r))

	r = do(t, ts, http.MethodGet, "/shop", "")
	require.Equal(t, api.DatabaseInfo{Name: "shop"}, decode[api.DatabaseInfo](t, r))

	r = do(t, ts, http.MethodDelete, "/shop", "")
	require.Equal(t, http.StatusOK, r.status)
	requireError(t, do(t, ts, http.MethodGet, "/shop", ""), http.StatusNotFound, api.ErrCodeNotFound)
	requireError(t, do(t, ts, http.MethodDelete, "/shop", ""), http.StatusNotFound, api.ErrCodeNotFound)
}

func TestDocumentRoundTrip(t *testing.T) {
	ts := newTestServer(t, nil)
	do(t, ts, http.MethodPut, "/shop", "")

	r := do(t, ts, http.MethodPost, "/shop", `{"name": "widget", "price": 12.50}`)
	require.Equal(t, http.StatusCreated, r.status, "body: %s", r.body)
	posted := decode[api.DocResult](t, r)
	require.True(t, posted.OK)
	require.NotEmpty(t, posted.ID)
	require.True(t, strings.HasPrefix(posted.Rev, "1-"))
	require.Equal(t, strconv.Quote(posted.Rev), r.header.Get("ETag"))

	r = do(t, ts, http.MethodGet, "/shop/"+posted.ID, "")
	require.Equal(t, http.StatusOK, r.status)
	require.JSONEq(t, `{"_id": "`+posted.ID+`", "_rev": "`+posted.Rev+`", "name": "widget", "price": 12.50}`, string(r.body))

	r = do(t, ts, http.MethodGet, "/shop/"+posted.ID, "", "If-None-Match", strconv.Quote(posted.Rev))
	require.Equal(t, http.StatusNotModified, r.status)

	requireError(t, do(t, ts, http.MethodPut, "/shop/"+posted.ID, `{"_rev": "1-wrong", "name": "x"}`),
		http.StatusConflict, api.ErrCodeConflict)
	requireError(t, do(t, ts, http.MethodPut, "/shop/"+posted.ID, `{"name": "x"}`),
		http.StatusConflict, api.ErrCodeConflict)
	requireError(t, do(t, ts, http.MethodPut, "/shop/"+posted.ID, `{"_rev": "garbage"}`),
		http.StatusConflict, api.ErrCodeConflict)
	requireError(t, do(t, ts, http.MethodPut, "/shop/"+posted.ID, `[1, 2]`),
		http.StatusBadRequest, api.ErrCodeBadRequest)

	r = do(t, ts, http.MethodPut, "/shop/"+posted.ID, `{"name": "x"}`, "If-Match", strconv.Quote(posted.Rev))
	require.Equal(t, http.StatusCreated, r.status, "body: %s", r.body)
	updated := decode[api.DocResult](t, r)
	require.True(t, strings.HasPrefix(updated.Rev, "2-"))

	info := decode[api.DatabaseInfo](t, do(t, ts, http.MethodGet, "/shop", ""))
	require.Equal(t, api.DatabaseInfo{Name: "shop", UpdateSeq: 2, DocCount: 1}, info)

	requireError(t, do(t, ts, http.MethodDelete, "/shop/"+posted.ID+"?rev="+posted.Rev, ""),
		http.StatusConflict, api.ErrCodeConflict)
	r = do(t, ts, http.MethodDelete, "/shop/"+posted.ID+"?rev="+updated.Rev, "")
	require.Equal(t, http.StatusOK, r.status, "body: %s", r.body)
	deleted := decode[api.DocResult](t, r)

	r = do(t, ts, http.MethodGet, "/shop/"+posted.ID, "")
	require.Equal(t, http.StatusOK, r.status)
	require.JSONEq(t, `{"_id": "`+posted.ID+`", "_rev": "`+deleted.Rev+`", "_deleted": true}`, string(r.body))

	requireError(t, do(t, ts, http.MethodDelete, "/shop/"+posted.ID+"?rev="+deleted.Rev, ""),
		http.StatusNotFound, api.ErrCodeNotFound)
	requireError(t, do(t, ts, http.MethodGet, "/shop/nope", ""), http.StatusNotFound, api.ErrCodeNotFound)
	requireError(t, do(t, ts, http.MethodGet, "/attic/nope", ""), http.StatusNotFound, api.ErrCodeNotFound)
}

func TestPatch(t *testing.T) {
	ts := newTestServer(t, nil)
	do(t, ts, http.MethodPut, "/shop", "")
	r := do(t, ts, http.MethodPut, "/shop/w", `{"name": "widget", "tags": ["a"]}`)
	first := decode[api.DocResult](t, r)

	r = do(t, ts, http.MethodPatch, "/shop/w", `{"price": 3, "tags": null}`)
	require.Equal(t, http.StatusCreated, r.status, "body: %s", r.body)
	merged := decode[api.DocResult](t, r)
	require.True(t, strings.HasPrefix(merged.Rev, "2-"))
	r = do(t, ts, http.MethodGet, "/shop/w", "")
	require.JSONEq(t, `{"_id": "w", "_rev": "`+merged.Rev+`", "name": "widget", "price": 3}`, string(r.body))

	r = do(t, ts, http.MethodPatch, "/shop/w", `[{"op": "replace", "path": "/name", "value": "gadget"}]`,
		"Content-Type", contentTypeJSONPatch)
	require.Equal(t, http.StatusCreated, r.status, "body: %s", r.body)
	patched := decode[api.DocResult](t, r)
	require.True(t, strings.HasPrefix(patched.Rev, "3-"))

	r = do(t, ts, http.MethodPatch, "/shop/w", `{"name": "gadget"}`)
	require.Equal(t, http.StatusOK, r.status, "no-op patch should not write")
	require.Equal(t, patched.Rev, decode[api.DocResult](t, r).Rev)

	requireError(t, do(t, ts, http.MethodPatch, "/shop/w?rev="+first.Rev, `{"x": 1}`),
		http.StatusConflict, api.ErrCodeConflict)
	requireError(t, do(t, ts, http.MethodPatch, "/shop/w", `[{"op": "test", "path": "/name", "value": "widget"}]`,
		"Content-Type", contentTypeJSONPatch), http.StatusConflict, api.ErrCodeConflict)
	requireError(t, do(t, ts, http.MethodPatch, "/shop/missing", `{"x": 1}`), http.StatusNotFound, api.ErrCodeNotFound)

	info := decode[api.DatabaseInfo](t, do(t, ts, http.MethodGet, "/shop", ""))
	require.Equal(t, uint64(3), info.UpdateSeq)
}

func TestBulkAllDocsChanges(t *testing.T) {
	ts := newTestServer(t, nil)
	do(t, ts, http.MethodPut, "/shop", "")

	r := do(t, ts, http.MethodPost, "/shop/_bulk_docs",
		`{"docs": [{"_id": "b"}, {"_id": "a", "v": 1}, {"_id": "c"}, {"_id": "a", "_rev": "1-x"}]}`)
	require.Equal(t, http.StatusCreated, r.status, "body: %s", r.body)
	results := decode[[]api.DocResult](t, r)
	require.Len(t, results, 4)
	for _, res := range results[:3] {
		require.True(t, res.OK, "%+v", res)
	}
	require.Equal(t, api.ErrCodeConflict, results[3].Error)
	require.Equal(t, "a", results[3].ID)

	r = do(t, ts, http.MethodGet, "/shop/_all_docs?include_docs=true", "")
	all := decode[api.AllDocsResponse](t, r)
	require.Equal(t, int64(3), all.TotalRows)
	require.Len(t, all.Rows, 3)
	require.Equal(t, "a", all.Rows[0].ID)
	require.NotNil(t, all.Rows[0].Doc)
	require.Equal(t, results[1].Rev, all.Rows[0].Value.Rev)

	r = do(t, ts, http.MethodGet, "/shop/_all_docs?startkey=%22b%22&descending=false&limit=1", "")
	page := decode[api.AllDocsResponse](t, r)
	require.Len(t, page.Rows, 1)
	require.Equal(t, "b", page.Rows[0].Key)
	require.Nil(t, page.Rows[0].Doc)

	requireError(t, do(t, ts, http.MethodGet, "/shop/_all_docs?limit=many", ""), http.StatusBadRequest, api.ErrCodeBadRequest)

	r = do(t, ts, http.MethodGet, "/shop/_changes?since=1", "")
	ch := decode[api.ChangesResponse](t, r)
	require.Equal(t, uint64(3), ch.LastSeq)
	require.Len(t, ch.Results, 2)
	require.Equal(t, "a", ch.Results[0].ID)
	require.Equal(t, uint64(2), ch.Results[0].Seq)
	require.Equal(t, results[1].Rev, ch.Results[0].Changes[0].Rev)

	r = do(t, ts, http.MethodPost, "/shop/_bulk_docs",
		`{"all_or_nothing": true, "docs": [{"_id": "d"}, {"_id": "a", "_rev": "1-x"}]}`)
	requireError(t, r, http.StatusConflict, api.ErrCodeConflict)
	requireError(t, do(t, ts, http.MethodGet, "/shop/d", ""), http.StatusNotFound, api.ErrCodeNotFound)
}

func TestUUIDs(t *testing.T) {
	ts := newTestServer(t, nil)
	r := do(t, ts, http.MethodGet, "/_uuids?count=5", "")
	require.Equal(t, http.StatusOK, r.status)
	ids := decode[api.UUIDs](t, r).UUIDs
	require.Len(t, ids, 5)
	seen := map[string]bool{}
	for _, id := range ids {
		require.Len(t, id, 32)
		require.False(t, seen[id])
		seen[id] = true
	}
	require.Len(t, decode[api.UUIDs](t, do(t, ts, http.MethodGet, "/_uuids", "")).UUIDs, 1)
	requireError(t, do(t, ts, http.MethodGet, "/_uuids?count=100000", ""), http.StatusBadRequest, api.ErrCodeBadRequest)
}

func TestValidatorsOverHTTP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Validators = []*ValidatorConfig{
		{Name: "priced", Databases: "shop", Rule: "deleted || doc.price > 0", Message: "products need a price"},
	}
	ts := newTestServer(t, cfg)
	do(t, ts, http.MethodPut, "/shop", "")
	do(t, ts, http.MethodPut, "/attic", "")

	r := do(t, ts, http.MethodPut, "/shop/w", `{"price": 0}`)
	requireError(t, r, http.StatusForbidden, api.ErrCodeForbidden)
	require.Equal(t, "products need a price", decode[api.Error](t, r).Message)

	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPut, "/shop/w", `{"price": 2}`).status)
	require.Equal(t, http.StatusCreated, do(t, ts, http.MethodPut, "/attic/w", `{}`).status)

	r = do(t, ts, http.MethodPost, "/shop/_bulk_docs", `{"docs": [{"price": 1}, {"price": -1}]}`)
	results := decode[[]api.DocResult](t, r)
	require.True(t, results[0].OK)
	require.Equal(t, api.ErrCodeForbidden, results[1].Error)
}

func TestRouting(t *testing.T) {
	ts := newTestServer(t, nil)
	requireError(t, do(t, ts, http.MethodPatch, "/_all_dbs", ""), http.StatusMethodNotAllowed, api.ErrCodeMethodNotAllowed)
	requireError(t, do(t, ts, http.MethodGet, "/a/b/c", ""), http.StatusNotFound, api.ErrCodeNotFound)

	do(t, ts, http.MethodPut, "/shop", "")
	do(t, ts, http.MethodGet, "/shop", "")
	r := do(t, ts, http.MethodGet, "/_metrics", "")
	require.Equal(t, http.StatusOK, r.status)
	body := string(r.body)
	require.Contains(t, body, `sofa_http_requests_total{code="201",method="PUT",route="/{db}"} 1`)
	require.Contains(t, body, `sofa_store_operations_total{op="create_database",result="ok"} 1`)
}

func TestBodyLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTP.MaxBodyBytes = 16
	ts := newTestServer(t, cfg)
	do(t, ts, http.MethodPut, "/shop", "")
	requireError(t, do(t, ts, http.MethodPut, "/shop/w", `{"name": "far too long for the limit"}`),
		http.StatusRequestEntityTooLarge, api.ErrCodeTooLarge)
}
