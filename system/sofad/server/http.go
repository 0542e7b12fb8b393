package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"github.com/signadot/sofa/debug"
	"github.com/signadot/sofa/doc"
	"github.com/signadot/sofa/system/sofad/api"
)

var dbNameRE = regexp.MustCompile(`^[a-z][a-z0-9_$()+/-]*$`)

func checkDatabaseName(name string) error {
	if !dbNameRE.MatchString(name) {
		return api.NewError(api.ErrCodeIllegalDatabaseName,
			fmt.Sprintf("name %q must begin with a lowercase letter and contain only a-z, 0-9, and any of _$()+-/", name))
	}
	return nil
}

const contentTypeJSONPatch = "application/json-patch+json"

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.UseEncodedPath()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, api.NewError(api.ErrCodeNotFound, "no route for "+req.URL.Path))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, api.NewError(api.ErrCodeMethodNotAllowed, req.Method+" not allowed on "+req.URL.Path))
	})
	r.Use(s.observe)

	r.HandleFunc("/", s.welcome).Methods(http.MethodGet)
	r.HandleFunc("/_all_dbs", s.allDBs).Methods(http.MethodGet)
	r.HandleFunc("/_uuids", s.getUUIDs).Methods(http.MethodGet)
	r.Handle("/_metrics", promhttp.HandlerFor(s.Spec.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/{db}", s.createDB).Methods(http.MethodPut)
	r.HandleFunc("/{db}", s.describeDB).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/{db}", s.deleteDB).Methods(http.MethodDelete)
	r.HandleFunc("/{db}", s.postDoc).Methods(http.MethodPost)

	r.HandleFunc("/{db}/_all_docs", s.allDocs).Methods(http.MethodGet)
	r.HandleFunc("/{db}/_changes", s.changes).Methods(http.MethodGet)
	r.HandleFunc("/{db}/_bulk_docs", s.postBulkDocs).Methods(http.MethodPost)

	r.HandleFunc("/{db}/{doc}", s.getDoc).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/{db}/{doc}", s.putDoc).Methods(http.MethodPut)
	r.HandleFunc("/{db}/{doc}", s.patchDoc).Methods(http.MethodPatch)
	r.HandleFunc("/{db}/{doc}", s.deleteDoc).Methods(http.MethodDelete)
	return r
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

// observe logs and counts every routed request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		if debug.HTTP() {
			debug.Logf("http <- %s %s\n", req.Method, req.URL.RequestURI())
		}
		next.ServeHTTP(sw, req)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		route := "unknown"
		if cur := mux.CurrentRoute(req); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		elapsed := time.Since(start)
		s.metrics.request(req.Method, route, sw.status, elapsed)
		s.Spec.Log.Debug("http request",
			"method", req.Method,
			"path", req.URL.Path,
			"route", route,
			"status", sw.status,
			"duration", elapsed)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, err)
		return
	}
	if debug.HTTP() {
		debug.Logf("http -> %d %s\n", status, data)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, err error) {
	e := api.FromError(err)
	writeJSON(w, e.Status(), e)
}

func pathVar(req *http.Request, name string) (string, error) {
	v, err := url.PathUnescape(mux.Vars(req)[name])
	if err != nil {
		return "", api.NewError(api.ErrCodeBadRequest, fmt.Sprintf("invalid %s: %v", name, err))
	}
	return v, nil
}

func (s *Server) readBody(w http.ResponseWriter, req *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, req.Body, s.Spec.Config.HTTP.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, api.NewError(api.ErrCodeTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return nil, api.NewError(api.ErrCodeBadRequest, err.Error())
	}
	return data, nil
}

func (s *Server) readDoc(w http.ResponseWriter, req *http.Request) (doc.Document, error) {
	data, err := s.readBody(w, req)
	if err != nil {
		return doc.Document{}, err
	}
	d, err := doc.Parse(data)
	if err != nil {
		return doc.Document{}, api.NewError(api.ErrCodeBadRequest, err.Error())
	}
	return d, nil
}

// revision returns the rev query parameter, or else the If-Match header.
func revision(req *http.Request) string {
	if r := req.URL.Query().Get("rev"); r != "" {
		return r
	}
	return strings.Trim(req.Header.Get("If-Match"), `"`)
}

func setETag(w http.ResponseWriter, d doc.Document) {
	if r, ok := d.Rev(); ok {
		w.Header().Set("ETag", strconv.Quote(r))
	}
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, api.NewError(api.ErrCodeBadRequest, fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return n, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, api.NewError(api.ErrCodeBadRequest, fmt.Sprintf("%s must be a boolean", name))
	}
	return b, nil
}

// keyParam accepts keys both JSON encoded, as CouchDB clients send them,
// and bare.
func keyParam(q url.Values, name string) (string, error) {
	v := q.Get(name)
	if !strings.HasPrefix(v, `"`) {
		return v, nil
	}
	var key string
	if err := json.Unmarshal([]byte(v), &key); err != nil {
		return "", api.NewError(api.ErrCodeBadRequest, fmt.Sprintf("%s: %v", name, err))
	}
	return key, nil
}

func (s *Server) welcome(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, api.Welcome{
		CouchDB: "Welcome",
		Vendor:  api.Vendor{Name: "sofa"},
		Version: Version,
	})
}

func (s *Server) allDBs(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, s.Spec.Store.ListDatabases())
}

func (s *Server) getUUIDs(w http.ResponseWriter, req *http.Request) {
	count, err := intParam(req.URL.Query(), "count")
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.uuids(count)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) createDB(w http.ResponseWriter, req *http.Request) {
	name, err := pathVar(req, "db")
	if err == nil {
		err = checkDatabaseName(name)
	}
	if err == nil {
		err = s.Spec.Store.CreateDatabase(name)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	s.Spec.Log.Info("created database", "db", name)
	writeJSON(w, http.StatusCreated, api.OK{OK: true})
}

func (s *Server) describeDB(w http.ResponseWriter, req *http.Request) {
	name, err := pathVar(req, "db")
	if err != nil {
		writeError(w, err)
		return
	}
	info, err := s.Spec.Store.DescribeDatabase(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromDatabaseInfo(info))
}

func (s *Server) deleteDB(w http.ResponseWriter, req *http.Request) {
	name, err := pathVar(req, "db")
	if err == nil {
		err = s.Spec.Store.DeleteDatabase(name)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	s.Spec.Log.Info("deleted database", "db", name)
	writeJSON(w, http.StatusOK, api.OK{OK: true})
}

func (s *Server) postDoc(w http.ResponseWriter, req *http.Request) {
	name, err := pathVar(req, "db")
	if err != nil {
		writeError(w, err)
		return
	}
	in, err := s.readDoc(w, req)
	if err != nil {
		writeError(w, err)
		return
	}
	stored, err := s.Spec.Store.PostDocument(name, in)
	if err != nil {
		writeError(w, err)
		return
	}
	setETag(w, stored)
	writeJSON(w, http.StatusCreated, api.FromStored(stored))
}

func (s *Server) allDocs(w http.ResponseWriter, req *http.Request) {
	name, err := pathVar(req, "db")
	if err != nil {
		writeError(w, err)
		return
	}
	q := req.URL.Query()
	var p api.AllDocsParams
	if p.StartKey, err = keyParam(q, "startkey"); err != nil {
		writeError(w, err)
		return
	}
	if p.EndKey, err = keyParam(q, "endkey"); err != nil {
		writeError(w, err)
		return
	}
	if p.Limit, err = intParam(q, "limit"); err != nil {
		writeError(w, err)
		return
	}
	if p.Skip, err = intParam(q, "skip"); err != nil {
		writeError(w, err)
		return
	}
	if p.Descending, err = boolParam(q, "descending"); err != nil {
		writeError(w, err)
		return
	}
	if p.IncludeDocs, err = boolParam(q, "include_docs"); err != nil {
		writeError(w, err)
		return
	}
	if p.IncludeDeleted, err = boolParam(q, "include_deleted"); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.Spec.Store.AllDocs(name, p.Options())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromAllDocs(res, p.IncludeDocs))
}

func (s *Server) changes(w http.ResponseWriter, req *http.Request) {
	name, err := pathVar(req, "db")
	if err != nil {
		writeError(w, err)
		return
	}
	q := req.URL.Query()
	since, err := intParam(q, "since")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.Spec.Store.Changes(name, uint64(since), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromChanges(res))
}

func (s *Server) postBulkDocs(w http.ResponseWriter, req *http.Request) {
	name, err := pathVar(req, "db")
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := s.readBody(w, req)
	if err != nil {
		writeError(w, err)
		return
	}
	var body api.BulkDocsRequest
	if err := json.Unmarshal(data, &body); err != nil {
		writeError(w, api.NewError(api.ErrCodeBadRequest, err.Error()))
		return
	}
	res, err := s.bulkDocs(name, body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) docVars(req *http.Request) (db, id string, err error) {
	if db, err = pathVar(req, "db"); err != nil {
		return "", "", err
	}
	if id, err = pathVar(req, "doc"); err != nil {
		return "", "", err
	}
	return db, id, nil
}

func (s *Server) getDoc(w http.ResponseWriter, req *http.Request) {
	db, id, err := s.docVars(req)
	if err != nil {
		writeError(w, err)
		return
	}
	d, err := s.Spec.Store.GetDocument(db, id)
	if err != nil {
		writeError(w, err)
		return
	}
	setETag(w, d)
	if inm := req.Header.Get("If-None-Match"); inm != "" && inm == w.Header().Get("ETag") {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) putDoc(w http.ResponseWriter, req *http.Request) {
	db, id, err := s.docVars(req)
	if err != nil {
		writeError(w, err)
		return
	}
	in, err := s.readDoc(w, req)
	if err != nil {
		writeError(w, err)
		return
	}
	if !in.Has(doc.RevField) {
		if r := revision(req); r != "" {
			in = in.With(doc.RevField, doc.FromString(r))
		}
	}
	stored, err := s.Spec.Store.PutDocument(db, id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	setETag(w, stored)
	writeJSON(w, http.StatusCreated, api.FromStored(stored))
}

// patchDoc applies a JSON Patch or a JSON merge patch to the current
// revision of a document. A patch that changes nothing writes nothing.
func (s *Server) patchDoc(w http.ResponseWriter, req *http.Request) {
	db, id, err := s.docVars(req)
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := s.readBody(w, req)
	if err != nil {
		writeError(w, err)
		return
	}
	current, err := s.Spec.Store.GetDocument(db, id)
	if err == nil && current.Deleted() {
		err = api.NewError(api.ErrCodeNotFound, fmt.Sprintf("document %q is deleted", id))
	}
	if err != nil {
		writeError(w, err)
		return
	}
	curRev, _ := current.Rev()
	if r := revision(req); r != "" && r != curRev {
		writeError(w, api.NewError(api.ErrCodeConflict, fmt.Sprintf("document %q is at %s", id, curRev)))
		return
	}
	patched, err := applyPatch(current, body, req.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}
	patched = patched.With(doc.RevField, doc.FromString(curRev))
	if patched.Equal(current) {
		setETag(w, current)
		writeJSON(w, http.StatusOK, api.FromStored(current))
		return
	}
	stored, err := s.Spec.Store.PutDocument(db, id, patched)
	if err != nil {
		writeError(w, err)
		return
	}
	setETag(w, stored)
	writeJSON(w, http.StatusCreated, api.FromStored(stored))
}

func applyPatch(current doc.Document, patch []byte, contentType string) (doc.Document, error) {
	orig, err := json.Marshal(current)
	if err != nil {
		return doc.Document{}, err
	}
	var out []byte
	if strings.HasPrefix(contentType, contentTypeJSONPatch) {
		p, err := jsonpatch.DecodePatch(patch)
		if err != nil {
			return doc.Document{}, api.NewError(api.ErrCodeBadRequest, fmt.Sprintf("invalid json patch: %v", err))
		}
		out, err = p.Apply(orig)
		if err != nil {
			return doc.Document{}, api.NewError(api.ErrCodeConflict, fmt.Sprintf("json patch does not apply: %v", err))
		}
	} else {
		out, err = jsonpatch.MergePatch(orig, patch)
		if err != nil {
			return doc.Document{}, api.NewError(api.ErrCodeBadRequest, fmt.Sprintf("invalid merge patch: %v", err))
		}
	}
	res, err := doc.Parse(out)
	if err != nil {
		return doc.Document{}, api.NewError(api.ErrCodeBadRequest, err.Error())
	}
	return res, nil
}

func (s *Server) deleteDoc(w http.ResponseWriter, req *http.Request) {
	db, id, err := s.docVars(req)
	if err != nil {
		writeError(w, err)
		return
	}
	stored, err := s.Spec.Store.DeleteDocument(db, id, revision(req))
	if err != nil {
		writeError(w, err)
		return
	}
	setETag(w, stored)
	writeJSON(w, http.StatusOK, api.FromStored(stored))
}
