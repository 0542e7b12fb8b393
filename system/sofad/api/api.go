package api

import (
	"time"

	"github.com/signadot/sofa/doc"
	"github.com/signadot/sofa/system/sofad/storage"
)

// Welcome is the body of GET /.
type Welcome struct {
	CouchDB string `json:"couchdb"`
	Vendor  Vendor `json:"vendor"`
	Version string `json:"version"`
}

type Vendor struct {
	Name string `json:"name"`
}

// OK acknowledges a write that returns nothing else.
type OK struct {
	OK bool `json:"ok"`
}

// DatabaseInfo describes one database.
type DatabaseInfo struct {
	Name      string `json:"db_name"`
	UpdateSeq uint64 `json:"update_seq"`
	DocCount  int64  `json:"doc_count"`
}

func FromDatabaseInfo(info storage.DatabaseInfo) DatabaseInfo {
	return DatabaseInfo{Name: info.Name, UpdateSeq: info.UpdateSeq, DocCount: info.DocCount}
}

// DocResult reports the outcome of a document write. In bulk results a
// failed write carries Error and Reason instead of Rev.
type DocResult struct {
	OK     bool   `json:"ok,omitempty"`
	ID     string `json:"id"`
	Rev    string `json:"rev,omitempty"`
	Error  string `json:"error,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// FromStored describes a successfully stored document.
func FromStored(d doc.Document) DocResult {
	id, _ := d.ID()
	r, _ := d.Rev()
	return DocResult{OK: true, ID: id, Rev: r}
}

func FromBulkResult(r storage.BulkResult) DocResult {
	if r.Err != nil {
		e := FromError(r.Err)
		return DocResult{ID: r.ID, Error: e.Code, Reason: e.Message}
	}
	return DocResult{OK: true, ID: r.ID, Rev: r.Rev}
}

// BulkDocsRequest is the body of POST /{db}/_bulk_docs.
type BulkDocsRequest struct {
	Docs         []doc.Document `json:"docs"`
	AllOrNothing bool           `json:"all_or_nothing,omitempty"`
}

// AllDocsRow is one row of an _all_docs response.
type AllDocsRow struct {
	ID    string        `json:"id"`
	Key   string        `json:"key"`
	Value AllDocsValue  `json:"value"`
	Doc   *doc.Document `json:"doc,omitempty"`
}

type AllDocsValue struct {
	Rev     string `json:"rev"`
	Deleted bool   `json:"deleted,omitempty"`
}

type AllDocsResponse struct {
	TotalRows int64        `json:"total_rows"`
	Offset    int          `json:"offset"`
	Rows      []AllDocsRow `json:"rows"`
}

// FromAllDocs renders res, embedding documents when includeDocs is set.
func FromAllDocs(res storage.AllDocsResult, includeDocs bool) AllDocsResponse {
	out := AllDocsResponse{TotalRows: res.TotalRows, Offset: res.Offset, Rows: make([]AllDocsRow, 0, len(res.Rows))}
	for _, d := range res.Rows {
		id, _ := d.ID()
		r, _ := d.Rev()
		row := AllDocsRow{ID: id, Key: id, Value: AllDocsValue{Rev: r, Deleted: d.Deleted()}}
		if includeDocs {
			row.Doc = &d
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// ChangesRow is one entry of the change log.
type ChangesRow struct {
	Seq     uint64      `json:"seq"`
	ID      string      `json:"id"`
	Changes []ChangeRev `json:"changes"`
	PrevRev string      `json:"prev_rev,omitempty"`
	Deleted bool        `json:"deleted,omitempty"`
}

type ChangeRev struct {
	Rev string `json:"rev"`
}

type ChangesResponse struct {
	Results []ChangesRow `json:"results"`
	LastSeq uint64       `json:"last_seq"`
}

func FromChanges(res storage.ChangesResult) ChangesResponse {
	out := ChangesResponse{LastSeq: res.LastSeq, Results: make([]ChangesRow, len(res.Results))}
	for i, c := range res.Results {
		out.Results[i] = ChangesRow{
			Seq:     c.Seq,
			ID:      c.ID,
			Changes: []ChangeRev{{Rev: c.Rev}},
			PrevRev: c.PrevRev,
			Deleted: c.Deleted,
		}
	}
	return out
}

type UUIDs struct {
	UUIDs []string `json:"uuids"`
}

// RPC parameters.

type DatabaseParams struct {
	DB string `json:"db"`
}

type DocumentParams struct {
	DB  string `json:"db"`
	ID  string `json:"id"`
	Rev string `json:"rev,omitempty"`
}

type PutDocumentParams struct {
	DB  string       `json:"db"`
	ID  string       `json:"id"`
	Doc doc.Document `json:"doc"`
}

type PostDocumentParams struct {
	DB  string       `json:"db"`
	Doc doc.Document `json:"doc"`
}

type BulkDocsParams struct {
	DB string `json:"db"`
	BulkDocsRequest
}

type AllDocsParams struct {
	DB             string `json:"db"`
	StartKey       string `json:"startkey,omitempty"`
	EndKey         string `json:"endkey,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Skip           int    `json:"skip,omitempty"`
	Descending     bool   `json:"descending,omitempty"`
	IncludeDocs    bool   `json:"include_docs,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

func (p AllDocsParams) Options() storage.AllDocsOptions {
	return storage.AllDocsOptions{
		StartKey:       p.StartKey,
		EndKey:         p.EndKey,
		Limit:          p.Limit,
		Skip:           p.Skip,
		Descending:     p.Descending,
		IncludeDeleted: p.IncludeDeleted,
	}
}

type ChangesParams struct {
	DB    string `json:"db"`
	Since uint64 `json:"since,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type UUIDsParams struct {
	Count int `json:"count,omitempty"`
}

// Duration is a time.Duration with a text form, for configuration.
type Duration time.Duration

func (dur Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(dur).String()), nil
}

func (dur *Duration) UnmarshalText(d []byte) error {
	p, err := time.ParseDuration(string(d))
	if err != nil {
		return err
	}
	*dur = Duration(p)
	return nil
}
