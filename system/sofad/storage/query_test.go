package storage

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/signadot/sofa/doc"
)

func ids(rows []doc.Document) []string {
	res := make([]string, len(rows))
	for i, r := range rows {
		res[i], _ = r.ID()
	}
	return res
}

func TestAllDocs(t *testing.T) {
	s := newShop(t)
	for _, id := range []string{"c", "a", "e", "b", "d"} {
		if _, err := s.PutDocument("shop", id, widget(nil)); err != nil {
			t.Fatal(err)
		}
	}
	d, _ := s.GetDocument("shop", "d")
	if _, err := s.DeleteDocument("shop", "d", mustRev(t, d)); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		opts AllDocsOptions
		want []string
	}{
		{"all", AllDocsOptions{}, []string{"a", "b", "c", "e"}},
		{"deleted", AllDocsOptions{IncludeDeleted: true}, []string{"a", "b", "c", "d", "e"}},
		{"range", AllDocsOptions{StartKey: "b", EndKey: "d"}, []string{"b", "c"}},
		{"limit", AllDocsOptions{Limit: 2}, []string{"a", "b"}},
		{"skip", AllDocsOptions{Skip: 1, Limit: 2}, []string{"b", "c"}},
		{"descending", AllDocsOptions{Descending: true}, []string{"e", "c", "b", "a"}},
		{"descending range", AllDocsOptions{Descending: true, StartKey: "c", EndKey: "b"}, []string{"c", "b"}},
		{"empty range", AllDocsOptions{StartKey: "x"}, []string{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, err := s.AllDocs("shop", c.opts)
			if err != nil {
				t.Fatal(err)
			}
			got := ids(res.Rows)
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Errorf("rows mismatch (-want +got):\n%s", diff)
			}
			if res.TotalRows != 4 {
				t.Errorf("total rows %d, want 4", res.TotalRows)
			}
		})
	}
}

func TestBulkDocs(t *testing.T) {
	s := newShop(t)
	a, _ := s.PutDocument("shop", "a", widget(nil))

	batch := []doc.Document{
		widget(map[string]any{"_id": "a", "_rev": mustRev(t, a), "v": 2}),
		widget(map[string]any{"_id": "a", "_rev": mustRev(t, a), "v": 3}),
		widget(map[string]any{"v": "fresh"}),
		widget(map[string]any{"_id": "b"}),
	}
	res, err := s.BulkDocs("shop", batch, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 4 {
		t.Fatalf("got %d results", len(res))
	}
	if res[0].Err != nil || res[0].ID != "a" {
		t.Errorf("first update failed: %+v", res[0])
	}
	if !errors.Is(res[1].Err, ErrConflict) {
		t.Errorf("second update of the same revision should conflict: %+v", res[1])
	}
	if res[2].Err != nil || res[2].ID == "" {
		t.Errorf("post without id failed: %+v", res[2])
	}
	if res[3].Err != nil || res[3].ID != "b" {
		t.Errorf("create failed: %+v", res[3])
	}
	info, _ := s.DescribeDatabase("shop")
	if info.UpdateSeq != 4 || info.DocCount != 3 {
		t.Errorf("unexpected info %+v", info)
	}

	_, err = s.BulkDocs("shop", []doc.Document{
		widget(map[string]any{"_id": "c"}),
		widget(map[string]any{"_id": "a", "_rev": "1-stale"}),
	}, true)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := s.GetDocument("shop", "c"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("all-or-nothing batch leaked a write: %v", err)
	}
	after, _ := s.DescribeDatabase("shop")
	if after != info {
		t.Errorf("failed batch changed info: %+v", after)
	}
}

func TestBulkAllFailedPublishesNothing(t *testing.T) {
	s := newShop(t)
	before := s.Snapshot()
	res, err := s.BulkDocs("shop", []doc.Document{widget(map[string]any{"_id": 7})}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(res[0].Err, ErrInvalidDocument) {
		t.Errorf("expected invalid document, got %v", res[0].Err)
	}
	if s.Snapshot() != before {
		t.Error("state was republished")
	}
}
