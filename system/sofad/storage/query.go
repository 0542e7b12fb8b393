package storage

import "github.com/signadot/sofa/doc"

// AllDocsOptions selects a range of documents by id.
type AllDocsOptions struct {
	// StartKey and EndKey bound the ids returned, inclusive. With
	// Descending set, StartKey is the upper bound. Empty means unbounded.
	StartKey string
	EndKey   string
	// Limit caps the number of rows; zero or negative means no limit.
	Limit      int
	Skip       int
	Descending bool
	// IncludeDeleted returns tombstones as well.
	IncludeDeleted bool
}

// AllDocsResult is one page of documents in id order.
type AllDocsResult struct {
	TotalRows int64
	Offset    int
	Rows      []doc.Document
}

// ChangesResult is a slice of the change log.
type ChangesResult struct {
	Results []ChangeInfo
	LastSeq uint64
}

func (d *Database) allDocs(opts AllDocsOptions) AllDocsResult {
	res := AllDocsResult{TotalRows: d.docCount, Offset: opts.Skip}
	itr := d.docs.Iterator()
	step := itr.Next
	inRange := func(id string) (skip, stop bool) {
		if opts.StartKey != "" && id < opts.StartKey {
			return true, false
		}
		if opts.EndKey != "" && id > opts.EndKey {
			return false, true
		}
		return false, false
	}
	if opts.Descending {
		itr.Last()
		step = itr.Prev
		inRange = func(id string) (skip, stop bool) {
			if opts.StartKey != "" && id > opts.StartKey {
				return true, false
			}
			if opts.EndKey != "" && id < opts.EndKey {
				return false, true
			}
			return false, false
		}
	} else if opts.StartKey != "" {
		itr.Seek(opts.StartKey)
	}
	skipped := 0
	for !itr.Done() {
		id, row, _ := step()
		skip, stop := inRange(id)
		if stop {
			break
		}
		if skip || (row.Deleted() && !opts.IncludeDeleted) {
			continue
		}
		if skipped < opts.Skip {
			skipped++
			continue
		}
		res.Rows = append(res.Rows, row)
		if opts.Limit > 0 && len(res.Rows) >= opts.Limit {
			break
		}
	}
	return res
}

// changesSince returns up to limit changes recorded after since.
func (d *Database) changesSince(since uint64, limit int) ChangesResult {
	if since >= d.seq {
		return ChangesResult{LastSeq: d.seq}
	}
	res := ChangesResult{LastSeq: since}
	itr := d.changes.Iterator()
	itr.Seek(since + 1)
	for !itr.Done() {
		seq, c, _ := itr.Next()
		res.Results = append(res.Results, c)
		res.LastSeq = seq
		if limit > 0 && len(res.Results) >= limit {
			break
		}
	}
	return res
}
