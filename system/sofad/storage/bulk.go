package storage

import (
	"github.com/signadot/sofa/doc"
	"github.com/signadot/sofa/system/sofad/storage/autoid"
)

// BulkResult is the outcome of one document in a bulk write.
type BulkResult struct {
	ID  string
	Rev string
	Err error
}

// bulk applies each document in order. Documents carrying an _id go
// through put, the others through post. With allOrNothing the first
// failure aborts the batch and the returned database is nil.
func (d *Database) bulk(ids autoid.Generator, docs []doc.Document, allOrNothing bool, check Validator) (*Database, []BulkResult, error) {
	res := make([]BulkResult, len(docs))
	cur := d
	for i, in := range docs {
		next, stored, err := cur.post(ids, in, check)
		if err != nil {
			if allOrNothing {
				return nil, nil, err
			}
			id, _ := in.ID()
			res[i] = BulkResult{ID: id, Err: err}
			continue
		}
		cur = next
		id, _ := stored.ID()
		r, _ := stored.Rev()
		res[i] = BulkResult{ID: id, Rev: r}
	}
	if cur == d {
		return nil, res, nil
	}
	return cur, res, nil
}
