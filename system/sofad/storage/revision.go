package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/signadot/sofa/doc"
	"github.com/signadot/sofa/system/sofad/storage/rev"
)

// validateAndApply checks incoming against the current document (exists is
// false for a creation) and returns incoming carrying a fresh revision,
// together with the change to record.
func validateAndApply(current doc.Document, exists bool, incoming doc.Document) (doc.Document, ChangeInfo, error) {
	id, _ := incoming.ID()
	var prior string
	if exists {
		prior, _ = current.Rev()
		inRev, ok := incomingRev(incoming)
		if !ok {
			return doc.Document{}, ChangeInfo{}, errors.Wrapf(ErrConflict, "document %q: have %q, got a non-string _rev", id, prior)
		}
		if inRev != prior {
			return doc.Document{}, ChangeInfo{}, errors.Wrapf(ErrConflict, "document %q: have %q, got %q", id, prior, inRev)
		}
	}
	next, err := rev.Next(prior)
	if err != nil {
		return doc.Document{}, ChangeInfo{}, err
	}
	change := ChangeInfo{
		ID:      id,
		Rev:     next,
		PrevRev: prior,
		Deleted: incoming.Deleted(),
	}
	return incoming.With(doc.RevField, doc.FromString(next)), change, nil
}

// incomingRev returns the _rev carried by d as written by the caller. A
// missing or null _rev is "". Any other non-string _rev is not ok.
func incomingRev(d doc.Document) (string, bool) {
	v := d.Get(doc.RevField)
	if v == nil || v.Type == doc.NullType {
		return "", true
	}
	if v.Type != doc.StringType {
		return "", false
	}
	return v.String, true
}
