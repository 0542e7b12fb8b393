package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/signadot/sofa/doc"
	"github.com/signadot/sofa/system/sofad/storage/autoid"
)

// put stores incoming under id, creating the document or updating it when
// the revisions match.
func (d *Database) put(id string, incoming doc.Document, check Validator) (*Database, doc.Document, error) {
	if err := checkReserved(incoming); err != nil {
		return nil, doc.Document{}, err
	}
	incoming = incoming.With(doc.IDField, doc.FromString(id))

	current, exists := d.docs.Get(id)
	updated, change, err := validateAndApply(current, exists, incoming)
	if err != nil {
		return nil, doc.Document{}, err
	}
	if check != nil {
		var prev *doc.Document
		if exists {
			prev = &current
		}
		if err := check(d.name, id, prev, updated); err != nil {
			return nil, doc.Document{}, err
		}
	}

	res := d.clone()
	res.seq++
	change.Seq = res.seq
	wasLive := exists && !current.Deleted()
	isLive := !updated.Deleted()
	switch {
	case isLive && !wasLive:
		res.docCount++
	case wasLive && !isLive:
		res.docCount--
	}
	res.docs = d.docs.Set(id, updated)
	res.changes = d.changes.Set(res.seq, change)
	return res, updated, nil
}

// post stores incoming under its _id, or under a fresh id when it has none.
func (d *Database) post(ids autoid.Generator, incoming doc.Document, check Validator) (*Database, doc.Document, error) {
	if v := incoming.Get(doc.IDField); v != nil && v.Type != doc.NullType {
		if v.Type != doc.StringType {
			return nil, doc.Document{}, errors.Wrapf(ErrInvalidDocument, "_id must be a string, got %s", v.Type)
		}
		return d.put(v.String, incoming, check)
	}
	id := ids.NewID()
	for {
		if _, taken := d.docs.Get(id); !taken {
			break
		}
		id = ids.NewID()
	}
	return d.put(id, incoming, check)
}

// delete tombstones the document at id.
func (d *Database) delete(id, revision string, check Validator) (*Database, doc.Document, error) {
	current, exists := d.docs.Get(id)
	if !exists {
		return nil, doc.Document{}, errors.Wrapf(ErrDocumentNotFound, "%q", id)
	}
	if current.Deleted() {
		if curRev, _ := current.Rev(); curRev == revision {
			return nil, doc.Document{}, errors.Wrapf(ErrDocumentDeleted, "%q", id)
		}
	}
	fields := map[string]*doc.Value{
		doc.IDField:      doc.FromString(id),
		doc.DeletedField: doc.FromBool(true),
	}
	if revision != "" {
		fields[doc.RevField] = doc.FromString(revision)
	}
	return d.put(id, doc.New(fields), check)
}

func (d *Database) get(id string) (doc.Document, error) {
	current, exists := d.docs.Get(id)
	if !exists {
		return doc.Document{}, errors.Wrapf(ErrDocumentNotFound, "%q in %q", id, d.name)
	}
	return current, nil
}

func checkReserved(d doc.Document) error {
	if v := d.Get(doc.IDField); v != nil && v.Type != doc.StringType && v.Type != doc.NullType {
		return errors.Wrapf(ErrInvalidDocument, "_id must be a string, got %s", v.Type)
	}
	if v := d.Get(doc.DeletedField); v != nil && v.Type != doc.BoolType {
		return errors.Wrapf(ErrInvalidDocument, "_deleted must be a bool, got %s", v.Type)
	}
	return nil
}
