// Package doc provides the value model for stored documents.
//
// A document is a JSON object. Its values are represented by Value, a
// tagged union over null, bool, number, string, array and object, in the
// same spirit as an IR node: the Type field selects which of the remaining
// fields carry the data.
//
// Three top-level fields are reserved and have typed accessors on Document:
//
//   - _id: the document identity (string)
//   - _rev: the revision token (string)
//   - _deleted: the tombstone marker (bool)
//
// Every other field is opaque payload.
//
// Values and Documents are immutable once built. Document.With and
// Document.Without return new documents which share the untouched parts of
// the original, so an old document held by a reader never changes.
//
//	d := doc.New(map[string]*doc.Value{
//	    "name": doc.FromString("widget"),
//	})
//	d = d.With(doc.IDField, doc.FromString("w1"))
//	id, _ := d.ID() // "w1"
package doc
