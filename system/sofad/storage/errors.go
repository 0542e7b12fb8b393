package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/signadot/sofa/system/sofad/storage/rev"
)

// Errors returned by Store operations. Returned errors wrap one of these
// with context; match them with errors.Is.
var (
	ErrDatabaseExists    = errors.New("database exists")
	ErrDatabaseNotFound  = errors.New("database not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrConflict          = errors.New("document update conflict")
	ErrMalformedRevision = rev.ErrMalformed
	ErrInvalidDocument   = errors.New("invalid document")
	ErrBusy              = errors.New("store busy")

	// ErrDocumentDeleted is a DocumentNotFound for an id whose current
	// document is a tombstone.
	ErrDocumentDeleted = errors.Mark(errors.New("document deleted"), ErrDocumentNotFound)
)

// errorKind names the class of err for metrics labels.
func errorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDatabaseExists):
		return "database_exists"
	case errors.Is(err, ErrDatabaseNotFound):
		return "database_not_found"
	case errors.Is(err, ErrDocumentNotFound):
		return "document_not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrMalformedRevision):
		return "malformed_revision"
	case errors.Is(err, ErrInvalidDocument):
		return "invalid_document"
	case errors.Is(err, ErrBusy):
		return "busy"
	}
	return "other"
}
