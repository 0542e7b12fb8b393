package storage

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/signadot/sofa/doc"
	"github.com/signadot/sofa/system/sofad/storage/autoid"
)

// RetryPolicy bounds how long a mutation retries when concurrent writers
// keep publishing before it.
type RetryPolicy struct {
	// MaxRetries is the number of failed publishes tolerated after the
	// first attempt. Zero or negative means retry forever.
	MaxRetries int
	// Backoff is the first sleep between attempts, doubling up to
	// MaxBackoff. Zero means yield the processor instead of sleeping.
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// DefaultRetryPolicy never sleeps and gives up after 128 retries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 128}
}

// Store holds the current State and serializes mutations by
// compare-and-swap. Readers never block.
type Store struct {
	state   atomic.Pointer[State]
	policy  RetryPolicy
	ids     autoid.Generator
	check   Validator
	metrics *Metrics
}

type Option func(*Store)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Store) { s.policy = p }
}

func WithIDGenerator(g autoid.Generator) Option {
	return func(s *Store) { s.ids = g }
}

// WithValidator makes every document write pass v before it is
// published.
func WithValidator(v Validator) Option {
	return func(s *Store) { s.check = v }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		policy: DefaultRetryPolicy(),
		ids:    autoid.Random{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(EmptyState())
	return s
}

// Snapshot returns the current state. The result never changes.
func (s *Store) Snapshot() *State {
	return s.state.Load()
}

// Validator inspects a document write after its revision has been
// checked. prev is nil for creations. A non-nil error rejects the write.
type Validator func(db, id string, prev *doc.Document, next doc.Document) error

// Transition computes a result and a successor of the given state. A nil
// successor means the state is unchanged. Transitions must not modify
// their input and may run more than once per Apply.
type Transition[R any] func(*State) (R, *State, error)

// Apply runs t against the current state and publishes its successor.
// When another writer publishes first, t is recomputed against the
// fresher state, up to the store's retry policy; past that ErrBusy is
// returned and nothing is published.
func Apply[R any](s *Store, op string, t Transition[R]) (R, error) {
	var zero R
	backoff := s.policy.Backoff
	for attempt := 0; ; attempt++ {
		cur := s.state.Load()
		res, next, err := t(cur)
		if err != nil {
			s.metrics.observe(op, err)
			return zero, err
		}
		if next == nil || next == cur || s.state.CompareAndSwap(cur, next) {
			s.metrics.observe(op, nil)
			return res, nil
		}
		s.metrics.retried(op)
		if s.policy.MaxRetries > 0 && attempt >= s.policy.MaxRetries {
			err := errors.Wrapf(ErrBusy, "%s: %d attempts", op, attempt+1)
			s.metrics.observe(op, err)
			return zero, err
		}
		if backoff <= 0 {
			runtime.Gosched()
			continue
		}
		time.Sleep(backoff)
		backoff *= 2
		if s.policy.MaxBackoff > 0 && backoff > s.policy.MaxBackoff {
			backoff = s.policy.MaxBackoff
		}
	}
}

// update runs a mutation of one database through Apply.
func update[R any](s *Store, op, name string, f func(*Database) (*Database, R, error)) (R, error) {
	return Apply(s, op, func(st *State) (R, *State, error) {
		var zero R
		db, err := st.mustDatabase(name)
		if err != nil {
			return zero, nil, err
		}
		next, res, err := f(db)
		if err != nil {
			return zero, nil, err
		}
		if next == nil {
			return res, nil, nil
		}
		return res, st.withDatabase(next), nil
	})
}

// read runs a query of one database against the current snapshot.
func read[R any](s *Store, op, name string, f func(*Database) (R, error)) (R, error) {
	return Apply(s, op, func(st *State) (R, *State, error) {
		var zero R
		db, err := st.mustDatabase(name)
		if err != nil {
			return zero, nil, err
		}
		res, err := f(db)
		return res, nil, err
	})
}

func (s *Store) CreateDatabase(name string) error {
	_, err := Apply(s, "create_database", func(st *State) (struct{}, *State, error) {
		next, err := st.createDatabase(name)
		return struct{}{}, next, err
	})
	return err
}

// ListDatabases returns the database names in ascending order.
func (s *Store) ListDatabases() []string {
	return s.Snapshot().Names()
}

func (s *Store) DescribeDatabase(name string) (DatabaseInfo, error) {
	return read(s, "describe_database", name, func(db *Database) (DatabaseInfo, error) {
		return db.Info(), nil
	})
}

// DeleteDatabase removes a database with all its documents and changes.
func (s *Store) DeleteDatabase(name string) error {
	_, err := Apply(s, "delete_database", func(st *State) (struct{}, *State, error) {
		next, err := st.deleteDatabase(name)
		return struct{}{}, next, err
	})
	return err
}

// GetDocument returns the current document, which may be a tombstone.
func (s *Store) GetDocument(name, id string) (doc.Document, error) {
	return read(s, "get_document", name, func(db *Database) (doc.Document, error) {
		return db.get(id)
	})
}

// PutDocument creates or updates the document at id. Updates must carry
// the current _rev.
func (s *Store) PutDocument(name, id string, d doc.Document) (doc.Document, error) {
	return update(s, "put_document", name, func(db *Database) (*Database, doc.Document, error) {
		return db.put(id, d, s.check)
	})
}

// PostDocument stores d under its _id, generating one when missing.
func (s *Store) PostDocument(name string, d doc.Document) (doc.Document, error) {
	return update(s, "post_document", name, func(db *Database) (*Database, doc.Document, error) {
		return db.post(s.ids, d, s.check)
	})
}

// DeleteDocument replaces the document at id with a tombstone.
func (s *Store) DeleteDocument(name, id, revision string) (doc.Document, error) {
	return update(s, "delete_document", name, func(db *Database) (*Database, doc.Document, error) {
		return db.delete(id, revision, s.check)
	})
}

// BulkDocs writes docs in order in a single publish. Per-document failures
// are reported in the results unless allOrNothing is set, in which case
// the first failure is returned and nothing is written.
func (s *Store) BulkDocs(name string, docs []doc.Document, allOrNothing bool) ([]BulkResult, error) {
	return update(s, "bulk_docs", name, func(db *Database) (*Database, []BulkResult, error) {
		return db.bulk(s.ids, docs, allOrNothing, s.check)
	})
}

func (s *Store) AllDocs(name string, opts AllDocsOptions) (AllDocsResult, error) {
	return read(s, "all_docs", name, func(db *Database) (AllDocsResult, error) {
		return db.allDocs(opts), nil
	})
}

// Changes returns up to limit changes recorded after since.
func (s *Store) Changes(name string, since uint64, limit int) (ChangesResult, error) {
	return read(s, "changes", name, func(db *Database) (ChangesResult, error) {
		return db.changesSince(since, limit), nil
	})
}

// UUIDs returns n fresh ids from the store's generator. n below zero
// yields none.
func (s *Store) UUIDs(n int) []string {
	res := make([]string, max(n, 0))
	for i := range res {
		res[i] = s.ids.NewID()
	}
	return res
}
