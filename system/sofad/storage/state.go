package storage

import (
	"cmp"
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/signadot/sofa/doc"
)

// State is one immutable snapshot of every database in the store.
type State struct {
	dbs *immutable.SortedMap[string, *Database]
}

// Database is one immutable snapshot of a database.
type Database struct {
	name     string
	seq      uint64
	docCount int64
	docs     *immutable.SortedMap[string, doc.Document]
	changes  *immutable.SortedMap[uint64, ChangeInfo]
}

// ChangeInfo records one accepted document mutation.
type ChangeInfo struct {
	Seq     uint64
	ID      string
	Rev     string // revision minted by the mutation
	PrevRev string // revision it superseded, empty for creations
	Deleted bool
}

// DatabaseInfo describes a database.
type DatabaseInfo struct {
	Name      string
	UpdateSeq uint64
	DocCount  int64
}

type stringComparer struct{}

func (stringComparer) Compare(a, b string) int { return strings.Compare(a, b) }

type seqComparer struct{}

func (seqComparer) Compare(a, b uint64) int { return cmp.Compare(a, b) }

// EmptyState returns a state with no databases.
func EmptyState() *State {
	return &State{dbs: immutable.NewSortedMap[string, *Database](stringComparer{})}
}

func newDatabase(name string) *Database {
	return &Database{
		name:    name,
		docs:    immutable.NewSortedMap[string, doc.Document](stringComparer{}),
		changes: immutable.NewSortedMap[uint64, ChangeInfo](seqComparer{}),
	}
}

// Database returns the named database.
func (s *State) Database(name string) (*Database, bool) {
	return s.dbs.Get(name)
}

// Names returns the database names in ascending order.
func (s *State) Names() []string {
	res := make([]string, 0, s.dbs.Len())
	itr := s.dbs.Iterator()
	for !itr.Done() {
		name, _, _ := itr.Next()
		res = append(res, name)
	}
	return res
}

func (s *State) Len() int {
	return s.dbs.Len()
}

func (s *State) withDatabase(db *Database) *State {
	return &State{dbs: s.dbs.Set(db.name, db)}
}

func (s *State) withoutDatabase(name string) *State {
	return &State{dbs: s.dbs.Delete(name)}
}

func (d *Database) Name() string    { return d.name }
func (d *Database) Seq() uint64     { return d.seq }
func (d *Database) DocCount() int64 { return d.docCount }

func (d *Database) Info() DatabaseInfo {
	return DatabaseInfo{Name: d.name, UpdateSeq: d.seq, DocCount: d.docCount}
}

// Get returns the stored document for id, tombstoned or not.
func (d *Database) Get(id string) (doc.Document, bool) {
	return d.docs.Get(id)
}

// Change returns the change recorded at seq.
func (d *Database) Change(seq uint64) (ChangeInfo, bool) {
	return d.changes.Get(seq)
}

func (d *Database) clone() *Database {
	c := *d
	return &c
}
