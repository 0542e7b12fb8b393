package storage

import "github.com/cockroachdb/errors"

func (s *State) createDatabase(name string) (*State, error) {
	if _, ok := s.dbs.Get(name); ok {
		return nil, errors.Wrapf(ErrDatabaseExists, "%q", name)
	}
	return s.withDatabase(newDatabase(name)), nil
}

func (s *State) deleteDatabase(name string) (*State, error) {
	if _, ok := s.dbs.Get(name); !ok {
		return nil, errors.Wrapf(ErrDatabaseNotFound, "%q", name)
	}
	return s.withoutDatabase(name), nil
}

func (s *State) mustDatabase(name string) (*Database, error) {
	db, ok := s.dbs.Get(name)
	if !ok {
		return nil, errors.Wrapf(ErrDatabaseNotFound, "%q", name)
	}
	return db, nil
}
