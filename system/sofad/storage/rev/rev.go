// Package rev implements document revision tokens.
//
// A revision has the form "<generation>-<token>". The generation is a
// positive integer which grows by one along a document's update chain;
// the token is 32 lowercase hex characters taken from a random 128-bit
// UUID, so no two revisions ever share a token.
package rev

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ErrMalformed is returned for revisions whose generation prefix cannot be
// parsed.
var ErrMalformed = errors.New("malformed revision")

// Rev is a parsed revision.
type Rev struct {
	Gen   uint64
	Token string
}

func (r Rev) String() string {
	return strconv.FormatUint(r.Gen, 10) + "-" + r.Token
}

// Parse splits s at its first '-' and parses the generation.
func Parse(s string) (Rev, error) {
	genStr, token, ok := strings.Cut(s, "-")
	if !ok || token == "" {
		return Rev{}, errors.Wrapf(ErrMalformed, "%q", s)
	}
	gen, err := strconv.ParseUint(genStr, 10, 64)
	if err != nil || gen == 0 {
		return Rev{}, errors.Wrapf(ErrMalformed, "%q: bad generation", s)
	}
	return Rev{Gen: gen, Token: token}, nil
}

// Next returns a fresh revision following prior. An empty prior starts a
// new chain at generation 1.
func Next(prior string) (string, error) {
	gen := uint64(1)
	if prior != "" {
		p, err := Parse(prior)
		if err != nil {
			return "", err
		}
		gen = p.Gen + 1
	}
	return Rev{Gen: gen, Token: NewToken()}.String(), nil
}

// NewToken returns 32 hex characters from a random UUID.
func NewToken() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Gen returns the generation of s, or 0 when s is malformed.
func Gen(s string) uint64 {
	r, err := Parse(s)
	if err != nil {
		return 0
	}
	return r.Gen
}
