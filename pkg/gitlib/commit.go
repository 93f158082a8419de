package gitlib

import (
	"errors"
	"io"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// Commit wraps a libgit2 commit.
type Commit struct {
	commit *git2go.Commit
}

// Hash returns the commit hash.
func (c *Commit) Hash() Hash {
	return HashFromOid(c.commit.Id())
}

// CommitTime returns the committer timestamp in UTC. Telemetry documents
// are dated by it.
func (c *Commit) CommitTime() time.Time {
	return c.commit.Committer().When.UTC()
}

// Summary returns the first line of the commit message.
func (c *Commit) Summary() string {
	return c.commit.Summary()
}

// Free releases the commit resources.
func (c *Commit) Free() {
	if c.commit != nil {
		c.commit.Free()
		c.commit = nil
	}
}

// CommitIter iterates over the hashes produced by a revision walk.
type CommitIter struct {
	walk *git2go.RevWalk
}

// Next returns the next hash, or io.EOF when the walk is exhausted.
func (ci *CommitIter) Next() (Hash, error) {
	if ci.walk == nil {
		return Hash{}, io.EOF
	}

	oid := new(git2go.Oid)

	err := ci.walk.Next(oid)
	if err != nil {
		ci.Close()

		return Hash{}, io.EOF
	}

	return HashFromOid(oid), nil
}

// ForEach calls cb for each remaining hash until cb fails or the walk ends.
func (ci *CommitIter) ForEach(cb func(Hash) error) error {
	defer ci.Close()

	for {
		hash, err := ci.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		cbErr := cb(hash)
		if cbErr != nil {
			return cbErr
		}
	}
}

// Close releases resources.
func (ci *CommitIter) Close() {
	if ci.walk != nil {
		ci.walk.Free()
		ci.walk = nil
	}
}
