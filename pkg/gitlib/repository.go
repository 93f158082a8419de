package gitlib

import (
	"context"
	"errors"
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrCheckoutFailed marks a commit that could not be checked out.
var ErrCheckoutFailed = errors.New("checkout failed")

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the repository path.
func (r *Repository) Path() string {
	return r.path
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the commit HEAD points to.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", hash, err)
	}

	return &Commit{commit: commit}, nil
}

// Log returns an iterator over the history reachable from HEAD, newest first.
func (r *Repository) Log() (*CommitIter, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	headRef, err := r.repo.Head()
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("get HEAD: %w", err)
	}
	defer headRef.Free()

	err = walk.Push(headRef.Target())
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("push HEAD to revwalk: %w", err)
	}

	walk.Sorting(git2go.SortTime | git2go.SortTopological)

	return &CommitIter{walk: walk}, nil
}

// Commits lists every commit reachable from HEAD. Index 0 is HEAD.
func (r *Repository) Commits(ctx context.Context) ([]Hash, error) {
	iter, err := r.Log()
	if err != nil {
		return nil, err
	}

	var hashes []Hash

	err = iter.ForEach(func(h Hash) error {
		hashes = append(hashes, h)

		return ctx.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}

	return hashes, nil
}

// Checkout force-checks out the tree of hash and detaches HEAD onto it.
// Untracked files such as installed dependencies are left in place.
func (r *Repository) Checkout(ctx context.Context, hash Hash) error {
	ctxErr := ctx.Err()
	if ctxErr != nil {
		return ctxErr
	}

	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return fmt.Errorf("%w: lookup commit %s: %w", ErrCheckoutFailed, hash, err)
	}
	defer commit.Free()

	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("%w: get tree of %s: %w", ErrCheckoutFailed, hash, err)
	}
	defer tree.Free()

	err = r.repo.CheckoutTree(tree, &git2go.CheckoutOptions{Strategy: git2go.CheckoutForce})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCheckoutFailed, hash, err)
	}

	err = r.repo.SetHeadDetached(hash.ToOid())
	if err != nil {
		return fmt.Errorf("%w: detach HEAD at %s: %w", ErrCheckoutFailed, hash, err)
	}

	return nil
}

// CommitTime returns the committer timestamp of hash.
func (r *Repository) CommitTime(hash Hash) (time.Time, error) {
	commit, err := r.LookupCommit(hash)
	if err != nil {
		return time.Time{}, err
	}
	defer commit.Free()

	return commit.CommitTime(), nil
}
