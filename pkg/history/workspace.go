package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"
)

// ErrWorkspace marks a failure to prepare the scratch working copy. It aborts
// the whole walk.
var ErrWorkspace = errors.New("prepare workspace")

// WorkspaceOptions configures PrepareWorkspace.
type WorkspaceOptions struct {
	// Exclude lists directory names skipped at any depth.
	Exclude []string
	// Concurrency bounds the number of files copied at once.
	Concurrency int
}

// PrepareWorkspace replaces dst with a copy of src. Directories named in
// opts.Exclude are skipped; symlinks are recreated, not followed.
func PrepareWorkspace(ctx context.Context, src, dst string, opts WorkspaceOptions) error {
	if src == "" || dst == "" {
		return fmt.Errorf("%w: empty path", ErrWorkspace)
	}

	absSrc, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWorkspace, err)
	}

	absDst, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWorkspace, err)
	}

	if absSrc == absDst {
		return fmt.Errorf("%w: source and workspace are the same directory", ErrWorkspace)
	}

	err = os.RemoveAll(absDst)
	if err != nil {
		return fmt.Errorf("%w: clear %s: %w", ErrWorkspace, absDst, err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(opts.Concurrency, 1))

	walkErr := filepath.WalkDir(absSrc, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		ctxErr := groupCtx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(absSrc, path)
		if relErr != nil {
			return relErr
		}

		target := filepath.Join(absDst, rel)

		// Never descend into the workspace itself when it lives under src.
		if path == absDst {
			return fs.SkipDir
		}

		switch {
		case entry.IsDir():
			if path != absSrc && slices.Contains(opts.Exclude, entry.Name()) {
				return fs.SkipDir
			}

			return mkdirLike(path, target)
		case entry.Type()&fs.ModeSymlink != 0:
			link, linkErr := os.Readlink(path)
			if linkErr != nil {
				return linkErr
			}

			return os.Symlink(link, target)
		case entry.Type().IsRegular():
			group.Go(func() error {
				return copyFile(path, target)
			})
		}

		return nil
	})

	groupErr := group.Wait()

	err = errors.Join(walkErr, groupErr)
	if err != nil {
		return fmt.Errorf("%w: copy %s to %s: %w", ErrWorkspace, absSrc, absDst, err)
	}

	return nil
}

func mkdirLike(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	return os.MkdirAll(dst, info.Mode().Perm()|0o700)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	_, err = io.Copy(out, in)
	if err != nil {
		out.Close()

		return err
	}

	return out.Close()
}
