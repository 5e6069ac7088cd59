package merge

import (
	"io/fs"
	"path"
	"path/filepath"

	"github.com/caelinsutch/agentlink/pkg/errors"
	"github.com/caelinsutch/agentlink/pkg/types"
)

// excludeFunc tests a slash-separated path relative to the
// contributing root (e.g. "commands/secret.md").
type excludeFunc func(rel string) bool

// copyTree copies srcDir's full contents into dstDir, recursively,
// always as real files and directories so the merge output stays
// self-contained. Later copies into the same destination overwrite
// same-named entries. relPrefix is the exclusion-path prefix for
// entries of srcDir.
func copyTree(fsys types.FS, srcDir, dstDir, relPrefix string, excluded excludeFunc) error {
	entries, err := fsys.ReadDir(srcDir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrMergeCopy, "reading %s", srcDir)
	}
	if err := fsys.MkdirAll(dstDir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "creating %s", dstDir)
	}

	for _, entry := range entries {
		rel := path.Join(relPrefix, entry.Name())
		if excluded != nil && excluded(rel) {
			continue
		}
		src := filepath.Join(srcDir, entry.Name())
		dst := filepath.Join(dstDir, entry.Name())

		if entry.IsDir() {
			// A same-named file from a farther node loses to this directory.
			if info, err := fsys.Lstat(dst); err == nil && !info.IsDir() {
				if err := fsys.Remove(dst); err != nil {
					return errors.Wrapf(err, errors.ErrMergeCopy, "replacing %s", dst)
				}
			}
			if err := copyTree(fsys, src, dst, rel, excluded); err != nil {
				return err
			}
			continue
		}

		if err := copyFile(fsys, src, dst, entry); err != nil {
			return err
		}
	}
	return nil
}

// copyEntry copies one named item, file or directory, used by compose
// cherry-picking.
func copyEntry(fsys types.FS, src, dst, relPrefix string, excluded excludeFunc) error {
	info, err := fsys.Stat(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrMergeCopy, "reading %s", src)
	}
	if info.IsDir() {
		return copyTree(fsys, src, dst, relPrefix, excluded)
	}
	if excluded != nil && excluded(relPrefix) {
		return nil
	}
	if err := fsys.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "creating %s", filepath.Dir(dst))
	}
	data, err := fsys.ReadFile(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrMergeCopy, "reading %s", src)
	}
	if err := fsys.WriteFile(dst, data, permOf(info.Mode())); err != nil {
		return errors.Wrapf(err, errors.ErrMergeCopy, "writing %s", dst)
	}
	return nil
}

func copyFile(fsys types.FS, src, dst string, entry fs.DirEntry) error {
	// A same-named directory from a farther node loses to this file.
	if info, err := fsys.Lstat(dst); err == nil && info.IsDir() {
		if err := fsys.RemoveAll(dst); err != nil {
			return errors.Wrapf(err, errors.ErrMergeCopy, "replacing %s", dst)
		}
	}
	data, err := fsys.ReadFile(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrMergeCopy, "reading %s", src)
	}
	perm := fs.FileMode(0644)
	if info, err := entry.Info(); err == nil {
		perm = permOf(info.Mode())
	}
	if err := fsys.WriteFile(dst, data, perm); err != nil {
		return errors.Wrapf(err, errors.ErrMergeCopy, "writing %s", dst)
	}
	return nil
}

func permOf(mode fs.FileMode) fs.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		perm = 0644
	}
	return perm
}
