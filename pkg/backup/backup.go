// Package backup brackets a mutating apply with a capture of the
// pre-apply target state, enabling rollback on failure. The session
// itself never touches symlinks; it only records and restores.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/caelinsutch/agentlink/pkg/errors"
	"github.com/caelinsutch/agentlink/pkg/logging"
	"github.com/caelinsutch/agentlink/pkg/types"
)

// entryType records what a target was before apply.
const (
	entryAbsent  = "absent"
	entrySymlink = "symlink"
	entryFile    = "file"
	entryDir     = "dir"
)

type entry struct {
	Target   string `yaml:"target"`
	Type     string `yaml:"type"`
	LinkDest string `yaml:"link_dest,omitempty"`
	SavedAs  string `yaml:"saved_as,omitempty"`
}

type manifest struct {
	Root      string    `yaml:"root"`
	Label     string    `yaml:"label"`
	CreatedAt time.Time `yaml:"created_at"`
	Finalized bool      `yaml:"finalized"`
	Entries   []entry   `yaml:"entries"`
}

// Session captures the state of targets about to be replaced by one
// apply operation.
type Session struct {
	fs        types.FS
	dir       string
	root      string
	label     string
	createdAt time.Time
	entries   []entry
	finalized bool
	logger    zerolog.Logger
}

// DefaultBaseDir is where sessions live outside tests.
func DefaultBaseDir() string {
	return filepath.Join(xdg.DataHome, "agentlink", "backups")
}

// Open starts a session scoped to one canonical root and operation
// label.
func Open(fsys types.FS, baseDir, root, label string, now time.Time) (*Session, error) {
	dir := filepath.Join(baseDir, fmt.Sprintf("%s-%s-%d", slug(root), label, now.Unix()))
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrBackupCapture, "creating backup dir %s", dir)
	}
	return &Session{
		fs:        fsys,
		dir:       dir,
		root:      root,
		label:     label,
		createdAt: now,
		logger:    logging.GetLogger("backup.session"),
	}, nil
}

// Dir exposes the session directory, mostly for status output.
func (s *Session) Dir() string {
	return s.dir
}

// Capture records a target's current state so it can be restored.
// Call it for every target the apply step may mutate, before applying.
func (s *Session) Capture(target string) error {
	info, err := s.fs.Lstat(target)
	if err != nil {
		if os.IsNotExist(err) {
			s.entries = append(s.entries, entry{Target: target, Type: entryAbsent})
			return nil
		}
		return errors.Wrapf(err, errors.ErrBackupCapture, "inspecting %s", target)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		dest, err := s.fs.Readlink(target)
		if err != nil {
			return errors.Wrapf(err, errors.ErrBackupCapture, "reading link %s", target)
		}
		s.entries = append(s.entries, entry{Target: target, Type: entrySymlink, LinkDest: dest})
		return nil
	}

	savedAs := fmt.Sprintf("%03d-%s", len(s.entries), filepath.Base(target))
	saved := filepath.Join(s.dir, savedAs)
	if info.IsDir() {
		if err := copyDir(s.fs, target, saved); err != nil {
			return err
		}
		s.entries = append(s.entries, entry{Target: target, Type: entryDir, SavedAs: savedAs})
		return nil
	}

	data, err := s.fs.ReadFile(target)
	if err != nil {
		return errors.Wrapf(err, errors.ErrBackupCapture, "reading %s", target)
	}
	if err := s.fs.WriteFile(saved, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrBackupCapture, "saving %s", target)
	}
	s.entries = append(s.entries, entry{Target: target, Type: entryFile, SavedAs: savedAs})
	return nil
}

// Finalize marks the session's capture as a durable record after a
// successful apply.
func (s *Session) Finalize() error {
	s.finalized = true
	return s.writeManifest()
}

// Rollback restores every captured target to its pre-apply state, in
// reverse capture order. Individual restore failures are collected so
// one bad target does not strand the rest.
func (s *Session) Rollback() error {
	var failed []string
	for i := len(s.entries) - 1; i >= 0; i-- {
		if err := s.restore(s.entries[i]); err != nil {
			s.logger.Error().Err(err).Str("target", s.entries[i].Target).Msg("Restore failed")
			failed = append(failed, s.entries[i].Target)
		}
	}
	if err := s.writeManifest(); err != nil {
		s.logger.Warn().Err(err).Msg("Could not persist rollback manifest")
	}
	if len(failed) > 0 {
		return errors.Newf(errors.ErrBackupRestore,
			"rollback left %d target(s) unrestored: %s", len(failed), strings.Join(failed, ", "))
	}
	s.logger.Info().Int("targets", len(s.entries)).Msg("Rollback complete")
	return nil
}

func (s *Session) restore(e entry) error {
	// Clear whatever the failed apply left behind.
	if info, err := s.fs.Lstat(e.Target); err == nil {
		var rmErr error
		if info.IsDir() {
			rmErr = s.fs.RemoveAll(e.Target)
		} else {
			rmErr = s.fs.Remove(e.Target)
		}
		if rmErr != nil {
			return errors.Wrapf(rmErr, errors.ErrBackupRestore, "clearing %s", e.Target)
		}
	}

	switch e.Type {
	case entryAbsent:
		return nil
	case entrySymlink:
		if err := s.fs.MkdirAll(filepath.Dir(e.Target), 0755); err != nil {
			return errors.Wrapf(err, errors.ErrBackupRestore, "creating parent of %s", e.Target)
		}
		return s.fs.Symlink(e.LinkDest, e.Target)
	case entryDir:
		return copyDir(s.fs, filepath.Join(s.dir, e.SavedAs), e.Target)
	case entryFile:
		data, err := s.fs.ReadFile(filepath.Join(s.dir, e.SavedAs))
		if err != nil {
			return errors.Wrapf(err, errors.ErrBackupRestore, "reading saved copy of %s", e.Target)
		}
		if err := s.fs.MkdirAll(filepath.Dir(e.Target), 0755); err != nil {
			return errors.Wrapf(err, errors.ErrBackupRestore, "creating parent of %s", e.Target)
		}
		return s.fs.WriteFile(e.Target, data, 0644)
	default:
		return errors.Newf(errors.ErrBackupRestore, "unknown entry type %q", e.Type)
	}
}

func (s *Session) writeManifest() error {
	m := manifest{
		Root:      s.root,
		Label:     s.label,
		CreatedAt: s.createdAt,
		Finalized: s.finalized,
		Entries:   s.entries,
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return errors.Wrap(err, errors.ErrBackupCapture, "marshaling manifest")
	}
	return s.fs.WriteFile(filepath.Join(s.dir, "manifest.yaml"), data, 0644)
}

// Prune keeps the newest `keep` sessions under baseDir and removes
// the rest.
func Prune(fsys types.FS, baseDir string, keep int) error {
	if keep <= 0 {
		return nil
	}
	entries, err := fsys.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	type aged struct {
		name string
		mod  time.Time
	}
	var sessions []aged
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		sessions = append(sessions, aged{name: e.Name(), mod: info.ModTime()})
	}
	if len(sessions) <= keep {
		return nil
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].mod.After(sessions[j].mod) })
	for _, old := range sessions[keep:] {
		if err := fsys.RemoveAll(filepath.Join(baseDir, old.name)); err != nil {
			return err
		}
	}
	return nil
}

func copyDir(fsys types.FS, src, dst string) error {
	entries, err := fsys.ReadDir(src)
	if err != nil {
		return errors.Wrapf(err, errors.ErrBackupCapture, "reading %s", src)
	}
	if err := fsys.MkdirAll(dst, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrBackupCapture, "creating %s", dst)
	}
	for _, e := range entries {
		s := filepath.Join(src, e.Name())
		d := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := copyDir(fsys, s, d); err != nil {
				return err
			}
			continue
		}
		data, err := fsys.ReadFile(s)
		if err != nil {
			return errors.Wrapf(err, errors.ErrBackupCapture, "reading %s", s)
		}
		if err := fsys.WriteFile(d, data, 0644); err != nil {
			return errors.Wrapf(err, errors.ErrBackupCapture, "writing %s", d)
		}
	}
	return nil
}

func slug(path string) string {
	cleaned := strings.Trim(filepath.ToSlash(filepath.Clean(path)), "/")
	if cleaned == "" {
		return "root"
	}
	return strings.ReplaceAll(cleaned, "/", "-")
}
