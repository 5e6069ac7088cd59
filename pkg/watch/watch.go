// Package watch runs a foreground daemon that observes every node of
// the inheritance chain and re-runs the sync pipeline when relevant
// files change. Rebuilds are debounced and single-flight: a burst of
// events collapses into one run, and events arriving mid-run schedule
// exactly one follow-up run.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/caelinsutch/agentlink/pkg/errors"
	"github.com/caelinsutch/agentlink/pkg/logging"
	"github.com/caelinsutch/agentlink/pkg/paths"
)

// RebuildFunc runs one full sync pass. The context is canceled when
// the daemon shuts down.
type RebuildFunc func(ctx context.Context) error

type runState int

const (
	stateIdle runState = iota
	stateRunning
	stateRunningPending
)

// Daemon debounces filesystem events from chain nodes into rebuilds.
type Daemon struct {
	roots    []string
	debounce time.Duration
	rebuild  RebuildFunc
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger

	mu     sync.Mutex
	state  runState
	timer  *time.Timer
	closed bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New prepares a daemon watching the given chain node roots. It fails
// only if no node can be watched at all; individual unwatchable nodes
// are logged and skipped.
func New(roots []string, debounce time.Duration, rebuild RebuildFunc) (*Daemon, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrWatchSetup, "creating filesystem watcher")
	}

	d := &Daemon{
		roots:    roots,
		debounce: debounce,
		rebuild:  rebuild,
		watcher:  watcher,
		logger:   logging.GetLogger("watch.daemon"),
		done:     make(chan struct{}),
	}

	watched := 0
	for _, root := range roots {
		n, err := d.addNode(root)
		if err != nil {
			d.logger.Warn().Err(err).Str("root", root).Msg("Skipping unwatchable chain node")
			continue
		}
		watched += n
	}
	if watched == 0 {
		watcher.Close()
		return nil, errors.New(errors.ErrWatchSetup, "no chain node could be watched")
	}

	d.logger.Info().Int("nodes", len(roots)).Int("dirs", watched).Msg("Watching chain")
	return d, nil
}

// addNode registers watches for one canonical root: the root itself
// (instructions file and config.yaml live there) and each resource
// dir with its named subdirectories. The transient merged/ subtree is
// never watched.
func (d *Daemon) addNode(root string) (int, error) {
	count := 0
	add := func(dir string) {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return
		}
		if err := d.watcher.Add(dir); err != nil {
			d.logger.Debug().Err(err).Str("dir", dir).Msg("Could not watch directory")
			return
		}
		count++
	}

	add(root)
	for _, sub := range []string{"commands", "hooks", "skills"} {
		dir := filepath.Join(root, sub)
		add(dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				add(filepath.Join(dir, e.Name()))
			}
		}
	}

	if count == 0 {
		return 0, errors.Newf(errors.ErrWatchSetup, "nothing watchable under %s", root)
	}
	return count, nil
}

// Run processes events until ctx is canceled or Close is called.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()
	defer cancel()
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-d.watcher.Events:
			if !ok {
				return nil
			}
			d.handleEvent(ctx, event)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// handleEvent filters for relevant paths and arms the debounce timer.
func (d *Daemon) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !relevant(event.Name) {
		return
	}
	d.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("Change detected")

	// New skill or resource directories need their own watch.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := d.watcher.Add(event.Name); err != nil {
				d.logger.Debug().Err(err).Str("dir", event.Name).Msg("Could not watch new directory")
			}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, func() { d.fire(ctx) })
}

// fire runs when the debounce window closes with no further events.
func (d *Daemon) fire(ctx context.Context) {
	d.mu.Lock()
	switch d.state {
	case stateIdle:
		d.state = stateRunning
		d.mu.Unlock()
		go d.runRebuild(ctx)
	case stateRunning:
		d.state = stateRunningPending
		d.mu.Unlock()
	case stateRunningPending:
		d.mu.Unlock()
	}
}

func (d *Daemon) runRebuild(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			d.mu.Lock()
			d.state = stateIdle
			d.mu.Unlock()
			return
		}

		start := time.Now()
		if err := d.rebuild(ctx); err != nil {
			d.logger.Error().Err(err).Msg("Rebuild failed")
		} else {
			d.logger.Info().Dur("took", time.Since(start)).Msg("Rebuild complete")
		}

		d.mu.Lock()
		if d.state == stateRunningPending {
			d.state = stateRunning
			d.mu.Unlock()
			continue
		}
		d.state = stateIdle
		d.mu.Unlock()
		return
	}
}

// relevant reports whether a changed path can affect projection:
// instructions files, node config, or anything under a resource dir —
// excluding the transient merged/ subtree, whose churn is our own.
func relevant(path string) bool {
	norm := filepath.ToSlash(path)
	if strings.Contains(norm, "/"+paths.MarkerDirName+"/"+paths.MergedDirName+"/") ||
		strings.HasSuffix(norm, "/"+paths.MarkerDirName+"/"+paths.MergedDirName) {
		return false
	}

	base := filepath.Base(path)
	switch base {
	case paths.InstructionsPriorityName, paths.InstructionsDefaultName, paths.ConfigFileName:
		return true
	}

	marker := "/" + paths.MarkerDirName + "/"
	idx := strings.LastIndex(norm, marker)
	if idx < 0 {
		return false
	}
	rel := norm[idx+len(marker):]
	for _, sub := range []string{"commands/", "hooks/", "skills/"} {
		if strings.HasPrefix(rel, sub) {
			return true
		}
	}
	return false
}

// Close stops the daemon and waits for Run to return. Safe to call
// more than once.
func (d *Daemon) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	cancel := d.cancel
	d.mu.Unlock()

	err := d.watcher.Close()
	if cancel != nil {
		cancel()
		<-d.done
	}
	return err
}
