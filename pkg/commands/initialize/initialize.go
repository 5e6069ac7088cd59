// Package initialize scaffolds a new canonical tree in a directory:
// the marker dir, empty resource dirs, a commented config template,
// and a starter instructions file.
package initialize

import (
	"path/filepath"

	"github.com/caelinsutch/agentlink/pkg/errors"
	"github.com/caelinsutch/agentlink/pkg/logging"
	"github.com/caelinsutch/agentlink/pkg/paths"
	"github.com/caelinsutch/agentlink/pkg/types"
)

const configTemplate = `# Node configuration. Everything here is optional; a missing file
# means "inherit everything".
#
# extends:
#   commands: extend     # inherit | override | extend | compose
#   instructions: extend
#
# include:
#   commands:
#     - build.md
#     - deploy/
#
# exclude:
#   - "*.local.md"
#   - "drafts/**"
`

const starterInstructions = `# Project instructions

Describe how agents should work in this project.
`

type Options struct {
	FS  types.FS
	Dir string
}

type Result struct {
	Root string
	// Created lists the paths the scaffold wrote, for display.
	Created []string
	// AlreadyInitialized is set when the marker dir already existed;
	// nothing is overwritten in that case.
	AlreadyInitialized bool
}

// Run scaffolds Dir as a canonical tree root. Existing files are
// never overwritten.
func Run(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.initialize")
	defer logging.LogOperationStart(logger, "initialize")()

	marker := paths.MarkerPath(opts.Dir)
	result := &Result{Root: opts.Dir}

	if info, err := opts.FS.Stat(marker); err == nil && info.IsDir() {
		result.AlreadyInitialized = true
		return result, nil
	}

	for _, dir := range []string{
		marker,
		filepath.Join(marker, "commands"),
		filepath.Join(marker, "hooks"),
		filepath.Join(marker, "skills"),
	} {
		if err := opts.FS.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, errors.ErrDirCreate, "creating %s", dir)
		}
		result.Created = append(result.Created, dir)
	}

	cfgPath := filepath.Join(marker, paths.ConfigFileName)
	if err := opts.FS.WriteFile(cfgPath, []byte(configTemplate), 0644); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigWrite, "writing %s", cfgPath)
	}
	result.Created = append(result.Created, cfgPath)

	instrPath := filepath.Join(marker, paths.InstructionsDefaultName)
	if err := opts.FS.WriteFile(instrPath, []byte(starterInstructions), 0644); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigWrite, "writing %s", instrPath)
	}
	result.Created = append(result.Created, instrPath)

	logger.Info().Str("root", opts.Dir).Msg("Canonical tree initialized")
	return result, nil
}
