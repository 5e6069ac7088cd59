package config

import (
	"gopkg.in/yaml.v3"

	"github.com/caelinsutch/agentlink/pkg/errors"
	"github.com/caelinsutch/agentlink/pkg/paths"
	"github.com/caelinsutch/agentlink/pkg/types"
)

// Write serializes a config back to the root's config file. Writing
// then loading reproduces equivalent extends/include/exclude values.
func Write(fsys types.FS, root string, cfg *NodeConfig) error {
	doc := make(map[string]interface{})

	if cfg.Extends != nil {
		if cfg.Extends.All != nil {
			doc["extends"] = *cfg.Extends.All
		} else {
			extends := make(map[string]string)
			for resource, behavior := range cfg.Extends.ByResource {
				extends[resource] = behavior.String()
			}
			if cfg.Extends.Default != nil {
				extends["default"] = cfg.Extends.Default.String()
			}
			if len(extends) > 0 {
				doc["extends"] = extends
			}
		}
	}
	if len(cfg.Include) > 0 {
		doc["include"] = cfg.Include
	}
	if len(cfg.Exclude) > 0 {
		doc["exclude"] = cfg.Exclude
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigWrite, "marshaling config for %s", root)
	}
	if err := fsys.WriteFile(paths.ConfigPath(root), data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrConfigWrite, "writing config for %s", root)
	}
	return nil
}
