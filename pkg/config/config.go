package config

import (
	"errors"
	"os"
	"regexp"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/v2"

	"github.com/caelinsutch/agentlink/pkg/logging"
	"github.com/caelinsutch/agentlink/pkg/paths"
	"github.com/caelinsutch/agentlink/pkg/types"
)

// ExtendsSpec is the parsed `extends` key: either a blanket boolean
// or a per-resource behavior map with an optional default.
type ExtendsSpec struct {
	// All is set when `extends` was a bare boolean.
	All *bool
	// ByResource holds per-resource entries when `extends` was a map.
	ByResource map[string]ExtendBehavior
	// Default is the map's `default` entry, if present.
	Default *ExtendBehavior
}

// NodeConfig is the per-canonical-root configuration. The zero value
// is the empty config: every resource defaults to inherit, nothing is
// included or excluded.
type NodeConfig struct {
	Extends *ExtendsSpec
	// Include maps resource names to explicit item lists for the
	// compose behavior. A present-but-empty list is meaningful
	// ("include nothing from ancestors") and distinct from absence.
	Include map[string][]string
	// Exclude holds glob patterns matched against slash-normalized
	// paths relative to the contributing root.
	Exclude []string

	excludeRe []*regexp.Regexp
}

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Load reads the config file of a canonical root. A missing file, an
// empty file, or a file that fails to parse all yield the empty
// config; Load never fails.
func Load(fsys types.FS, root string) *NodeConfig {
	logger := logging.GetLogger("config.load")

	path := paths.ConfigPath(root)
	data, err := fsys.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debug().Err(err).Str("path", path).Msg("Config unreadable, using empty config")
		}
		return &NodeConfig{}
	}
	if strings.TrimSpace(string(data)) == "" {
		return &NodeConfig{}
	}

	k := koanf.New(".")
	if err := k.Load(&rawBytesProvider{bytes: data}, koanfyaml.Parser()); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Config failed to parse, using empty config")
		return &NodeConfig{}
	}

	cfg := &NodeConfig{}
	cfg.Exclude = k.Strings("exclude")
	cfg.Extends = parseExtends(k.Get("extends"))
	cfg.Include = parseInclude(k.Get("include"))
	return cfg
}

func parseExtends(raw interface{}) *ExtendsSpec {
	switch v := raw.(type) {
	case nil:
		return nil
	case bool:
		return &ExtendsSpec{All: &v}
	case map[string]interface{}:
		spec := &ExtendsSpec{ByResource: make(map[string]ExtendBehavior)}
		for key, val := range v {
			name, ok := val.(string)
			if !ok {
				continue
			}
			behavior, ok := ParseBehavior(name)
			if !ok {
				continue
			}
			if key == "default" {
				b := behavior
				spec.Default = &b
				continue
			}
			// Unknown resource names are dropped, like any other
			// malformed config content.
			if _, ok := types.ParseResourceKind(key); !ok {
				continue
			}
			spec.ByResource[key] = behavior
		}
		return spec
	default:
		return nil
	}
}

func parseInclude(raw interface{}) map[string][]string {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	include := make(map[string][]string)
	for key, val := range m {
		items, ok := val.([]interface{})
		if !ok {
			continue
		}
		list := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				list = append(list, s)
			}
		}
		include[key] = list
	}
	return include
}

// Behavior resolves the extend behavior for a resource. An undefined
// or `true` extends key means inherit; `false` means override; a map
// consults the resource entry, then the default, then inherit.
func (c *NodeConfig) Behavior(resource string) ExtendBehavior {
	if c == nil || c.Extends == nil {
		return BehaviorInherit
	}
	if c.Extends.All != nil {
		if *c.Extends.All {
			return BehaviorInherit
		}
		return BehaviorOverride
	}
	if b, ok := c.Extends.ByResource[resource]; ok {
		return b
	}
	if c.Extends.Default != nil {
		return *c.Extends.Default
	}
	return BehaviorInherit
}

// IncludeList returns the include list for a resource, or nil when
// `include` or the resource key is absent. An empty non-nil slice is
// a valid "include nothing from ancestors" instruction.
func (c *NodeConfig) IncludeList(resource string) []string {
	if c == nil || c.Include == nil {
		return nil
	}
	list, ok := c.Include[resource]
	if !ok {
		return nil
	}
	if list == nil {
		return []string{}
	}
	return list
}

// IsExcluded tests a root-relative path against every exclude glob.
// Separators are normalized to "/" and patterns are anchored at both
// ends.
func (c *NodeConfig) IsExcluded(relPath string) bool {
	if c == nil || len(c.Exclude) == 0 {
		return false
	}
	c.ensureCompiled()
	normalized := strings.ReplaceAll(relPath, "\\", "/")
	for _, re := range c.excludeRe {
		if re != nil && re.MatchString(normalized) {
			return true
		}
	}
	return false
}

func (c *NodeConfig) ensureCompiled() {
	if c.excludeRe != nil {
		return
	}
	c.excludeRe = make([]*regexp.Regexp, len(c.Exclude))
	for i, pattern := range c.Exclude {
		re, err := globToRegexp(pattern)
		if err != nil {
			continue
		}
		c.excludeRe[i] = re
	}
}

// globToRegexp translates the restricted glob grammar: `*` matches a
// run of non-separator characters, `**` matches across separators
// (including zero segments), everything else is literal.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); {
		if pattern[i] != '*' {
			b.WriteString(regexp.QuoteMeta(string(pattern[i])))
			i++
			continue
		}
		if i+1 < len(pattern) && pattern[i+1] == '*' {
			if i+2 < len(pattern) && pattern[i+2] == '/' {
				// "**/" may match zero segments
				b.WriteString(`(?:.*/)?`)
				i += 3
			} else {
				b.WriteString(`.*`)
				i += 2
			}
			continue
		}
		b.WriteString(`[^/]*`)
		i++
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
