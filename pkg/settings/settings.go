// Package settings loads application-level settings (as opposed to
// per-node config.yaml files) from layered sources: built-in defaults,
// an optional config.toml under the XDG config dir, then AGENTLINK_*
// environment variables.
package settings

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/caelinsutch/agentlink/pkg/errors"
	"github.com/caelinsutch/agentlink/pkg/logging"
)

// Settings holds tunables that apply across commands.
type Settings struct {
	Watch  WatchSettings  `koanf:"watch"`
	Backup BackupSettings `koanf:"backup"`
	Link   LinkSettings   `koanf:"link"`
}

type WatchSettings struct {
	Debounce time.Duration `koanf:"debounce"`
}

type BackupSettings struct {
	Retention int `koanf:"retention"`
}

type LinkSettings struct {
	Clients []string `koanf:"clients"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"watch.debounce":   "500ms",
		"backup.retention": 10,
		"link.clients":     []string{},
	}
}

// ConfigFilePath is where the optional settings file lives.
func ConfigFilePath() string {
	return filepath.Join(xdg.ConfigHome, "agentlink", "config.toml")
}

// Load builds Settings from defaults, the config file (if present),
// and environment overrides, in that order of precedence.
func Load() (*Settings, error) {
	logger := logging.GetLogger("settings")
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "loading default settings")
	}

	path := ConfigFilePath()
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "parsing %s", path)
		}
		logger.Debug().Str("path", path).Msg("Loaded settings file")
	}

	if err := k.Load(env.Provider("AGENTLINK_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "AGENTLINK_")), "_", ".")
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "loading settings from environment")
	}

	var st Settings
	if err := k.UnmarshalWithConf("", &st, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &st,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				stringToSliceHook(),
			),
		},
	}); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "decoding settings")
	}

	if st.Watch.Debounce <= 0 {
		st.Watch.Debounce = 500 * time.Millisecond
	}
	if st.Backup.Retention <= 0 {
		st.Backup.Retention = 10
	}
	return &st, nil
}

// stringToSliceHook lets AGENTLINK_LINK_CLIENTS="claude,codex" decode
// into a string slice.
func stringToSliceHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Slice {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
}
