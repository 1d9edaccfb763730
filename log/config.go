package log

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
	"moul.io/zapfilter"
)

// Config describes per logger levels. Example:
//
//	defaultLevel: info
//	loggers:
//	  watcher.major: debug
//	  outbox: warn
type Config struct {
	DefaultLevel string            `yaml:"defaultLevel"`
	Loggers      map[string]string `yaml:"loggers"`
}

var allLevels = []Level{
	DebugLevel, InfoLevel, WarnLevel, ErrorLevel,
	zapcore.DPanicLevel, PanicLevel, FatalLevel,
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid log config: %w", err)
	}
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = "info"
	}
	return cfg, nil
}

// Rules converts the config into zapfilter rules.
// Loggers match by exact name and by name prefix ("outbox" matches "outbox.nats").
func (c *Config) Rules() (string, error) {
	def, err := ParseLevel(c.DefaultLevel)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(c.Loggers))
	for k := range c.Loggers {
		names = append(names, k)
	}
	sort.Strings(names)

	rules := []string{fmt.Sprintf("%s:*", levelNames(atLeast(def)))}
	for _, name := range names {
		lvl, err := ParseLevel(c.Loggers[name])
		if err != nil {
			return "", fmt.Errorf("logger %s: %w", name, err)
		}
		ns := fmt.Sprintf("%s,%s.*", name, name)
		switch {
		case lvl < def:
			rules = append(rules, fmt.Sprintf("%s:%s", levelNames(atLeast(lvl)), ns))
		case lvl > def:
			rules = append(rules, fmt.Sprintf("-%s:%s", levelNames(below(lvl)), ns))
		}
	}
	return strings.Join(rules, " "), nil
}

// ApplyConfig returns a logger filtering entries according to cfg.
// The level of l must be low enough to let the most verbose entries pass.
func ApplyConfig(l *Logger, cfg *Config) (*Logger, error) {
	rules, err := cfg.Rules()
	if err != nil {
		return nil, err
	}
	filter, err := zapfilter.ParseRules(rules)
	if err != nil {
		return nil, err
	}
	l.SetLevel(DebugLevel)
	return l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapfilter.NewFilteringCore(c, filter)
	})), nil
}

func atLeast(l Level) []Level {
	return slices.DeleteFunc(slices.Clone(allLevels), func(x Level) bool { return x < l })
}

func below(l Level) []Level {
	return slices.DeleteFunc(slices.Clone(allLevels), func(x Level) bool { return x >= l })
}

func levelNames(levels []Level) string {
	ret := make([]string, len(levels))
	for i, l := range levels {
		ret[i] = l.String()
	}
	return strings.Join(ret, ",")
}
