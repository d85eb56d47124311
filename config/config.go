package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/billziss-gh/golib/shlex"
	"github.com/mostlygeek/eventhandler/payload"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = payload.FormatJSON
	FormatCBOR = payload.FormatCBOR
)

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"serviceName"`
}

type ListenerConfig struct {
	Name string `yaml:"name"`
	Spec string `yaml:"spec"`
}

type PayloadConfig struct {
	Format string   `yaml:"format"`
	Files  []string `yaml:"files"`

	// set a _seq field on every object payload
	Stamp bool `yaml:"stamp"`
}

type Config struct {
	LogLevel      string           `yaml:"logLevel"`
	LogTimeFormat string           `yaml:"logTimeFormat"`
	Tracing       TracingConfig    `yaml:"tracing"`
	Listeners     []ListenerConfig `yaml:"listeners"` /* in subscription order */
	Payloads      PayloadConfig    `yaml:"payloads"`
}

// ListenerSpec is a parsed ListenerConfig.Spec
type ListenerSpec struct {
	Name       string
	Stop       bool
	Prevent    bool
	Remove     bool
	Log        bool
	Times      int // 0 means no limit
	MatchPath  string
	MatchValue string
}

func LoadConfig(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

func LoadConfigFromReader(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}

	// default configuration values
	config := Config{
		LogLevel:      "info",
		LogTimeFormat: "",
		Tracing: TracingConfig{
			Endpoint:    "localhost:4318",
			ServiceName: "event-replay",
		},
		Payloads: PayloadConfig{
			Format: FormatJSON,
		},
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return Config{}, err
	}

	switch config.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("logLevel must be one of debug, info, warn, error: %q", config.LogLevel)
	}

	config.Payloads.Format = strings.ToLower(config.Payloads.Format)
	if config.Payloads.Format != FormatJSON && config.Payloads.Format != FormatCBOR {
		return Config{}, fmt.Errorf("payloads.format must be %s or %s: %q", FormatJSON, FormatCBOR, config.Payloads.Format)
	}

	if config.Tracing.Enabled && config.Tracing.Endpoint == "" {
		return Config{}, fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}

	seen := make(map[string]bool, len(config.Listeners))
	for i, l := range config.Listeners {
		if strings.TrimSpace(l.Name) == "" {
			return Config{}, fmt.Errorf("listener #%d has no name", i+1)
		}
		if seen[l.Name] {
			return Config{}, fmt.Errorf("duplicate listener name: %s", l.Name)
		}
		seen[l.Name] = true

		if _, err := ParseListenerSpec(l.Name, l.Spec); err != nil {
			return Config{}, err
		}
	}

	return config, nil
}

// Specs parses every listener spec, in subscription order
func (c *Config) Specs() ([]ListenerSpec, error) {
	specs := make([]ListenerSpec, 0, len(c.Listeners))
	for _, l := range c.Listeners {
		spec, err := ParseListenerSpec(l.Name, l.Spec)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// ParseListenerSpec parses directives such as: stop prevent times=3 match=user.role=admin
func ParseListenerSpec(name, spec string) (ListenerSpec, error) {
	result := ListenerSpec{Name: name}

	for _, arg := range shlex.Posix.Split(StripComments(spec)) {
		key, value, hasValue := strings.Cut(arg, "=")
		switch key {
		case "stop":
			result.Stop = true
		case "prevent":
			result.Prevent = true
		case "remove":
			result.Remove = true
		case "once":
			result.Times = 1
		case "log":
			result.Log = true
		case "times":
			n, err := strconv.Atoi(value)
			if !hasValue || err != nil || n < 1 {
				return ListenerSpec{}, fmt.Errorf("listener %s: times must be a positive number: %q", name, arg)
			}
			result.Times = n
		case "match":
			path, want, _ := strings.Cut(value, "=")
			if !hasValue || path == "" {
				return ListenerSpec{}, fmt.Errorf("listener %s: match needs a path: %q", name, arg)
			}
			result.MatchPath = path
			result.MatchValue = want
		default:
			return ListenerSpec{}, fmt.Errorf("listener %s: unknown directive %q", name, arg)
		}
	}

	return result, nil
}

func StripComments(spec string) string {
	var cleanedLines []string
	for _, line := range strings.Split(spec, "\n") {
		trimmed := strings.TrimSpace(line)
		// Skip comment lines
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		cleanedLines = append(cleanedLines, line)
	}
	return strings.Join(cleanedLines, "\n")
}
