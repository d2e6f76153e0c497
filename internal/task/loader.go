package task

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pagewatch/pagewatch/internal/logger"
)

// Loader reads task definitions from a directory. Two file forms are
// supported: one ".conf" key=value file per task, and ".yaml"/".yml" files
// holding a list of tasks. Malformed files are skipped individually with a
// logged reason and never abort the batch.
type Loader struct {
	dir    string
	logger *logger.Logger
}

// NewLoader creates a loader for the given tasks directory.
func NewLoader(dir string, log *logger.Logger) *Loader {
	return &Loader{dir: dir, logger: log}
}

// yamlTask mirrors Definition for yaml batch files.
type yamlTask struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Tags     string `yaml:"tags"`
	Model    string `yaml:"model"`
	Prompt   string `yaml:"prompt"`
	APIURL   string `yaml:"api_url"`
	Schedule string `yaml:"schedule"`
	Format   string `yaml:"format"`
}

// Load reads every definition file in the directory and returns the valid
// definitions sorted by name. A missing directory is an error; an empty one
// is not.
func (l *Loader) Load() ([]Definition, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks directory %s: %w", l.dir, err)
	}

	var defs []Definition
	seen := make(map[string]string) // task name -> source file

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(l.dir, entry.Name())
		var loaded []Definition
		var loadErr error

		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".conf":
			var def Definition
			def, loadErr = l.loadConf(path)
			if loadErr == nil {
				loaded = []Definition{def}
			}
		case ".yaml", ".yml":
			loaded, loadErr = l.loadYAML(path)
		default:
			continue
		}

		if loadErr != nil {
			l.logger.Warn("skipping task definition file",
				logger.Field{Key: "file", Value: entry.Name()},
				logger.Field{Key: "reason", Value: loadErr.Error()})
			continue
		}

		for _, def := range loaded {
			if prev, dup := seen[def.Name]; dup {
				l.logger.Warn("skipping duplicate task name",
					logger.Field{Key: "task", Value: def.Name},
					logger.Field{Key: "file", Value: entry.Name()},
					logger.Field{Key: "first_seen_in", Value: prev})
				continue
			}
			seen[def.Name] = entry.Name()
			defs = append(defs, def)
		}
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// LoadFile reads the definitions from a single file, regardless of the
// loader's directory. Unlike Load, a malformed file is an error here; the
// caller asked for this file specifically.
func (l *Loader) LoadFile(path string) ([]Definition, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".conf":
		def, err := l.loadConf(path)
		if err != nil {
			return nil, err
		}
		return []Definition{def}, nil
	case ".yaml", ".yml":
		return l.loadYAML(path)
	default:
		return nil, fmt.Errorf("unsupported task file extension: %s", path)
	}
}

// loadConf parses a single key=value definition file. Lines starting with
// "#" and blank lines are ignored. The task name defaults to the file name
// without extension.
func (l *Loader) loadConf(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to read file: %w", err)
	}

	base := filepath.Base(path)
	def := Definition{
		Name:   strings.TrimSuffix(base, filepath.Ext(base)),
		Format: FormatText,
	}

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return Definition{}, fmt.Errorf("line %d: expected key=value, got %q", i+1, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"`)

		switch strings.ToLower(key) {
		case "name":
			def.Name = value
		case "url":
			def.URL = value
		case "tags":
			def.Tags = value
		case "model":
			def.Model = value
		case "prompt":
			def.Prompt = value
		case "api_url":
			def.APIURL = value
		case "schedule":
			def.Schedule = value
		case "format":
			def.Format = Format(strings.ToLower(value))
		default:
			return Definition{}, fmt.Errorf("line %d: unknown key %q", i+1, key)
		}
	}

	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// loadYAML parses a yaml batch file holding a list of task definitions.
// Invalid entries within a valid file are skipped with a logged reason.
func (l *Loader) loadYAML(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var raw struct {
		Tasks []yamlTask `yaml:"tasks"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	defs := make([]Definition, 0, len(raw.Tasks))
	for _, yt := range raw.Tasks {
		def := Definition{
			Name:     yt.Name,
			URL:      yt.URL,
			Tags:     yt.Tags,
			Model:    yt.Model,
			Prompt:   yt.Prompt,
			APIURL:   yt.APIURL,
			Schedule: yt.Schedule,
			Format:   Format(strings.ToLower(yt.Format)),
		}
		if def.Format == "" {
			def.Format = FormatText
		}
		if err := def.Validate(); err != nil {
			l.logger.Warn("skipping invalid task entry",
				logger.Field{Key: "file", Value: filepath.Base(path)},
				logger.Field{Key: "reason", Value: err.Error()})
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}
