package preset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
)

// Builtin tool names.
const (
	ToolClaudeCode = "ClaudeCode"
	ToolCodex      = "Codex"
	ToolAider      = "Aider"
	ToolCline      = "Cline"
	ToolCustom     = "Custom"
)

const reloadDebounce = 250 * time.Millisecond

var ErrUnknownTool = errors.New("unknown tool")

// Preset is how to launch one tool. Custom has no command.
type Preset struct {
	Tool    string            `yaml:"tool" json:"tool"`
	Label   string            `yaml:"label" json:"label"`
	Command string            `yaml:"command" json:"command"`
	Args    []string          `yaml:"args" json:"args"`
	Env     map[string]string `yaml:"env" json:"envVars,omitempty"`
}

type file struct {
	Presets []Preset `yaml:"presets"`
}

// Builtins returns the presets available without a file.
func Builtins() []Preset {
	return []Preset{
		{Tool: ToolClaudeCode, Label: "Claude Code", Command: "claude", Args: []string{}},
		{Tool: ToolCodex, Label: "Codex", Command: "codex", Args: []string{}},
		{Tool: ToolAider, Label: "Aider", Command: "aider", Args: []string{}},
		{Tool: ToolCline, Label: "Cline", Command: "cline", Args: []string{}},
		{Tool: ToolCustom, Label: "Custom", Command: "", Args: []string{}},
	}
}

// Catalog holds the current presets. It is safe for concurrent use.
type Catalog struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	presets []Preset
}

// NewCatalog builds a catalog from the builtins and, when path is set, the
// file at path. A missing file is not an error; a malformed one is.
func NewCatalog(path string, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{path: path, logger: logger, presets: Builtins()}
	if path == "" {
		return c, nil
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the preset file. On error the current presets are kept.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		c.logger.Info("Preset file not found, using builtins", zap.String("path", c.path))
		c.set(Builtins())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read presets %s: %w", c.path, err)
	}

	presets, err := Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse presets %s: %w", c.path, err)
	}
	c.set(merge(Builtins(), presets))
	c.logger.Info("Presets loaded", zap.String("path", c.path), zap.Int("count", len(presets)))
	return nil
}

// Parse decodes a preset file. Unknown keys are rejected so typos surface.
func Parse(data []byte) ([]Preset, error) {
	var f file
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.DisallowUnknownField()); err != nil {
		return nil, err
	}
	for i, p := range f.Presets {
		if strings.TrimSpace(p.Tool) == "" {
			return nil, fmt.Errorf("preset %d: tool is required", i)
		}
		if p.Args == nil {
			f.Presets[i].Args = []string{}
		}
	}
	return f.Presets, nil
}

// Lookup finds a preset by tool name, ignoring case.
func (c *Catalog) Lookup(tool string) (Preset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, p := range c.presets {
		if strings.EqualFold(p.Tool, tool) {
			return clonePreset(p), true
		}
	}
	return Preset{}, false
}

// All returns the presets in display order.
func (c *Catalog) All() []Preset {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Preset, len(c.presets))
	for i, p := range c.presets {
		out[i] = clonePreset(p)
	}
	return out
}

// Watch reloads the file whenever it changes, until ctx is done. The parent
// directory is watched because editors often replace the file rather than
// write it in place.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.path == "" {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create preset watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(c.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	name := filepath.Clean(c.path)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				if err := c.Reload(); err != nil {
					c.logger.Warn("Failed to reload presets", zap.Error(err))
				}
			})

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("Preset watcher error", zap.Error(err))
		}
	}
}

func (c *Catalog) set(presets []Preset) {
	c.mu.Lock()
	c.presets = presets
	c.mu.Unlock()
}

// merge overrides base entries by tool name and appends new tools.
func merge(base, overrides []Preset) []Preset {
	out := append([]Preset(nil), base...)
	for _, o := range overrides {
		replaced := false
		for i := range out {
			if strings.EqualFold(out[i].Tool, o.Tool) {
				if o.Label == "" {
					o.Label = out[i].Label
				}
				out[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			if o.Label == "" {
				o.Label = o.Tool
			}
			out = append(out, o)
		}
	}
	return out
}

func clonePreset(p Preset) Preset {
	p.Args = append([]string{}, p.Args...)
	if p.Env != nil {
		env := make(map[string]string, len(p.Env))
		for k, v := range p.Env {
			env[k] = v
		}
		p.Env = env
	}
	return p
}
