// Package platforms contains pluggable publisher configs (YAML/JSON) and the
// per-publisher edition discovery adapters.
package platforms

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Platform is one publisher entry declared in the platforms file.
type Platform struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Type           string         `json:"type" yaml:"type"`
	BaseURL        string         `json:"base_url" yaml:"base_url"`
	Section        string         `json:"section" yaml:"section"`
	PaperCode      string         `json:"paper_code" yaml:"paper_code"`
	Enabled        *bool          `json:"enabled" yaml:"enabled"`
	UpdateDays     []string       `json:"update_days" yaml:"update_days"`
	RequestDelayMs int            `json:"request_delay_ms" yaml:"request_delay_ms"`
	MaxPages       int            `json:"max_pages" yaml:"max_pages"`
	Config         map[string]any `json:"config" yaml:"config"`
}

type registryFile struct {
	Platforms []Platform `json:"platforms" yaml:"platforms"`
}

// Registry materializes platform definitions loaded from config files.
type Registry struct {
	mu        sync.RWMutex
	platforms []Platform
	idx       map[string]Platform
}

// LoadRegistry loads the platforms registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("platforms file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open platforms file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read platforms file: %w", err)
	}

	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(reg.Platforms) == 0 {
		return nil, errors.New("platforms file contains no platforms entries")
	}
	return NewRegistry(reg.Platforms)
}

// NewRegistry validates entries and indexes them by id, keeping file order.
func NewRegistry(entries []Platform) (*Registry, error) {
	reg := &Registry{
		platforms: make([]Platform, 0, len(entries)),
		idx:       make(map[string]Platform, len(entries)),
	}
	for i := range entries {
		p := sanitizePlatform(entries[i])
		if err := validatePlatform(p); err != nil {
			return nil, fmt.Errorf("platform[%d]: %w", i, err)
		}
		if _, exists := reg.idx[p.ID]; exists {
			return nil, fmt.Errorf("duplicate platform id %q", p.ID)
		}
		reg.platforms = append(reg.platforms, p)
		reg.idx[p.ID] = p
	}
	return reg, nil
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("platforms file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s platforms: %w", name, err)
	}
	return reg, nil
}

func sanitizePlatform(p Platform) Platform {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	p.Section = strings.Trim(strings.TrimSpace(p.Section), "/")
	p.PaperCode = strings.Trim(strings.TrimSpace(p.PaperCode), "/")

	if p.Config == nil {
		p.Config = map[string]any{}
	}
	if p.Enabled == nil {
		def := true
		p.Enabled = &def
	}
	if p.RequestDelayMs < 0 {
		p.RequestDelayMs = 0
	}
	if p.MaxPages < 0 {
		p.MaxPages = 0
	}
	return p
}

func validatePlatform(p Platform) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required for platform %q", p.ID)
	}
	if p.Type == "" {
		return fmt.Errorf("type is required for platform %q", p.ID)
	}
	if p.BaseURL == "" {
		return fmt.Errorf("base_url is required for platform %q", p.ID)
	}
	if _, err := parseWeekdays(p.UpdateDays); err != nil {
		return fmt.Errorf("platform %q: %w", p.ID, err)
	}
	return nil
}

// ByID returns the platform entry for the given id.
func (r *Registry) ByID(id string) (Platform, bool) {
	if r == nil {
		return Platform{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Platform{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.idx[id]
	return p, ok
}

// All returns a copy of every configured platform, in file order.
func (r *Registry) All() []Platform {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Platform, len(r.platforms))
	copy(out, r.platforms)
	return out
}

// Enabled returns platforms that are enabled.
func (r *Registry) Enabled() []Platform {
	all := r.All()
	out := make([]Platform, 0, len(all))
	for _, p := range all {
		if p.EnabledValue() {
			out = append(out, p)
		}
	}
	return out
}

// EnabledValue returns enabled flag defaulting to true.
func (p Platform) EnabledValue() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// RequestDelay returns the minimum spacing between requests to the platform.
func (p Platform) RequestDelay() time.Duration {
	if p.RequestDelayMs <= 0 {
		return 0
	}
	return time.Duration(p.RequestDelayMs) * time.Millisecond
}
