package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/intrntsrfr/warden/logger"
	"github.com/tailscale/hujson"
)

var ErrPathNotFound = errors.New("config path not found")

// Store owns the configuration document. The syntax tree keeps comments so
// edits can be written back without reformatting the file.
type Store struct {
	mu   sync.RWMutex
	path string
	tree hujson.Value
	cfg  Config
	env  Env
	log  *logger.Logger
}

// Load reads and validates the document at path.
func Load(path string, log *logger.Logger) (*Store, error) {
	s := &Store{
		path: path,
		log:  log,
	}

	tree, err := readTree(path)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(tree, s.env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s.tree = tree
	s.cfg = cfg
	s.log.LogEvent(logger.Event{
		Category:    logger.CategoryConfig,
		Location:    "config.Load",
		Description: fmt.Sprintf("loaded %s with %d module entries", path, len(cfg.Modules)),
	}, logger.VerbosityInfo)
	return s, nil
}

func readTree(path string) (hujson.Value, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return hujson.Value{}, fmt.Errorf("read config: %w", err)
	}
	tree, err := hujson.Parse(raw)
	if err != nil {
		return hujson.Value{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return tree, nil
}

func decode(tree hujson.Value, e Env) (Config, error) {
	std := tree.Clone()
	std.Standardize()

	var cfg Config
	if err := json.Unmarshal(std.Pack(), &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyEnv(e)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv layers environment overrides over the typed view.
func (s *Store) ApplyEnv(e Env) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = e
	s.cfg.applyEnv(e)
}

func (s *Store) Path() string {
	return s.path
}

// Config returns a copy of the typed configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.clone()
}

// ModuleEnabled reports the enabled flag of a module entry, and whether the
// entry exists at all.
func (s *Store) ModuleEnabled(name string) (enabled bool, ok bool) {
	var mc ModuleConfig
	ok, err := s.DecodeModule(name, &mc)
	if !ok || err != nil {
		return false, ok
	}
	return mc.Enabled, true
}

// DecodeModule decodes the options of a module entry into v.
func (s *Store) DecodeModule(name string, v any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.cfg.Modules[name]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("module %q: %w", name, err)
	}
	return true, nil
}

// Lookup returns the JSON value stored at path.
func (s *Store) Lookup(path []string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := s.tree.Find(pointer(path))
	if len(path) == 0 || found == nil {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, strings.Join(path, "."))
	}
	v := found.Clone()
	v.Standardize()
	return json.RawMessage(bytes.TrimSpace(v.Pack())), nil
}

// EditOption replaces the value at path, in memory and in the backing file.
// Nothing is changed when any segment of path is missing. Edits are
// serialized; the memory and file writes are still two separate steps, so a
// failed file write leaves the new value in memory only.
func (s *Store) EditOption(path []string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc := strings.Join(path, ".")
	if len(path) == 0 || s.tree.Find(pointer(path)) == nil {
		s.log.LogEvent(logger.Event{
			Category:    logger.CategoryConfig,
			Location:    "config.EditOption",
			Description: fmt.Sprintf("option %q does not exist", loc),
		}, logger.VerbosityError)
		return fmt.Errorf("%w: %s", ErrPathNotFound, loc)
	}

	next := s.tree.Clone()
	if err := setPath(&next, path, value); err != nil {
		return err
	}
	cfg, err := decode(next, s.env)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", loc, err)
	}
	s.tree = next
	s.cfg = cfg

	if err := s.persist(path, value); err != nil {
		s.log.LogEvent(logger.Event{
			Category:    logger.CategoryConfig,
			Location:    "config.EditOption",
			Description: fmt.Sprintf("failed to write %q to %s: %v", loc, s.path, err),
		}, logger.VerbosityError)
		return fmt.Errorf("persist %s: %w", loc, err)
	}

	s.log.LogEvent(logger.Event{
		Category:    logger.CategoryConfig,
		Location:    "config.EditOption",
		Description: fmt.Sprintf("set %q", loc),
	}, logger.VerbosityInfo)
	return nil
}

// persist re-reads the file, patches the single value and writes it back
// through a temporary file in the same directory.
func (s *Store) persist(path []string, value any) error {
	tree, err := readTree(s.path)
	if err != nil {
		return err
	}
	if tree.Find(pointer(path)) == nil {
		return fmt.Errorf("%w in %s", ErrPathNotFound, s.path)
	}
	if err := setPath(&tree, path, value); err != nil {
		return err
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(tree.Pack()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(info.Mode()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// setPath replaces the value at path inside tree. Every segment must
// already exist.
func setPath(tree *hujson.Value, path []string, value any) error {
	patch, err := json.Marshal([]map[string]any{{
		"op":    "replace",
		"path":  pointer(path),
		"value": value,
	}})
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	return tree.Patch(patch)
}

// ParsePath splits a dotted option path such as modules.warn.threshold.
func ParsePath(dotted string) ([]string, error) {
	dotted = strings.TrimSpace(dotted)
	if dotted == "" {
		return nil, errors.New("empty path")
	}
	parts := strings.Split(dotted, ".")
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("empty segment at position %d in %q", i, dotted)
		}
	}
	return parts, nil
}

// ParseValue keeps valid JSON as is and treats anything else as a string,
// so `true` sets a boolean and `!` sets a prefix.
func ParseValue(raw string) any {
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	return raw
}

func pointer(path []string) string {
	var b strings.Builder
	for _, seg := range path {
		b.WriteByte('/')
		seg = strings.ReplaceAll(seg, "~", "~0")
		b.WriteString(strings.ReplaceAll(seg, "/", "~1"))
	}
	return b.String()
}
