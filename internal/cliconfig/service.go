// Package cliconfig backs the config and doctor commands.
package cliconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KafClaw/commander/internal/config"
)

// segment is one step of a dotted config path: a key, or an array index.
type segment struct {
	key   string
	index int // -1 for keys
}

// secretKeys are masked by Get unless reveal is set.
var secretKeys = map[string]bool{
	"apiKey":        true,
	"youtubeApiKey": true,
	"authToken":     true,
	"botToken":      true,
}

// Get returns the effective value at path, after env overrides, with
// secrets masked unless reveal is true. An empty path returns the whole
// configuration.
func Get(path string, reveal bool) (any, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	doc, err := toDocument(cfg)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		if reveal {
			return doc, nil
		}
		return mask("", doc), nil
	}
	segs, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	val, ok := lookup(doc, segs)
	if !ok {
		return nil, fmt.Errorf("path not found: %s", path)
	}
	if !reveal {
		val = mask(lastKey(segs), val)
	}
	return val, nil
}

// Set writes a value at path into the config file. rawValue is parsed as
// JSON when possible, otherwise stored as a string.
func Set(path, rawValue string) error {
	return editFile(path, func(doc map[string]any, segs []segment) (map[string]any, error) {
		out, ok := assign(doc, segs, parseValue(rawValue)).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid config root after set")
		}
		return out, nil
	})
}

// Unset removes the value at path from the config file.
func Unset(path string) error {
	return editFile(path, func(doc map[string]any, segs []segment) (map[string]any, error) {
		out, removed := remove(doc, segs)
		if !removed {
			return nil, fmt.Errorf("path not found: %s", path)
		}
		m, ok := out.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid config root after unset")
		}
		return m, nil
	})
}

func editFile(path string, edit func(map[string]any, []segment) (map[string]any, error)) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}
	cfgPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	doc, err := readDocument(cfgPath)
	if err != nil {
		return err
	}
	doc, err = edit(doc, segs)
	if err != nil {
		return err
	}
	if err := validateDocument(doc); err != nil {
		return fmt.Errorf("invalid value for %s: %w", path, err)
	}
	return writeDocument(cfgPath, doc)
}

// validateDocument rejects edits config.Load could not parse.
func validateDocument(doc map[string]any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, config.DefaultConfig())
}

func toDocument(cfg *config.Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func readDocument(cfgPath string) (map[string]any, error) {
	data, err := os.ReadFile(cfgPath)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", cfgPath, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func writeDocument(cfgPath string, doc map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(cfgPath, data, 0o600)
}

// parsePath splits "sinks.kafka.brokers" or "media.defaultSongs[1]".
func parsePath(path string) ([]segment, error) {
	s := strings.TrimSpace(path)
	var out []segment
	for _, part := range strings.Split(s, ".") {
		key, rest, _ := strings.Cut(part, "[")
		if key = strings.TrimSpace(key); key != "" {
			out = append(out, segment{key: key, index: -1})
		}
		for rest != "" {
			raw, after, ok := strings.Cut(rest, "]")
			if !ok {
				return nil, fmt.Errorf("invalid path: missing closing ] in %q", path)
			}
			idx, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("invalid array index %q in %q", raw, path)
			}
			out = append(out, segment{index: idx})
			rest = strings.TrimPrefix(after, "[")
			if after != "" && !strings.HasPrefix(after, "[") {
				return nil, fmt.Errorf("invalid path: unexpected %q in %q", after, path)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("path is empty")
	}
	return out, nil
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func lookup(node any, segs []segment) (any, bool) {
	for _, seg := range segs {
		switch n := node.(type) {
		case map[string]any:
			if seg.index >= 0 {
				return nil, false
			}
			next, ok := n[seg.key]
			if !ok {
				return nil, false
			}
			node = next
		case []any:
			if seg.index < 0 || seg.index >= len(n) {
				return nil, false
			}
			node = n[seg.index]
		default:
			return nil, false
		}
	}
	return node, true
}

// assign sets value at segs below node, creating intermediate objects and
// growing arrays as needed, and returns the updated node.
func assign(node any, segs []segment, value any) any {
	if len(segs) == 0 {
		return value
	}
	seg, rest := segs[0], segs[1:]
	if seg.index >= 0 {
		arr, _ := node.([]any)
		for len(arr) <= seg.index {
			arr = append(arr, nil)
		}
		arr[seg.index] = assign(arr[seg.index], rest, value)
		return arr
	}
	obj, ok := node.(map[string]any)
	if !ok {
		obj = map[string]any{}
	}
	obj[seg.key] = assign(obj[seg.key], rest, value)
	return obj
}

// remove deletes the value at segs below node. It reports whether anything
// was removed.
func remove(node any, segs []segment) (any, bool) {
	seg, rest := segs[0], segs[1:]
	switch n := node.(type) {
	case map[string]any:
		child, ok := n[seg.key]
		if seg.index >= 0 || !ok {
			return node, false
		}
		if len(rest) == 0 {
			delete(n, seg.key)
			return n, true
		}
		updated, removed := remove(child, rest)
		n[seg.key] = updated
		return n, removed
	case []any:
		if seg.index < 0 || seg.index >= len(n) {
			return node, false
		}
		if len(rest) == 0 {
			return append(n[:seg.index], n[seg.index+1:]...), true
		}
		updated, removed := remove(n[seg.index], rest)
		n[seg.index] = updated
		return n, removed
	}
	return node, false
}

func lastKey(segs []segment) string {
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i].index < 0 {
			return segs[i].key
		}
	}
	return ""
}

// mask hides secret strings, recursing into objects.
func mask(key string, val any) any {
	switch v := val.(type) {
	case string:
		if secretKeys[key] && v != "" {
			return MaskSecret(v)
		}
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = mask(k, child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = mask(key, child)
		}
		return out
	}
	return val
}

// MaskSecret keeps the last four characters of s.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
