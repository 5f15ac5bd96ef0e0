// Package seed pre-populates a SettingsStore from a YAML file.
//
//	settings:
//	  maxScrolls: 20
//	  scrollSettleDelay: 2s
//	configs:
//	  - domain: example.com
//	    container: {selector: "#comments"}
//	    item: {selector: ".comment"}
//	    fields:
//	      - {name: username, rule: {selector: ".author"}}
//	      - {name: content, rule: {selector: ".body"}}
//
// Keys absent from the settings block keep the store's current value.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"comment-extractor/internal/application/port/output"
	"comment-extractor/internal/domain/entity"

	"gopkg.in/yaml.v3"
)

// ErrEmptySeed is returned when the file has neither settings nor configs.
var ErrEmptySeed = errors.New("seed file has no settings or configs")

// File is the decoded seed. Settings stays a raw node so it can be decoded
// on top of existing values.
type File struct {
	Settings yaml.Node                 `yaml:"settings"`
	Configs  []entity.ExtractionConfig `yaml:"configs"`
}

func (f *File) hasSettings() bool {
	return f.Settings.Kind != 0
}

// Parse decodes seed YAML.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if !f.hasSettings() && len(f.Configs) == 0 {
		return nil, ErrEmptySeed
	}
	return &f, nil
}

// Load reads and parses a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return Parse(data)
}

// Result reports what Apply wrote.
type Result struct {
	SettingsApplied bool
	Configs         int
	Rejected        []string
}

// Apply writes the seed into store. Invalid configs are logged and skipped;
// a settings block that does not decode aborts.
func Apply(ctx context.Context, store output.SettingsStore, f *File, log output.LoggerPort) (Result, error) {
	var res Result

	if f.hasSettings() {
		base, err := store.GetSettings(ctx)
		if err != nil {
			return res, fmt.Errorf("load current settings: %w", err)
		}
		if err := f.Settings.Decode(&base); err != nil {
			return res, fmt.Errorf("decode seed settings: %w", err)
		}
		if err := store.SaveSettings(ctx, base.WithDefaults()); err != nil {
			return res, err
		}
		res.SettingsApplied = true
	}

	for i := range f.Configs {
		cfg := &f.Configs[i]
		if err := store.SaveConfig(ctx, cfg); err != nil {
			log.Warn("seed config rejected", "domain", cfg.Domain, "error", err)
			res.Rejected = append(res.Rejected, cfg.Domain)
			continue
		}
		res.Configs++
	}

	log.Info("seed applied", "settings", res.SettingsApplied, "configs", res.Configs, "rejected", len(res.Rejected))
	return res, nil
}
