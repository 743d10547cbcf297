// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present The onda-go Authors.

// Package config implements onda-go's typed configuration tree (spec.md
// §6): a YAML document parsed into a nested group -> key -> value map,
// exposed through typed accessors that enforce presence and type the way
// the original OM monitor's MonitorParams.get_param did.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/slaclab/onda-go/internal/errs"
)

// Recognized top-level groups (spec.md §6).
const (
	GroupDataRetrieval   = "data_retrieval_layer"
	GroupProcessing      = "processing_layer"
	GroupParallelization = "parallelization_layer"
	GroupLogging         = "logging"
)

// lcls extra kinds (spec.md §6).
const (
	LCLSAcqirisWaveform     = "acqiris_waveform"
	LCLSEpicsPV             = "epics_pv"
	LCLSWave8TotalIntensity = "wave8_total_intensity"
)

var validLCLSKinds = map[string]bool{
	LCLSAcqirisWaveform:     true,
	LCLSEpicsPV:             true,
	LCLSWave8TotalIntensity: true,
}

// LCLSExtraEntry is one [kind, identifier, name] triple from
// data_retrieval_layer.lcls_extra.
type LCLSExtraEntry struct {
	Kind       string
	Identifier string
	Name       string
}

// Config is a read-only, nested configuration tree. It is safe to share
// across actors after startup (spec.md §5: "Configuration is read-only
// after startup and may be freely shared").
type Config struct {
	v *viper.Viper
}

// Load reads a YAML document from path and parses it into a Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, &errs.ConfigError{Cause: fmt.Errorf("reading %s: %w", path, err)}
	}
	return &Config{v: v}, nil
}

// BindPFlags lets CLI flags override YAML values, matching the teacher's
// config/CLI precedence chain (flags win over file values).
func (c *Config) BindPFlags(flags *pflag.FlagSet) error {
	return c.v.BindPFlagSet(flags)
}

// HasGroup reports whether a top-level group is present at all.
func (c *Config) HasGroup(group string) bool {
	return c.v.IsSet(group)
}

// Get retrieves a typed, optionally required parameter from a group. It
// mirrors the original get_param(group, parameter, parameter_type,
// required) contract:
//
//   - group absent: ConfigError, regardless of required.
//   - required and key absent: ConfigError.
//   - key absent and not required: zero value, ok=false, no error.
//   - key present but not assignable to T: ConfigError.
func Get[T any](c *Config, group, key string, required bool) (value T, ok bool, err error) {
	if !c.v.IsSet(group) {
		return value, false, &errs.ConfigError{Group: group, Key: key, Cause: errors.New("parameter group is not in the configuration file")}
	}
	fullKey := group + "." + key
	if !c.v.IsSet(fullKey) {
		if required {
			return value, false, &errs.ConfigError{Group: group, Key: key, Cause: errors.New("required parameter was not found")}
		}
		return value, false, nil
	}
	raw := c.v.Get(fullKey)
	coerced, convErr := coerce[T](raw)
	if convErr != nil {
		return value, false, &errs.ConfigError{Group: group, Key: key, Cause: convErr}
	}
	return coerced, true, nil
}

// coerce adapts the loose typing YAML/viper produce (ints sometimes arrive
// as int, int64, or float64) to the statically requested type T.
func coerce[T any](raw interface{}) (T, error) {
	var zero T
	if v, ok := raw.(T); ok {
		return v, nil
	}
	switch any(zero).(type) {
	case int:
		switch n := raw.(type) {
		case int64:
			return any(int(n)).(T), nil
		case float64:
			if n == float64(int(n)) {
				return any(int(n)).(T), nil
			}
		}
	case float64:
		switch n := raw.(type) {
		case int:
			return any(float64(n)).(T), nil
		case int64:
			return any(float64(n)).(T), nil
		}
	}
	return zero, fmt.Errorf("wrong type: want %T, is %T", zero, raw)
}

// NumFramesToProcess returns data_retrieval_layer.num_frames_in_event_to_process.
// A nil/absent value means "process all frames" (ok=false).
func (c *Config) NumFramesToProcess() (int, bool, error) {
	return Get[int](c, GroupDataRetrieval, "num_frames_in_event_to_process", false)
}

// SourceIdentifier returns the configured EventSource plugin name.
func (c *Config) SourceIdentifier() (string, error) {
	v, _, err := Get[string](c, GroupDataRetrieval, "source_identifier", true)
	return v, err
}

// Source returns the opaque data-retrieval source string (a file-list path
// for offline sources, a calibration/run identifier for online ones).
func (c *Config) Source() (string, error) {
	v, _, err := Get[string](c, GroupDataRetrieval, "source", true)
	return v, err
}

// RequiredData returns the list of source names the DataExtractor must run.
func (c *Config) RequiredData() ([]string, error) {
	if !c.v.IsSet(GroupDataRetrieval) {
		return nil, &errs.ConfigError{Group: GroupDataRetrieval, Key: "required_data", Cause: errors.New("parameter group is not in the configuration file")}
	}
	var out []string
	if err := c.v.UnmarshalKey(GroupDataRetrieval+".required_data", &out); err != nil {
		return nil, &errs.ConfigError{Group: GroupDataRetrieval, Key: "required_data", Cause: err}
	}
	return out, nil
}

// LCLSExtra returns the data_retrieval_layer.lcls_extra triples, validating
// each entry's kind against the closed set (spec.md §6). viper's flat key
// addressing does not model heterogeneous triples cleanly, so this reads
// the raw node back out as YAML and decodes it directly.
func (c *Config) LCLSExtra() ([]LCLSExtraEntry, error) {
	fullKey := GroupDataRetrieval + ".lcls_extra"
	if !c.v.IsSet(fullKey) {
		return nil, nil
	}
	raw := c.v.Get(fullKey)
	b, err := yaml.Marshal(raw)
	if err != nil {
		return nil, &errs.ConfigError{Group: GroupDataRetrieval, Key: "lcls_extra", Cause: err}
	}
	var rows [][]string
	if err := yaml.Unmarshal(b, &rows); err != nil {
		return nil, &errs.ConfigError{Group: GroupDataRetrieval, Key: "lcls_extra", Cause: err}
	}
	entries := make([]LCLSExtraEntry, 0, len(rows))
	for _, row := range rows {
		if len(row) != 3 {
			return nil, &errs.ConfigError{Group: GroupDataRetrieval, Key: "lcls_extra", Cause: fmt.Errorf("entry %v: expected [kind, identifier, name]", row)}
		}
		if !validLCLSKinds[row[0]] {
			return nil, &errs.ConfigError{Group: GroupDataRetrieval, Key: "lcls_extra", Cause: fmt.Errorf("unknown kind %q", row[0])}
		}
		entries = append(entries, LCLSExtraEntry{Kind: row[0], Identifier: row[1], Name: row[2]})
	}
	return entries, nil
}

// PoolSizeHint returns parallelization_layer's suggested pool size, if any.
func (c *Config) PoolSizeHint() (int, bool, error) {
	return Get[int](c, GroupParallelization, "pool_size", false)
}
