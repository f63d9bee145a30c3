/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The Gridmodel Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads a YAML description of a grid (identity field,
// filter, sort, grouping levels with aggregators, paging and initially
// collapsed groups) and applies it to a DataView.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/google/gridmodel/core/aggregates"
	"github.com/google/gridmodel/core/dataview"
	"github.com/google/gridmodel/core/expr"
	"github.com/google/gridmodel/core/grouping"
	"github.com/google/gridmodel/core/logging"
	"github.com/google/gridmodel/core/paging"
)

// Config describes one grid.
type Config struct {
	IDField  string        `yaml:"id_field"`
	PageSize int           `yaml:"page_size"`
	PageNum  int           `yaml:"page_num"`
	Filter   string        `yaml:"filter"`
	Sort     *SortConfig   `yaml:"sort"`
	Grouping []GroupConfig `yaml:"grouping"`
	// Collapsed lists grouping keys collapsed after loading, e.g. "a:|:x".
	Collapsed []string      `yaml:"collapsed"`
	Logging   LoggingConfig `yaml:"logging"`
}

// SortConfig orders records by one field.
type SortConfig struct {
	Field      string `yaml:"field"`
	Descending bool   `yaml:"descending"`
}

// GroupConfig describes one grouping level. Either Field or Expr is set.
type GroupConfig struct {
	Field string `yaml:"field"`
	// Expr computes the group value, e.g. "round(price / 10) * 10".
	Expr                 string             `yaml:"expr"`
	Predefined           []any              `yaml:"predefined"`
	Collapsed            bool               `yaml:"collapsed"`
	DisplayTotalsRow     *bool              `yaml:"display_totals_row"`
	AggregateCollapsed   bool               `yaml:"aggregate_collapsed"`
	AggregateEmpty       bool               `yaml:"aggregate_empty"`
	AggregateChildGroups bool               `yaml:"aggregate_child_groups"`
	LazyTotals           bool               `yaml:"lazy_totals"`
	Aggregators          []AggregatorConfig `yaml:"aggregators"`
}

// AggregatorConfig names an aggregate type and the field it reads.
type AggregatorConfig struct {
	Type  string `yaml:"type"`
	Field string `yaml:"field"`
}

// LoggingConfig configures the logger of the CLI and server.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		IDField: "id",
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML file on top of Default and applies environment
// overrides. An empty path loads only the defaults and overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("GRIDMODEL_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRIDMODEL_PAGE_SIZE: %w", err)
		}
		cfg.PageSize = n
	}
	if v := os.Getenv("GRIDMODEL_FILTER"); v != "" {
		cfg.Filter = v
	}
	if v := os.Getenv("GRIDMODEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration without touching any DataView.
func (c Config) Validate() error {
	var errs []error
	if c.PageSize < 0 {
		errs = append(errs, fmt.Errorf("page_size must be >= 0, got %d", c.PageSize))
	}
	if c.PageNum < 0 {
		errs = append(errs, fmt.Errorf("page_num must be >= 0, got %d", c.PageNum))
	}
	if c.Filter != "" {
		if _, err := expr.Compile(c.Filter); err != nil {
			errs = append(errs, fmt.Errorf("filter: %w", err))
		}
	}
	if c.Sort != nil && c.Sort.Field == "" {
		errs = append(errs, errors.New("sort.field is required"))
	}
	for i, g := range c.Grouping {
		if g.Field == "" && g.Expr == "" {
			errs = append(errs, fmt.Errorf("grouping[%d]: field or expr is required", i))
		}
		if g.Expr != "" {
			if _, err := expr.Compile(g.Expr); err != nil {
				errs = append(errs, fmt.Errorf("grouping[%d].expr: %w", i, err))
			}
		}
		for j, a := range g.Aggregators {
			if _, err := aggregates.ParseAggregateType(a.Type); err != nil {
				errs = append(errs, fmt.Errorf("grouping[%d].aggregators[%d]: %w", i, j, err))
			}
		}
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	return errors.Join(errs...)
}

// Specs builds the grouping levels.
func (c Config) Specs() ([]*grouping.Spec, error) {
	specs := make([]*grouping.Spec, 0, len(c.Grouping))
	for i, g := range c.Grouping {
		spec := grouping.NewSpec(g.Field)
		if g.Expr != "" {
			getter, err := grouping.ExprGetter(g.Expr)
			if err != nil {
				return nil, fmt.Errorf("grouping[%d]: %w", i, err)
			}
			spec.Getter = getter
			if spec.Field == "" {
				spec.Field = g.Expr
			}
		}
		spec.PredefinedValues = g.Predefined
		spec.Collapsed = g.Collapsed
		if g.DisplayTotalsRow != nil {
			spec.DisplayTotalsRow = *g.DisplayTotalsRow
		}
		spec.AggregateCollapsed = g.AggregateCollapsed
		spec.AggregateEmpty = g.AggregateEmpty
		spec.AggregateChildGroups = g.AggregateChildGroups
		spec.LazyTotalsCalculation = g.LazyTotals
		for _, a := range g.Aggregators {
			t, err := aggregates.ParseAggregateType(a.Type)
			if err != nil {
				return nil, fmt.Errorf("grouping[%d]: %w", i, err)
			}
			spec.Aggregators = append(spec.Aggregators, aggregates.New(t, a.Field))
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Apply configures dv, normally after its records were loaded with
// c.IDField. Everything but the page number is applied in one refresh.
func (c Config) Apply(dv *dataview.DataView) error {
	specs, err := c.Specs()
	if err != nil {
		return err
	}

	dv.BeginUpdate()
	defer dv.EndUpdate()

	if err := dv.SetFilterExpression(c.Filter); err != nil {
		return err
	}
	if c.Sort != nil {
		dv.SortByField(c.Sort.Field, !c.Sort.Descending)
	}
	dv.SetGrouping(specs...)
	for _, key := range c.Collapsed {
		dv.CollapseGroup(key)
	}
	size, num := c.PageSize, c.PageNum
	dv.SetPagingOptions(paging.Options{PageSize: &size})
	// The page number is clamped against the row count, which is only known
	// after the size took effect.
	dv.EndUpdate()
	dv.BeginUpdate()
	dv.SetPagingOptions(paging.Options{PageNum: &num})
	return nil
}

// LogConfig converts the logging section for logging.New.
func (c Config) LogConfig(service string) (logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.Config{}, err
	}
	return logging.Config{Level: level, JSON: c.Logging.JSON, Service: service}, nil
}
