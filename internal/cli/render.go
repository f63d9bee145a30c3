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

package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/google/gridmodel/core/config"
	"github.com/google/gridmodel/core/dataview"
	"github.com/google/gridmodel/core/rendering"
)

type renderFlags struct {
	sourceFlags

	config      string
	filter      string
	groupBy     []string
	aggs        []string
	sort        string
	collapse    []string
	collapseAll bool
	pageSize    int
	page        int
	columns     []string
	maxWidth    int
}

func newRenderCmd(app *App) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the display rows of a source as an ASCII table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, app, f)
		},
	}
	f.sourceFlags.register(cmd)
	cmd.Flags().StringVar(&f.config, "config", "", "YAML grid configuration (default: the grid of --source)")
	cmd.Flags().StringVar(&f.filter, "filter", "", "Filter expression, e.g. \"amount > 5 and region != 'west'\"")
	cmd.Flags().StringSliceVar(&f.groupBy, "group-by", nil, "Grouping fields, outermost first (replaces configured grouping)")
	cmd.Flags().StringSliceVar(&f.aggs, "agg", nil, "Aggregators of the top level as type:field, e.g. sum:amount")
	cmd.Flags().StringVar(&f.sort, "sort", "", "Sort field; prefix with - for descending")
	cmd.Flags().StringArrayVar(&f.collapse, "collapse", nil, "Grouping key to collapse (repeatable)")
	cmd.Flags().BoolVar(&f.collapseAll, "collapse-all", false, "Collapse every group")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "Records per page (0 shows all)")
	cmd.Flags().IntVar(&f.page, "page", 0, "Zero-based page number")
	cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "Columns to print (default: all)")
	cmd.Flags().IntVar(&f.maxWidth, "max-width", 0, "Truncate cells to this width (0: unlimited)")
	return cmd
}

// gridConfig loads path and lays the command line flags over it.
func (f *renderFlags) gridConfig(cmd *cobra.Command, path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("filter") {
		cfg.Filter = f.filter
	}
	if len(f.groupBy) > 0 {
		cfg.Grouping = nil
		cfg.Collapsed = nil
		for _, field := range f.groupBy {
			cfg.Grouping = append(cfg.Grouping, config.GroupConfig{Field: field})
		}
	}
	if len(f.aggs) > 0 {
		if len(cfg.Grouping) == 0 {
			return cfg, errors.New("--agg requires grouping (--group-by or --config)")
		}
		for _, a := range f.aggs {
			typ, field, _ := strings.Cut(a, ":")
			cfg.Grouping[0].Aggregators = append(cfg.Grouping[0].Aggregators, config.AggregatorConfig{Type: typ, Field: field})
		}
	}
	if f.sort != "" {
		cfg.Sort = &config.SortConfig{
			Field:      strings.TrimPrefix(f.sort, "-"),
			Descending: strings.HasPrefix(f.sort, "-"),
		}
	}
	cfg.Collapsed = append(cfg.Collapsed, f.collapse...)
	if flags.Changed("page-size") {
		cfg.PageSize = f.pageSize
	}
	if flags.Changed("page") {
		cfg.PageNum = f.page
	}
	return cfg, cfg.Validate()
}

func runRender(cmd *cobra.Command, app *App, f *renderFlags) error {
	m, name, err := f.sourceFlags.manager(app)
	if err != nil {
		return err
	}
	path := f.config
	if path == "" {
		path = m.GridPath(name)
	}
	cfg, err := f.gridConfig(cmd, path)
	if err != nil {
		return err
	}
	ds, err := m.LoadData(cmd.Context(), name)
	if err != nil {
		return err
	}

	idField := ds.Source.IDField
	if idField == "" {
		idField = cfg.IDField
	}
	dv := dataview.New(dataview.WithLogger(app.logger))
	if err := dv.SetItems(slices.Clone(ds.Records), idField); err != nil {
		return err
	}
	if err := cfg.Apply(dv); err != nil {
		return err
	}
	if f.collapseAll {
		dv.CollapseAllGroups(dataview.AllLevels)
	}

	columns := f.columns
	if len(columns) == 0 {
		columns = ds.Columns()
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, rendering.ToASCII(dv, rendering.Options{
		Columns:      columns,
		Levels:       len(cfg.Grouping),
		MaxCellWidth: f.maxWidth,
	}))
	if info := dv.PagingInfo(); info.PageSize > 0 {
		fmt.Fprintf(out, "Page %d of %d (%d rows)\n", info.PageNum+1, info.TotalPages, info.TotalRows)
	}
	return nil
}
