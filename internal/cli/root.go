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

// Package cli implements the gridmodel command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/google/gridmodel/core/logging"
	"github.com/google/gridmodel/datasources"
)

// App holds the persistent flags shared by every command.
type App struct {
	LogLevel  string
	LogFormat string
	Sources   string

	logger *slog.Logger
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// NewRootCmd builds the gridmodel command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "gridmodel",
		Short:        "Filter, group, aggregate and page tabular records",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Group a CSV file by region with a sum per group
  gridmodel render --file sales.csv --group-by region --agg sum:amount

  # Apply a YAML grid configuration to a named source
  gridmodel render --sources sources.yaml --source sales --config grid.yaml

  # Serve every source over HTTP
  gridmodel serve --sources sources.yaml --addr :8080
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(app.LogLevel)
		if err != nil {
			return err
		}
		var json bool
		switch app.LogFormat {
		case "text":
		case "json":
			json = true
		default:
			return fmt.Errorf("unknown log format %q (expected text or json)", app.LogFormat)
		}
		app.logger = logging.New(logging.Config{
			Level:   level,
			JSON:    json,
			Service: "gridmodel",
			Output:  cmd.ErrOrStderr(),
		})
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("GRIDMODEL_LOG_LEVEL", "warn"), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.LogFormat, "log-format", envOr("GRIDMODEL_LOG_FORMAT", "text"), "Log format (text|json)")
	cmd.PersistentFlags().StringVar(&app.Sources, "sources", envOr("GRIDMODEL_SOURCES", ""), "YAML file listing data sources")

	cmd.AddCommand(newRenderCmd(app))
	cmd.AddCommand(newSchemaCmd(app))
	cmd.AddCommand(newServeCmd(app))

	return cmd
}

// fileSourceName is the source registered for --file.
const fileSourceName = "file"

// sourceFlags select the records a command works on: a named source from
// --sources, or a single file.
type sourceFlags struct {
	source  string
	file    string
	typ     string
	idField string
	table   string
	query   string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.source, "source", "", "Source name from --sources")
	cmd.Flags().StringVar(&f.file, "file", "", "Data file (.csv, .json or SQLite database); textproto sources need --sources")
	cmd.Flags().StringVar(&f.typ, "type", "", "Source type of --file (default: from extension)")
	cmd.Flags().StringVar(&f.idField, "id-field", "", "Identity field of --file records (default \"id\")")
	cmd.Flags().StringVar(&f.table, "table", "", "SQLite table to read")
	cmd.Flags().StringVar(&f.query, "query", "", "SQLite query to run")
}

// manager builds a manager holding the selected source and returns its name.
func (f *sourceFlags) manager(app *App) (*datasources.Manager, string, error) {
	m := datasources.NewDefaultManager(app.logger)
	if app.Sources != "" {
		if err := m.LoadConfig(app.Sources); err != nil {
			return nil, "", err
		}
	}

	switch {
	case f.file != "" && f.source != "":
		return nil, "", fmt.Errorf("--file and --source are exclusive")
	case f.file != "":
		typ := f.typ
		if typ == "" {
			typ = typeFromExt(f.file)
		}
		src := &datasources.Source{
			Name:    fileSourceName,
			Type:    typ,
			IDField: f.idField,
			Config:  map[string]string{"file_path": f.file},
		}
		if typ == "sqlite" {
			src.Config = map[string]string{"db_path": f.file, "table": f.table, "query": f.query}
		}
		m.AddSource(src)
		return m, fileSourceName, nil
	case f.source != "":
		return m, f.source, nil
	}
	names := m.SourceNames()
	if len(names) == 1 {
		return m, names[0], nil
	}
	return nil, "", fmt.Errorf("select records with --file or --source (available: %s)", strings.Join(names, ", "))
}

func typeFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite"
	}
	return "csv"
}
