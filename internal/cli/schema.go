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
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSchemaCmd(app *App) *cobra.Command {
	f := &sourceFlags{}
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the columns and inferred types of a source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, name, err := f.manager(app)
			if err != nil {
				return err
			}
			ds, err := m.LoadData(cmd.Context(), name)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COLUMN\tTYPE")
			for _, col := range ds.Schema.Columns {
				fmt.Fprintf(w, "%s\t%s\n", col.Name, col.Type)
			}
			fmt.Fprintf(w, "\n%d records\n", len(ds.Records))
			return w.Flush()
		},
	}
	f.register(cmd)
	return cmd
}
