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
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/google/gridmodel/core/server"
	"github.com/google/gridmodel/datasources"
)

func newServeCmd(app *App) *cobra.Command {
	var (
		addr    string
		preload bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sources of --sources over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Sources == "" {
				return errors.New("serve requires --sources")
			}
			m := datasources.NewDefaultManager(app.logger)
			if err := m.LoadConfig(app.Sources); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if preload {
				if err := m.LoadAll(ctx); err != nil {
					return err
				}
			}
			if app.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			srv, err := server.NewServer(m, app.logger)
			if err != nil {
				return err
			}
			return serve(ctx, app, &http.Server{
				Addr:              addr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envOr("GRIDMODEL_ADDR", ":8080"), "Listen address")
	cmd.Flags().BoolVar(&preload, "preload", false, "Load every source before listening")
	return cmd
}

// serve runs hs until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, app *App, hs *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		app.logger.Info("listening", "addr", hs.Addr)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.logger.Info("shutting down")
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
