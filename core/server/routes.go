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

package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/google/gridmodel/core/rendering"
)

// RegisterRoutes registers the pull API under rg:
//
//	GET  /sources/:source/length          display row count
//	GET  /sources/:source/rows?from=&to=  display rows [from, to)
//	GET  /sources/:source/ascii           display rows as an ASCII table
//	GET  /sources/:source/paging          paging state
//	PUT  /sources/:source/paging          change page size or number
//	POST /sources/:source/groups/collapse collapse one or all groups
//	POST /sources/:source/groups/expand   expand one or all groups
//	POST /sources/:source/reload          drop the view and cached records
func (s *Server) RegisterRoutes(rg *gin.RouterGroup) {
	src := rg.Group("/sources/:source")
	src.GET("/length", s.HandleLength)
	src.GET("/rows", s.HandleRows)
	src.GET("/ascii", s.HandleASCII)
	src.GET("/paging", s.HandleGetPaging)
	src.PUT("/paging", s.HandleSetPaging)
	src.POST("/groups/collapse", s.HandleCollapse)
	src.POST("/groups/expand", s.HandleExpand)
	src.POST("/reload", s.HandleReload)
}

// Router returns an engine serving the pull API under /api, the HTML grid
// at /grid, Prometheus metrics at /metrics and a health check at /healthz.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.GET("/healthz", s.HandleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/grid", s.HandleGrid)
	s.RegisterRoutes(r.Group("/api"))
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// HandleASCII renders the live view with the source's columns.
func (s *Server) HandleASCII(c *gin.Context) {
	s.withView(c, func(v *sourceView) {
		out := rendering.ToASCII(v.dv, rendering.Options{Columns: v.columns, Levels: v.levels})
		c.String(http.StatusOK, out)
	})
}

// HandleReload forgets a source's view and records.
func (s *Server) HandleReload(c *gin.Context) {
	name := c.Param("source")
	if s.manager.Source(name) == nil {
		s.fail(c, http.StatusNotFound, "SOURCE_NOT_FOUND", errSourceNotFound(name))
		return
	}
	s.Reset(name)
	c.Status(http.StatusNoContent)
}
