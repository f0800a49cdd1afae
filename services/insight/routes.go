// Copyright (C) 2025 RavenStack (engineering@ravenstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package insight

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all insight routes with the router.
//
// Description:
//
//	Registers all /v1/insight/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Endpoints:
//
//	POST /v1/insight/ask - Resolve an analytics question and render its view
//	POST /v1/insight/query - Synthesize a warehouse query and execute it
//	POST /v1/insight/chat - Rule-based assistant conversation
//	GET  /v1/insight/examples - Example questions the system can answer
//	GET  /v1/insight/schema - Queryable column listing
//	GET  /v1/insight/health - Health check
//	GET  /v1/insight/ready - Readiness check (warehouse reachable)
//
// Example:
//
//	service, _ := insight.New(ctx, cfg, wh, store, logger)
//	handlers := insight.NewHandlers(service, logger)
//
//	v1 := router.Group("/v1")
//	insight.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	insight := rg.Group("/insight")
	{
		insight.POST("/ask", handlers.HandleAsk)
		insight.POST("/query", handlers.HandleQuery)
		insight.POST("/chat", handlers.HandleChat)

		insight.GET("/examples", handlers.HandleExamples)
		insight.GET("/schema", handlers.HandleSchema)

		// Health checks
		insight.GET("/health", handlers.HandleHealth)
		insight.GET("/ready", handlers.HandleReady)
	}
}
