package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (result push)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Capture
	mux.HandleFunc("/api/pages", s.app.CaptureHandler.CreatePageHandler)           // POST
	mux.HandleFunc("/api/session", s.app.CaptureHandler.SessionStatusHandler)      // GET
	mux.HandleFunc("/api/session/start", s.app.CaptureHandler.StartSessionHandler) // POST
	mux.HandleFunc("/api/session/stop", s.app.CaptureHandler.StopSessionHandler)   // POST

	// API routes - Results
	mux.HandleFunc("/api/results", s.app.ResultHandler.ListResultsHandler)          // GET
	mux.HandleFunc("/api/results/export", s.app.ResultHandler.ExportResultsHandler) // GET
	mux.HandleFunc("/api/report", s.app.ResultHandler.ReportHandler)                // GET ?format=

	// API routes - Extraction rules
	mux.HandleFunc("/api/rules", s.handleRulesRoute)                             // GET (list), POST (create)
	mux.HandleFunc("/api/rules/generate", s.app.RuleHandler.GenerateRuleHandler) // POST
	mux.HandleFunc("/api/rules/", s.handleRuleRoutes)                            // GET/PUT/DELETE /{id}

	// API routes - Settings
	mux.HandleFunc("/api/settings/prompt", s.handlePromptRoute) // GET/PUT/DELETE
	mux.HandleFunc("/api/settings/ai", s.handleAISettingsRoute) // GET/PUT

	// API routes - Queue
	mux.HandleFunc("/api/queue", s.app.QueueHandler.QueueStatusHandler) // GET
	mux.HandleFunc("/api/queue/drain", s.app.QueueHandler.DrainHandler) // POST

	// API routes - Data
	mux.HandleFunc("/api/data", s.app.DataHandler.ClearDataHandler) // DELETE

	// MCP (Model Context Protocol) endpoint
	mux.HandleFunc("/mcp", s.app.MCPHandler.HandleMCP)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.Handle("/metrics", s.app.Metrics.Handler())

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)
	mux.HandleFunc("/", s.handleRoot)

	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	s.app.APIHandler.HealthHandler(w, r)
}

func (s *Server) handleRulesRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r,
		s.app.RuleHandler.ListRulesHandler,
		s.app.RuleHandler.CreateRuleHandler,
	)
}

func (s *Server) handleRuleRoutes(w http.ResponseWriter, r *http.Request) {
	if strings.TrimPrefix(r.URL.Path, "/api/rules/") == "" {
		s.handleRulesRoute(w, r)
		return
	}
	RouteResourceItem(w, r,
		s.app.RuleHandler.GetRuleHandler,
		s.app.RuleHandler.UpdateRuleHandler,
		s.app.RuleHandler.DeleteRuleHandler,
	)
}

func (s *Server) handlePromptRoute(w http.ResponseWriter, r *http.Request) {
	RouteCRUD(w, r,
		s.app.SettingsHandler.GetPromptHandler,
		nil,
		s.app.SettingsHandler.SetPromptHandler,
		s.app.SettingsHandler.ResetPromptHandler,
	)
}

func (s *Server) handleAISettingsRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"GET": s.app.SettingsHandler.GetAISettingsHandler,
		"PUT": s.app.SettingsHandler.SetAISettingsHandler,
	})
}
