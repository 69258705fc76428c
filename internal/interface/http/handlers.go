package http

import (
	"net/http"

	"github.com/classhub/classbot/internal/infrastructure/scheduler"
	tgbot "github.com/classhub/classbot/internal/interface/telegram"
)

// RootBody is what the keep-alive endpoint answers.
const RootBody = "Bot is running"

// ══════════════════════════════════════════════════════════════════════════════
// KEEP-ALIVE & HEALTH
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot answers uptime pings.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(RootBody))
}

// handleHealth runs the registered health checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"healthy": true,
			"uptime":  s.Uptime().String(),
		})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleLive reports that the process is up without touching dependencies.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS
// ══════════════════════════════════════════════════════════════════════════════

// StatsResponse is the body of /stats.
type StatsResponse struct {
	Uptime string               `json:"uptime"`
	Bot    *tgbot.StatsSnapshot `json:"bot,omitempty"`
	Jobs   []scheduler.JobInfo  `json:"jobs,omitempty"`
}

// handleStats reports the update pipeline counters and scheduled jobs.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Uptime: s.Uptime().String()}
	if s.deps.Bot != nil {
		resp.Bot = s.deps.Bot.Stats()
	}
	if s.deps.Jobs != nil {
		resp.Jobs = s.deps.Jobs.ListJobs()
	}
	writeJSON(w, http.StatusOK, resp)
}
