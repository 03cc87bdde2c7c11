package api

import (
	"net/http"

	"github.com/dgallion1/doctran/internal/pipeline"
)

func (s *Server) handleBackendStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil || s.limits == nil {
		jsonError(w, "backend stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"backends":    s.stats.Snapshot(),
		"rate_limits": s.limits.Stats(),
	})
}

// handleStages lists the registered variants of every stage and the default
// selection.
func (s *Server) handleStages(w http.ResponseWriter, r *http.Request) {
	reg := s.orchestrator.Registry()
	variants := make(map[string][]string, len(pipeline.StageNames))
	for _, stage := range pipeline.StageNames {
		variants[stage] = reg.Variants(stage)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"default":  s.pipeline,
		"variants": variants,
	})
}
