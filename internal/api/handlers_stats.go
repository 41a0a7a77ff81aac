package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sites := s.sites.List()
	pages, issues := 0, 0
	for _, site := range sites {
		sum := site.Summary()
		pages += sum.Pages
		issues += sum.Errors + sum.Warnings
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"sites":       len(sites),
		"pages":       pages,
		"issues":      issues,
		"builds":      s.orchestrator.BuildStats(),
	})
}
