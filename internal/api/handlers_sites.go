package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dgallion1/docnav/internal/export"
	"github.com/dgallion1/docnav/internal/navtree"
	"github.com/dgallion1/docnav/internal/sitestore"
	"github.com/go-chi/chi/v5"
)

func (s *Server) site(w http.ResponseWriter, r *http.Request) (*sitestore.Site, bool) {
	site, ok := s.sites.Get(chi.URLParam(r, "siteID"))
	if !ok {
		jsonError(w, "site not found", http.StatusNotFound)
	}
	return site, ok
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	sites := s.sites.List()
	out := make([]sitestore.Summary, 0, len(sites))
	for _, site := range sites {
		out = append(out, site.Summary())
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"sites": out})
}

func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	site, ok := s.site(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(site.Summary())
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "siteID")
	if !s.sites.Delete(id) {
		jsonError(w, "site not found", http.StatusNotFound)
		return
	}
	s.log.Info("site deleted", "site_id", id)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted": id})
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	site, ok := s.site(w, r)
	if !ok {
		return
	}
	format := export.FormatJSON
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := export.ParseFormat(v)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		format = f
	}
	out, err := export.Marshal(site.Document, format)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if format == export.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Write(out)
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	s.writeScript(w, func() ([]byte, error) { return s.sites.Script(chi.URLParam(r, "siteID")) })
}

func (s *Server) handleIndexScript(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		jsonError(w, "invalid chunk number", http.StatusBadRequest)
		return
	}
	s.writeScript(w, func() ([]byte, error) { return s.sites.IndexScript(chi.URLParam(r, "siteID"), n) })
}

func (s *Server) writeScript(w http.ResponseWriter, render func() ([]byte, error)) {
	out, err := render()
	switch {
	case errors.Is(err, sitestore.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Write(out)
}

type crumb struct {
	Label string `json:"label"`
	Link  string `json:"link"`
}

func (s *Server) handleBreadcrumb(w http.ResponseWriter, r *http.Request) {
	site, ok := s.site(w, r)
	if !ok {
		return
	}
	url := r.URL.Query().Get("url")
	if url == "" {
		jsonError(w, "url query parameter is required", http.StatusBadRequest)
		return
	}
	tree := site.Document.Tree
	path, found := tree.PathTo(url)
	if !found {
		jsonError(w, "url not in navigation", http.StatusNotFound)
		return
	}
	crumbs := make([]crumb, 0, len(path)+1)
	for _, n := range tree.Breadcrumb(url) {
		crumbs = append(crumbs, crumb{Label: n.Label, Link: n.Link})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"url":    url,
		"path":   path,
		"crumbs": crumbs,
		"chunk":  site.Document.Index.Locate(url),
	})
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	site, ok := s.site(w, r)
	if !ok {
		return
	}
	issues := site.Issues
	if issues == nil {
		issues = []navtree.Issue{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"site_id":    site.ID,
		"has_errors": navtree.HasErrors(issues),
		"issues":     issues,
	})
}
