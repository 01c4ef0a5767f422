package api

import (
	"net/http"

	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"github.com/dd0wney/cluso-threatgraph/pkg/validation"
	"github.com/dd0wney/cluso-threatgraph/pkg/visualization"
)

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	var resp GraphResponse
	if !s.do(w, r, "get_graph", func(e *engine.Engine) {
		set := e.Graph()
		resp = GraphResponse{Nodes: set.Nodes, Edges: set.Edges}
	}) {
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handlePutGraph replaces the simulated node/edge set. Surviving nodes keep
// their positions; new nodes are seeded.
func (s *Server) handlePutGraph(w http.ResponseWriter, r *http.Request) {
	var req validation.GraphRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateGraphRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	nodes, edges := req.ToGraph()
	var result visualization.ReconcileResult
	if !s.do(w, r, "set_graph", func(e *engine.Engine) {
		result = e.SetGraph(nodes, edges)
	}) {
		return
	}

	s.logger.Info("graph replaced",
		logging.Int("nodes", len(nodes)),
		logging.Int("edges", len(edges)),
		logging.Int("added", len(result.Added)),
		logging.Int("removed", len(result.Removed)),
		logging.Int("dropped_edges", len(result.DroppedEdges)))
	s.respondJSON(w, http.StatusOK, result)
}
