package api

import (
	"errors"
	"net/http"

	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/validation"
)

// DefaultFitPadding is the world-space margin used when a fit request has no body
const DefaultFitPadding = 40

// handleInput applies one pointer event in screen pixels
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req validation.PointerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidatePointerRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	screen := geometry.V(req.X, req.Y)
	var resp InputResponse
	if !s.do(w, r, "input_"+req.Kind, func(e *engine.Engine) {
		switch req.Kind {
		case "press":
			if req.Hit == "" && req.HitTest {
				resp.Hit = e.PressAt(screen)
			} else {
				resp.Hit = req.Hit
				e.Press(screen, req.Hit)
			}
		case "move":
			e.Move(screen)
		case "release":
			e.Release()
		case "leave":
			e.Leave()
		case "wheel":
			e.Wheel(screen, req.DeltaY)
		case "resize":
			e.Resize(geometry.NewSurface(req.Width, req.Height))
		}
		resp.Mode = e.Mode().Name()
		resp.Selected, _ = e.Selected()
		resp.Viewport = e.Viewport()
		resp.Dragging, _ = e.Dragged()
	}) {
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	var resp SelectionResponse
	if !s.do(w, r, "get_selection", func(e *engine.Engine) {
		resp = selectionResponse(e)
	}) {
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handlePutSelection selects a node by id; an empty id clears the selection
func (s *Server) handlePutSelection(w http.ResponseWriter, r *http.Request) {
	var req validation.SelectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateSelectionRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		resp SelectionResponse
		err  error
	)
	if !s.do(w, r, "select", func(e *engine.Engine) {
		if req.ID == "" {
			e.ClearSelection()
		} else if err = e.Select(req.ID); err != nil {
			return
		}
		resp = selectionResponse(e)
	}) {
		return
	}
	if errors.Is(err, engine.ErrUnknownNode) {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteSelection(w http.ResponseWriter, r *http.Request) {
	var resp SelectionResponse
	if !s.do(w, r, "clear_selection", func(e *engine.Engine) {
		e.ClearSelection()
		resp = selectionResponse(e)
	}) {
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleFitView frames every node. The body is optional.
func (s *Server) handleFitView(w http.ResponseWriter, r *http.Request) {
	req := validation.ViewportRequest{Padding: DefaultFitPadding}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := validation.ValidateViewportRequest(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var vp geometry.Viewport
	if !s.do(w, r, "fit_view", func(e *engine.Engine) {
		e.FitView(req.Padding)
		vp = e.Viewport()
	}) {
		return
	}
	s.respondJSON(w, http.StatusOK, vp)
}

func (s *Server) handleResetView(w http.ResponseWriter, r *http.Request) {
	var vp geometry.Viewport
	if !s.do(w, r, "reset_view", func(e *engine.Engine) {
		e.ResetView()
		vp = e.Viewport()
	}) {
		return
	}
	s.respondJSON(w, http.StatusOK, vp)
}

func selectionResponse(e *engine.Engine) SelectionResponse {
	selected, _ := e.Selected()
	relevant := e.Relevant()
	if relevant == nil {
		relevant = []string{}
	}
	return SelectionResponse{Selected: selected, Relevant: relevant}
}
