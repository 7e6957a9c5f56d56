package server

import (
	"errors"
	"maps"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rastermill/rastermill/pkg/dataflow"
	"github.com/rastermill/rastermill/pkg/engine"
	apperrors "github.com/rastermill/rastermill/pkg/errors"
	"github.com/rastermill/rastermill/pkg/httputil"
	"github.com/rastermill/rastermill/pkg/layerstore"
	"github.com/rastermill/rastermill/pkg/tilegrid"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.engine.Status())
}

// handleRun dispatches a pass and returns without waiting for it; the
// client polls /api/status for completion.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	s.engine.Run()
	httputil.WriteJSON(w, http.StatusAccepted, s.engine.Status())
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := apperrors.ValidateMode(req.Mode); err != nil {
		writeError(w, err)
		return
	}
	s.engine.SetMode(engine.Mode(req.Mode))
	httputil.WriteJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     int            `json:"id"`
		Kind   string         `json:"kind"`
		Name   string         `json:"name"`
		Params map[string]any `json:"params"`
	}
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := apperrors.ValidateNodeName(req.Name); err != nil {
		writeError(w, err)
		return
	}
	n := dataflow.Node{ID: req.ID, Kind: req.Kind, Name: req.Name, Params: req.Params}
	if err := s.engine.AddNode(n); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]int{"id": req.ID})
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeID(w, r, "id")
	if !ok {
		return
	}
	if err := s.engine.RemoveNode(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetParams applies each key of the request object as a parameter
// edit. Keys are applied in sorted order; the first failure stops the
// remainder and earlier edits stay applied.
func (s *Server) handleSetParams(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeID(w, r, "id")
	if !ok {
		return
	}
	var params map[string]any
	if err := httputil.ReadJSON(w, r, &params); err != nil {
		writeError(w, err)
		return
	}
	if len(params) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidParam, "no parameters in request")
		return
	}
	for _, key := range slices.Sorted(maps.Keys(params)) {
		if err := s.engine.SetParam(id, key, params[key]); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var edge dataflow.Edge
	if err := httputil.ReadJSON(w, r, &edge); err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.Connect(edge); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, edge)
}

func (s *Server) handleListLayers(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrCodeStore, err, "list layers"))
		return
	}
	if ids == nil {
		ids = []int{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]int{"layers": ids})
}

// handleGetLayer returns the stored layer in the tagged wire format,
// byte for byte what a file export would contain.
func (s *Server) handleGetLayer(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeID(w, r, "node")
	if !ok {
		return
	}
	g, err := s.store.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, layerstore.ErrNotFound) {
			err = apperrors.Wrap(apperrors.ErrCodeStore, err, "load layer %d", id)
		}
		writeError(w, err)
		return
	}
	data, err := tilegrid.Marshal(g)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, apperrors.ErrCodeInternal, "encode layer %d", id)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// nodeID parses the named integer URL parameter, writing a 400 response
// and reporting false when it is not a number.
func nodeID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidNode, "node id %q is not a number", raw)
		return 0, false
	}
	return id, true
}
