package inspect

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/md2anim/internal/engine/animation"
	"github.com/Faultbox/md2anim/internal/engine/scene"
	"github.com/Faultbox/md2anim/pkg/formats"
)

// ActionInfo describes one action of a model.
type ActionInfo struct {
	Name   string `json:"name"`
	Loop   bool   `json:"loop"`
	Offset int    `json:"offset"`
	Count  int    `json:"count"`
}

// ModelInfo describes a loaded model.
type ModelInfo struct {
	Name       string       `json:"name"`
	Kind       string       `json:"kind"`
	Frames     int          `json:"frames"`
	Vertices   int          `json:"vertices"`
	Triangles  int          `json:"triangles"`
	SkinWidth  int          `json:"skinWidth"`
	SkinHeight int          `json:"skinHeight"`
	Textured   bool         `json:"textured"`
	Actions    []ActionInfo `json:"actions"`
}

// FrameInfo names one keyframe.
type FrameInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

func modelInfo(m *scene.Model) ModelInfo {
	w, h := m.MD2.SkinSize()
	info := ModelInfo{
		Name:       m.Name,
		Kind:       m.Kind.String(),
		Frames:     m.NumFrames(),
		Vertices:   m.MD2.NumVertices(),
		Triangles:  len(m.MD2.Triangles),
		SkinWidth:  w,
		SkinHeight: h,
		Textured:   m.Skin.ID != 0,
	}
	for _, t := range m.Actions.Types() {
		a, _ := m.Actions.Action(t)
		info.Actions = append(info.Actions, ActionInfo{
			Name:   t.String(),
			Loop:   a.Loop,
			Offset: a.FrameOffset,
			Count:  a.FrameCount,
		})
	}
	return info
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := s.src.Models()
	out := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		out = append(out, modelInfo(m))
	}
	writeJSON(w, out)
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	m, ok := s.src.Model(name)
	if !ok {
		writeError(w, http.StatusNotFound, errors.Errorf("no model %q", name))
		return
	}
	frames := make([]FrameInfo, m.NumFrames())
	for i := range frames {
		frames[i] = FrameInfo{Index: i, Name: m.FrameName(i)}
	}
	writeJSON(w, frames)
}

func (s *Server) handleInstances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.src.States())
}

func (s *Server) handleInstance(w http.ResponseWriter, r *http.Request) {
	st, err := s.src.State(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, st)
}

func (s *Server) handleSetAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	action := formats.ParseActionType(strings.ToUpper(vars["action"]))
	if action == formats.ActionInvalid {
		writeError(w, http.StatusBadRequest, errors.Errorf("unknown action %q", vars["action"]))
		return
	}
	if err := s.src.SetAction(vars["name"], action); err != nil {
		writeError(w, statusFor(err), errors.Wrapf(err, "setting %s", action))
		return
	}
	s.log.Info("action set over http",
		zap.String("instance", vars["name"]),
		zap.Stringer("action", action))

	st, err := s.src.State(vars["name"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, st)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := s.src.Snapshot(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, statusFor(err), errors.Wrap(err, "rendering snapshot"))
		return
	}
	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// statusFor maps core errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scene.ErrUnknownInstance):
		return http.StatusNotFound
	case errors.Is(err, animation.ErrUnknownAction):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.Wrap(err, "encoding response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func writeError(w http.ResponseWriter, code int, err error) {
	type jError struct {
		Error string `json:"error"`
	}
	data, _ := json.Marshal(&jError{Error: err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}
