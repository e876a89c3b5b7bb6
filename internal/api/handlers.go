package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/star/horizon/internal/control"
	"github.com/star/horizon/internal/display"
	"github.com/star/horizon/internal/input"
	"github.com/star/horizon/internal/state"
	"github.com/star/horizon/internal/uniform"
)

// maxInputBytes bounds request bodies on the input routes.
const maxInputBytes = 4096

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// GET /api/v1/uniforms
func uniformsHandler(store *uniform.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := store.Get()
		if snap == nil {
			writeError(w, http.StatusServiceUnavailable, "no frame exported yet")
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, snap)
	}
}

// GET /api/v1/uniforms.bin?format=std140|msgpack
func uniformsBinHandler(store *uniform.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		if format != "" && format != "std140" && format != "msgpack" {
			writeError(w, http.StatusBadRequest, "invalid format parameter, must be std140 or msgpack")
			return
		}

		snap := store.Get()
		if snap == nil {
			writeError(w, http.StatusServiceUnavailable, "no frame exported yet")
			return
		}

		var data []byte
		contentType := "application/octet-stream"
		if format == "msgpack" {
			var err error
			data, err = snap.ToMsgpack()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "encode failed")
				return
			}
			contentType = "application/msgpack"
		} else {
			data = snap.Marshal()
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Frame", strconv.FormatUint(snap.Frame, 10))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

// GET /api/v1/display
func displayHandler(board *display.Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text := board.Text()
		if text == "" {
			writeError(w, http.StatusServiceUnavailable, "no frame displayed yet")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(text + "\n"))
	}
}

// decodeInput decodes a bounded JSON body into v. On failure it writes the
// 400 response and returns false.
func decodeInput(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxInputBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// apply writes msg to the board and answers 202, or 400 for bad input.
func apply(w http.ResponseWriter, logger *slog.Logger, board *input.Board, msg control.Message) {
	if err := control.Apply(board, msg); err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, control.ErrMissingField) && !errors.Is(err, control.ErrNotFinite) && !errors.Is(err, control.ErrBadVector) {
			status = http.StatusInternalServerError
		}
		writeError(w, status, err.Error())
		return
	}
	logger.Debug("input applied", "component", "api", "type", msg.Type, "tag", msg.Tag)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type valueBody struct {
	Value *string `json:"value"`
}

// POST /api/v1/inputs/mass {"value":"5e30"}
//
// The value is stored as text, exactly as a UI field would hold it; the
// frame pipeline parses it on the next frame.
func massInputHandler(logger *slog.Logger, board *input.Board, tag string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body valueBody
		if !decodeInput(w, r, &body) {
			return
		}
		if body.Value == nil {
			writeError(w, http.StatusBadRequest, "value is required")
			return
		}
		apply(w, logger, board, control.Message{Type: control.TypeText, Tag: tag, Value: *body.Value})
	}
}

// PUT /api/v1/inputs/text/{tag} {"value":"..."}
func textInputHandler(logger *slog.Logger, board *input.Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body valueBody
		if !decodeInput(w, r, &body) {
			return
		}
		if body.Value == nil {
			writeError(w, http.StatusBadRequest, "value is required")
			return
		}
		apply(w, logger, board, control.Message{Type: control.TypeText, Tag: r.PathValue("tag"), Value: *body.Value})
	}
}

type cameraBody struct {
	Eye    *control.Vector `json:"eye"`
	Target *control.Vector `json:"target"`
}

// POST /api/v1/inputs/camera {"eye":[0,10,40],"target":[0,0,0]}
func cameraInputHandler(logger *slog.Logger, board *input.Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cameraBody
		if !decodeInput(w, r, &body) {
			return
		}
		apply(w, logger, board, control.Message{Type: control.TypeCamera, Eye: body.Eye, Target: body.Target})
	}
}

// DELETE /api/v1/inputs/camera
func clearCameraHandler(logger *slog.Logger, board *input.Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apply(w, logger, board, control.Message{Type: control.TypeClearCamera})
	}
}

// POST /api/v1/inputs/window {"x":0,"y":0,"width":1280,"height":720}
func windowInputHandler(logger *slog.Logger, board *input.Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body state.WindowGeometry
		if !decodeInput(w, r, &body) {
			return
		}
		apply(w, logger, board, control.Message{Type: control.TypeWindow, Window: &body})
	}
}
