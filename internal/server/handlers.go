package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/elksvg/pkg/buildinfo"
	"github.com/matzehuels/elksvg/pkg/elk"
	"github.com/matzehuels/elksvg/pkg/errors"
	"github.com/matzehuels/elksvg/pkg/pipeline"
	"github.com/matzehuels/elksvg/pkg/render"
)

// HeaderCache reports whether the artifact came from the cache (HIT or MISS).
const HeaderCache = "X-Cache"

var contentTypes = map[string]string{
	render.FormatSVG: "image/svg+xml",
	render.FormatPDF: "application/pdf",
	render.FormatPNG: "image/png",
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code      errors.Code `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	logger := loggerFromRequest(r, s.logger)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge,
				errors.New(errors.ErrCodeInvalidInput, "request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, r, http.StatusBadRequest, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	if len(body) == 0 {
		s.writeError(w, r, http.StatusBadRequest, errors.New(errors.ErrCodeInvalidInput, "empty request body"))
		return
	}

	opts, err := s.requestOptions(r)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	opts.Logger = logger

	result, err := s.runner.Render(r.Context(), body, opts)
	if err != nil {
		logger.Warn("render failed", "error", err)
		s.writeError(w, r, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", contentTypes[result.Format])
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Artifact)))
	if result.CacheHit {
		w.Header().Set(HeaderCache, "HIT")
	} else {
		w.Header().Set(HeaderCache, "MISS")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifact)
}

// requestOptions layers query parameters over the server defaults.
func (s *Server) requestOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.defaults
	opts.Styles = slices.Clone(s.defaults.Styles)
	opts.DefNames = slices.Clone(s.defaults.DefNames)
	opts.InputFormat = elk.FormatFromContentType(r.Header.Get("Content-Type"))

	q := r.URL.Query()
	if v := q.Get("format"); v != "" {
		opts.Format = v
	}
	if v := q.Get("routing"); v != "" {
		if _, ok := render.ParseRoutingMode(v); !ok {
			return opts, errors.New(errors.ErrCodeInvalidConfig, "unknown routing %q (use POLYLINE, ORTHOGONAL or SPLINES)", v)
		}
		opts.EdgeRouting = v
	}
	if v := q.Get("style"); v != "" {
		opts.Styles = strings.Split(v, ",")
		opts.CSS = ""
	}
	if v := q.Get("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil || scale <= 0 {
			return opts, errors.New(errors.ErrCodeInvalidInput, "invalid scale %q", v)
		}
		opts.Scale = scale
	}
	if v := q.Get("refresh"); v != "" {
		refresh, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "invalid refresh %q", v)
		}
		opts.Refresh = refresh
	}
	return opts, nil
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case errors.ErrCodeMalformedGraph:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	msg := errors.UserMessage(err)
	if status == http.StatusInternalServerError {
		// Internal details stay in the log.
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{
		Code:      code,
		Message:   msg,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
