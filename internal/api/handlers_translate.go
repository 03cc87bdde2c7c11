package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/doctran/internal/config"
	"github.com/dgallion1/doctran/internal/parser"
	"github.com/dgallion1/doctran/internal/pipeline"
	"github.com/dgallion1/doctran/internal/translate"
)

type upload struct {
	filename string
	data     []byte
}

// readUpload takes the document from the multipart "file" field, or from the
// raw body for any other content type. A raw body may name itself with the
// "filename" query parameter.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	var u upload
	var src io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return u, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err)
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			return u, http.StatusBadRequest, fmt.Errorf("file is required: %w", err)
		}
		defer file.Close()
		u.filename = sanitizeFilename(header.Filename)
		src = file
	} else if name := r.URL.Query().Get("filename"); name != "" {
		u.filename = sanitizeFilename(name)
	}

	data, err := io.ReadAll(io.LimitReader(src, s.cfg.MaxUploadBytes+1))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return u, http.StatusRequestEntityTooLarge, fmt.Errorf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
		}
		return u, http.StatusBadRequest, fmt.Errorf("read document: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return u, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	u.data = data
	return u, 0, nil
}

// pipelineFor applies the request's stage overrides to the server default.
// Without an explicit parse variant, the filename extension picks one.
func (s *Server) pipelineFor(r *http.Request, filename string) (config.Pipeline, error) {
	q := r.URL.Query()
	o := config.Pipeline{
		Parse:         q.Get("parse"),
		Process:       q.Get("process"),
		FilterWork:    q.Get("filter_work"),
		FilterProcess: q.Get("filter_process"),
		Work:          q.Get("work"),
		Render:        q.Get("render"),
	}
	if o.Parse == "" && filename != "" {
		name, err := parser.ForFile(filename)
		if err != nil {
			return config.Pipeline{}, err
		}
		o.Parse = name
	}
	return s.pipeline.Merge(o), nil
}

// resolve checks backend credentials and resolves p against the registry.
func (s *Server) resolve(p config.Pipeline) (*pipeline.Stages, error) {
	if err := s.cfg.ValidateBackend(p.Work); err != nil {
		return nil, err
	}
	return s.orchestrator.Registry().Resolve(p)
}

func (s *Server) driverOptions() pipeline.DriverOptions {
	return pipeline.DriverOptions{
		Policy:      pipeline.FailurePolicy(s.cfg.FailurePolicy),
		MaxInFlight: s.cfg.MaxInFlight,
	}
}

// handleTranslate runs one document through the pipeline and returns the
// rendered tree in the response body.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	u, code, err := s.readUpload(w, r)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}
	p, err := s.pipelineFor(r, u.filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	stages, err := s.resolve(p)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	log := s.log.With("request_id", middleware.GetReqID(r.Context()), "filename", u.filename)
	var out bytes.Buffer
	report, err := pipeline.NewDriver(stages, s.driverOptions(), log).Run(r.Context(), bytes.NewReader(u.data), &out)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoInput):
			jsonError(w, "document is empty", http.StatusBadRequest)
		case errors.Is(err, context.Canceled):
			log.Info("client went away", "error", err)
		case translate.IsTransport(err):
			jsonError(w, err.Error(), http.StatusBadGateway)
		default:
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		}
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Doctran-Run-Id", report.RunID.String())
	h.Set("X-Doctran-Attempted", strconv.Itoa(report.Attempted))
	h.Set("X-Doctran-Failed", strconv.Itoa(report.Failed))
	w.WriteHeader(http.StatusOK)
	w.Write(out.Bytes())
}
