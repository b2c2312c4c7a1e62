package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/jonathan/script-generator/internal/ingestion"
	"github.com/jonathan/script-generator/internal/jobs"
	"github.com/jonathan/script-generator/internal/types"
)

// multipartOverhead is allowed on top of the upload limit for form framing.
const multipartOverhead = 64 << 10

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTemplates lists the available templates keyed by id.
func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, types.TemplatesResponse{
		Status:    "success",
		Templates: s.deps.Templates.ByID(),
	})
}

// handleUpload extracts text from a multipart "file" field.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.deps.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytes):
			s.errorResponse(w, http.StatusRequestEntityTooLarge, (&ErrUploadTooLarge{Limit: limit}).Error())
		default:
			s.errorResponse(w, http.StatusUnprocessableEntity, "No file uploaded")
		}
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Error processing file: "+err.Error())
		return
	}
	if int64(len(data)) > limit {
		s.errorResponse(w, http.StatusRequestEntityTooLarge, (&ErrUploadTooLarge{Limit: limit}).Error())
		return
	}

	content, err := ingestion.ExtractText(header.Filename, data)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Error processing file: "+err.Error())
		return
	}

	log.Printf("[upload] %s: %d bytes -> %d chars", header.Filename, len(data), len(content))
	s.jsonResponse(w, http.StatusOK, types.UploadResponse{Status: "success", Content: content})
}

// handleGenerate queues a generation task.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}
	if req.TemplateName != "" {
		if _, err := s.deps.Templates.Get(req.TemplateName); err != nil {
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
	}

	task, err := s.deps.Runner.Submit(r.Context(), req)
	if err != nil {
		log.Printf("[server] submit failed: %v", err)
		s.errorResponse(w, HTTPStatus(err), "Error starting generation: "+err.Error())
		return
	}

	log.Printf("[server] queued task %s (%d chars, template=%q)", task.ID, len(req.Content), req.TemplateName)
	s.jsonResponse(w, http.StatusOK, types.GenerateResponse{TaskID: task.ID, Status: task.Status})
}

// handleStatus returns the current state of a task.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, types.StatusOf(task))
}

// handleValidate scores a script, optionally against a template.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req types.ValidateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	var tmpl *types.Template
	if req.TemplateName != "" {
		found, err := s.deps.Templates.Get(req.TemplateName)
		if err != nil {
			s.errorResponse(w, HTTPStatus(err), "Error validating script: "+err.Error())
			return
		}
		tmpl = found
	}

	s.jsonResponse(w, http.StatusOK, types.ValidateResponse{
		Status:     "success",
		Validation: s.deps.Analyzer.Validate(req.Script, tmpl),
	})
}

// handleExport renders the script and returns it as an attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req types.ExportRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusUnprocessableEntity, validationDetail(err))
		return
	}

	doc, err := s.deps.Renderer.Render(r.Context(), req.Script, req.Format)
	if err != nil {
		log.Printf("[server] export %s failed: %v", req.Format, err)
		s.errorResponse(w, HTTPStatus(err), "Error exporting script: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Body); err != nil {
		log.Printf("[server] writing export: %v", err)
	}
}

// decodeBody decodes a JSON request body, writing a 422 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.errorResponse(w, http.StatusUnprocessableEntity, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// lookupTask loads the task named by the {id} path value, writing 404 when unknown.
func (s *Server) lookupTask(w http.ResponseWriter, r *http.Request) (*types.ScriptTask, bool) {
	task, err := s.deps.Runner.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrTaskNotFound) {
			s.errorResponse(w, http.StatusNotFound, "Task not found")
		} else {
			log.Printf("[server] task lookup failed: %v", err)
			s.errorResponse(w, http.StatusInternalServerError, "Error checking task status")
		}
		return nil, false
	}
	return task, true
}
