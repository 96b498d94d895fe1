package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/analyze"
	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/chat"
	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/project"
)

// Fixed user-facing reply strings. Raw errors are logged for operators;
// callers only ever see these.
const (
	chatErrorReply      = "There was a server error talking to the AI backend. Try again in a moment."
	analyzeNoInputReply = `I didn't get a mix or a question. Try something like: "How do I tighten my drum bus for modern metalcore?"`
	analyzeTooBigReply  = "That file is pretty large. For now, upload a shorter section (around 60–90 seconds as WAV/MP3) and I'll critique that."
	analyzeErrorReply   = "There was an error analyzing your mix. Make sure the file is a WAV/MP3 and try again."
)

// multipartMemoryLimit is how much of a parsed form is held in memory
// before spilling to disk.
const multipartMemoryLimit = 32 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	chat           *chat.Service
	analyze        *analyze.Service
	projects       project.Store
	validator      *validator.Validate
	logger         *slog.Logger
	maxUploadBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes sets the upload size cap used to bound request bodies.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(chatSvc *chat.Service, analyzeSvc *analyze.Service, projects project.Store, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		chat:           chatSvc,
		analyze:        analyzeSvc,
		projects:       projects,
		validator:      validator.New(),
		logger:         logger,
		maxUploadBytes: 200 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Chat handles POST /api/chat requests.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode chat request",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, ReplyResponse{Reply: chatErrorReply})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("chat request validation failed",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, ReplyResponse{Reply: chatErrorReply})
		return
	}

	messages := make([]project.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, project.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := h.chat.Reply(r.Context(), chat.Input{
		Messages: messages,
		Mode:     req.Mode,
		Preset:   req.Preset,
		Tone:     req.Tone,
	})
	if err != nil {
		h.logger.Error("chat completion failed",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ReplyResponse{Reply: chatErrorReply})
		return
	}

	writeJSON(w, http.StatusOK, ReplyResponse{Reply: reply})
}

// AnalyzeMix handles POST /api/analyze-mix requests.
func (h *Handlers) AnalyzeMix(w http.ResponseWriter, r *http.Request) {
	// Bound the body at twice the file cap so a runaway upload cannot be
	// streamed in full; files between the cap and the bound are rejected
	// by the gateway's own size check.
	r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusBadRequest, ReplyResponse{Reply: analyzeTooBigReply})
			return
		}
		h.logger.Warn("failed to parse multipart form",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, ReplyResponse{Reply: analyzeNoInputReply})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	in := analyze.Input{
		Question:   firstNonEmpty(r.FormValue("question"), r.FormValue("prompt")),
		Mode:       r.FormValue("mode"),
		Preset:     r.FormValue("preset"),
		Aggression: r.FormValue("aggression"),
		Tightness:  r.FormValue("tightness"),
		Brightness: r.FormValue("brightness"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer func() { _ = file.Close() }()
		in.Audio = file
		in.Filename = header.Filename
		in.Size = header.Size
	case errors.Is(err, http.ErrMissingFile):
		// Text-only branch; the gateway handles it.
	default:
		h.logger.Warn("failed to read uploaded file",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ReplyResponse{Reply: analyzeErrorReply})
		return
	}

	reply, err := h.analyze.Analyze(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, analyze.ErrNoInput):
			writeJSON(w, http.StatusBadRequest, ReplyResponse{Reply: analyzeNoInputReply})
		case errors.Is(err, analyze.ErrFileTooLarge):
			writeJSON(w, http.StatusBadRequest, ReplyResponse{Reply: analyzeTooBigReply})
		default:
			h.logger.Error("mix analysis failed",
				slog.String("error", err.Error()),
			)
			writeJSON(w, http.StatusInternalServerError, ReplyResponse{Reply: analyzeErrorReply})
		}
		return
	}

	writeJSON(w, http.StatusOK, ReplyResponse{Reply: reply})
}

// ListProjects handles GET /api/projects requests.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.ListProjects(r.Context())
	if err != nil {
		h.logger.Error("failed to list projects",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list projects", "PROJECT_LIST_FAILED")
		return
	}
	if projects == nil {
		projects = []project.Project{}
	}
	writeJSON(w, http.StatusOK, ProjectsResponse{Projects: projects})
}

// UpsertProject handles POST /api/projects requests.
func (h *Handlers) UpsertProject(w http.ResponseWriter, r *http.Request) {
	var p project.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.logger.Warn("failed to decode project",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	stored, err := h.projects.UpsertProject(r.Context(), p)
	if err != nil {
		if errors.Is(err, project.ErrProjectIDRequired) {
			writeError(w, http.StatusBadRequest, "project id is required", "PROJECT_ID_REQUIRED")
			return
		}
		h.logger.Error("failed to upsert project",
			slog.String("project_id", p.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to save project", "PROJECT_SAVE_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, stored)
}

// DeleteProject handles DELETE /api/projects/{id} requests.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "project id is required", "PROJECT_ID_REQUIRED")
		return
	}

	if err := h.projects.DeleteProject(r.Context(), id); err != nil {
		h.logger.Error("failed to delete project",
			slog.String("project_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete project", "PROJECT_DELETE_FAILED")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
