package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/workbench-dev/workbench/internal/agent"
	"github.com/workbench-dev/workbench/internal/engine"
	"github.com/workbench-dev/workbench/internal/models"
	"github.com/workbench-dev/workbench/internal/presence"
	"github.com/workbench-dev/workbench/internal/store"
)

// Server provides the REST API handlers.
type Server struct {
	store        store.Store
	engine       *engine.Engine
	orchestrator *agent.Orchestrator
	hub          *presence.Hub
}

// NewServer creates a new API server.
// The orchestrator may be nil if no API key is configured; the hub may be
// nil when the websocket surface is disabled.
func NewServer(s store.Store, e *engine.Engine, o *agent.Orchestrator, hub *presence.Hub) *Server {
	return &Server{
		store:        s,
		engine:       e,
		orchestrator: o,
		hub:          hub,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/projects", s.listProjects)
	mux.HandleFunc("POST /api/v1/projects", s.createProject)
	mux.HandleFunc("GET /api/v1/projects/{id}", s.getProject)
	mux.HandleFunc("PUT /api/v1/projects/{id}", s.updateProject)
	mux.HandleFunc("DELETE /api/v1/projects/{id}", s.deleteProject)

	mux.HandleFunc("GET /api/v1/projects/{id}/files", s.listFiles)
	mux.HandleFunc("POST /api/v1/projects/{id}/files", s.createFile)
	mux.HandleFunc("PUT /api/v1/projects/{id}/files/{fileID}", s.updateFile)
	mux.HandleFunc("DELETE /api/v1/projects/{id}/files/{fileID}", s.deleteFile)

	mux.HandleFunc("POST /api/v1/projects/{id}/execute", s.executeCommand)
	mux.HandleFunc("GET /api/v1/projects/{id}/executions", s.listExecutions)

	mux.HandleFunc("POST /api/v1/agent", s.agentTurn)
	mux.HandleFunc("POST /api/v1/assist", s.assist)

	if s.hub != nil {
		mux.Handle("GET /ws", s.hub)
	}

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// patchString applies a string value from a JSON patch map to the target if the key is present and non-empty.
func patchString(patch map[string]any, key string, target *string) {
	if v, ok := patch[key]; ok {
		if str, ok := v.(string); ok && str != "" {
			*target = str
		}
	}
}

// --- Projects ---

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	project, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var p models.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if p.OwnerID == "" {
		user, err := s.store.EnsureUser(r.Context(), engine.AnonUserID, engine.AnonUserName, engine.AnonUserEmail)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		p.OwnerID = user.ID
	}
	if err := s.store.CreateProject(r.Context(), &p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// Selectively merge only keys present in the patch with non-empty values.
	// Empty strings are treated as "not provided" to avoid wiping existing data.
	patchString(patch, "Name", &existing.Name)
	patchString(patch, "Description", &existing.Description)
	patchString(patch, "Language", &existing.Language)

	if err := s.store.UpdateProject(r.Context(), existing); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteProject(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = s.engine.Mirror().RemoveProject(id)
	w.WriteHeader(http.StatusNoContent)
}

// --- Files ---

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	files, err := s.store.ListFiles(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) createFile(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if _, err := s.store.GetProject(r.Context(), projectID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var f models.FileRecord
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if f.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	f.ProjectID = projectID
	if f.Path == "" {
		f.Path = "/" + f.Name
	}
	if f.Language == "" {
		f.Language = models.LanguageForName(f.Name)
	}

	if err := s.store.CreateFile(r.Context(), &f); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Persisted row is the source of truth; refresh the on-disk mirror after.
	if err := s.engine.Mirror().WriteFile(projectID, f.Name, f.Content); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) updateFile(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	fileID := r.PathValue("fileID")

	existing, err := s.store.GetFile(r.Context(), fileID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing.ProjectID != projectID {
		writeError(w, http.StatusNotFound, "file not found in project")
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	oldName := existing.Name
	patchString(patch, "Name", &existing.Name)
	// Content may legitimately be set to empty, so it is applied whenever present.
	if v, ok := patch["Content"]; ok {
		if str, ok := v.(string); ok {
			existing.Content = str
		}
	}
	if existing.Name != oldName {
		existing.Path = "/" + existing.Name
		existing.Language = models.LanguageForName(existing.Name)
	}

	if err := s.store.UpdateFile(r.Context(), existing); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing.Name != oldName {
		if err := s.engine.Mirror().RemoveFile(projectID, oldName); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if err := s.engine.Mirror().WriteFile(projectID, existing.Name, existing.Content); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	fileID := r.PathValue("fileID")

	existing, err := s.store.GetFile(r.Context(), fileID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing.ProjectID != projectID {
		writeError(w, http.StatusNotFound, "file not found in project")
		return
	}

	if err := s.store.DeleteFile(r.Context(), fileID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.engine.Mirror().RemoveFile(projectID, existing.Name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Execution ---

type executeRequest struct {
	Command string `json:"command"`
	UserID  string `json:"userId"`
}

func (s *Server) executeCommand(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	if _, err := s.store.GetProject(r.Context(), projectID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	files, err := s.store.ListFiles(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	records := make([]models.FileRecord, len(files))
	for i, f := range files {
		records[i] = *f
	}

	exec, err := s.engine.ExecuteCommand(r.Context(), projectID, req.UserID, req.Command, records)
	if err != nil && exec == nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

func (s *Server) listExecutions(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	execs, err := s.store.ListExecutions(r.Context(), projectID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, execs)
}

// --- Agent ---

type agentRequest struct {
	Message   string                 `json:"message"`
	ProjectID string                 `json:"projectId"`
	Mode      agent.Mode             `json:"mode"`
	Context   []agent.ContextMessage `json:"context"`
}

func (s *Server) agentTurn(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil {
		writeError(w, http.StatusServiceUnavailable, "LLM not configured: set the Anthropic API key")
		return
	}

	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	var records []models.FileRecord
	if req.ProjectID != "" {
		files, err := s.store.ListFiles(r.Context(), req.ProjectID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		records = make([]models.FileRecord, len(files))
		for i, f := range files {
			records[i] = *f
		}
	}

	resp, err := s.orchestrator.Run(r.Context(), agent.Request{
		Message:   req.Message,
		ProjectID: req.ProjectID,
		Files:     records,
		Context:   req.Context,
		Mode:      req.Mode,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if req.ProjectID != "" {
		s.recordTurn(r, req.ProjectID, req.Message, resp.Message)
	}
	writeJSON(w, http.StatusOK, resp)
}

// recordTurn persists a conversation turn. Failures are swallowed; the
// agent response has already been produced and chat history is advisory.
func (s *Server) recordTurn(r *http.Request, projectID, userMsg, assistantMsg string) {
	user, err := s.store.EnsureUser(r.Context(), engine.AnonUserID, engine.AnonUserName, engine.AnonUserEmail)
	if err != nil {
		return
	}
	now := time.Now().UTC()
	_ = s.store.CreateMessage(r.Context(), &models.Message{
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      models.MessageRoleUser,
		Content:   userMsg,
		CreatedAt: now,
	})
	_ = s.store.CreateMessage(r.Context(), &models.Message{
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      models.MessageRoleAssistant,
		Content:   assistantMsg,
		CreatedAt: now,
	})
}

// --- Assist ---

type assistRequest struct {
	Code     string                 `json:"code"`
	Language string                 `json:"language"`
	Query    string                 `json:"query"`
	Context  []agent.ContextMessage `json:"context"`
}

func (s *Server) assist(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil {
		writeError(w, http.StatusServiceUnavailable, "LLM not configured: set the Anthropic API key")
		return
	}

	var req assistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	resp, err := s.orchestrator.Assist(r.Context(), agent.AssistRequest{
		Code:     req.Code,
		Language: req.Language,
		Query:    req.Query,
		Context:  req.Context,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
