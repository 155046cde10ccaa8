package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/blencorp/capture-mcp-server/internal/errors"
	"github.com/blencorp/capture-mcp-server/internal/tools"
)

// maxCallBodyBytes bounds tool-call request bodies.
const maxCallBodyBytes = 1 << 20

// ToolHandlers serves the tool catalog and tool invocation endpoints.
type ToolHandlers struct {
	registry *tools.Registry
}

// NewToolHandlers creates handlers around a tool registry.
func NewToolHandlers(registry *tools.Registry) *ToolHandlers {
	return &ToolHandlers{registry: registry}
}

// CatalogResponse lists the available tools.
type CatalogResponse struct {
	Tools []tools.Descriptor `json:"tools"`
}

// List serves GET /tools.
func (h *ToolHandlers) List(w http.ResponseWriter, r *http.Request) {
	response := CatalogResponse{Tools: tools.Catalog()}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// CallRequest is the tool invocation request body.
type CallRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// CallResponse wraps a tool result. Result carries either the shaped
// payload or the tool's own {error, suggestion} failure value; both
// are 200s, because the tool call itself succeeded.
type CallResponse struct {
	Name   string `json:"name"`
	Result any    `json:"result"`
}

// Call serves POST /tools/call.
func (h *ToolHandlers) Call(w http.ResponseWriter, r *http.Request) {
	var request CallRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCallBodyBytes))
	if err := decoder.Decode(&request); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("request body is not valid JSON: "+err.Error()))
		return
	}

	name := tools.Name(request.Name)
	if !name.Valid() {
		respondWithError(w, r, apperrors.NewInvalidInputError("unknown tool: "+request.Name))
		return
	}

	result, err := h.registry.Dispatch(r.Context(), name, request.Arguments)
	if err != nil {
		// Validation and configuration failures from the registry.
		respondWithError(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	response := CallResponse{Name: request.Name, Result: result}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
