package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/larder/larder/internal/auth"
	"github.com/larder/larder/internal/handler/dto"
	"github.com/larder/larder/internal/service"
)

// RecipeHandler handles HTTP requests for recipe operations.
type RecipeHandler struct {
	svc    *service.RecipeService
	logger *slog.Logger
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(svc *service.RecipeService, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/recipes/.
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, err := dto.DecodeRecipeRequest(r.Body)
	if err != nil {
		writeDecodeError(w, err, "Invalid JSON data")
		return
	}

	recipe, err := h.svc.CreateRecipe(r.Context(), auth.UserIDFromContext(r.Context()), input)
	if err != nil {
		h.handleServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, dto.RecipeEnvelope{
		Message: "Recipe created successfully",
		Recipe:  dto.ToRecipeResponse(recipe),
	})
}

// Get handles GET /api/recipes/{id}.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	id, ok := parseRecipeID(rawID)
	if !ok {
		writeRecipeNotFound(w, rawID)
		return
	}

	recipe, err := h.svc.GetRecipe(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err, rawID)
		return
	}

	writeJSON(w, http.StatusOK, dto.RecipeEnvelope{
		Message: "Recipe retrieved successfully",
		Recipe:  dto.ToRecipeResponse(recipe),
	})
}

// List handles GET /api/recipes/?page=&search=.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := 1
	if p := query.Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			page = parsed
		}
	}

	result, err := h.svc.ListRecipes(r.Context(), service.ListRecipesInput{
		Page:   page,
		Search: query.Get("search"),
	})
	if err != nil {
		h.handleServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToRecipeListResponse("Recipes retrieved successfully", result))
}

// Update handles PUT /api/recipes/{id}.
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")

	input, err := dto.DecodeRecipeRequest(r.Body)
	if err != nil {
		writeDecodeError(w, err, "Invalid JSON data")
		return
	}

	id, ok := parseRecipeID(rawID)
	if !ok {
		writeRecipeNotFound(w, rawID)
		return
	}

	recipe, err := h.svc.UpdateRecipe(r.Context(), id, input)
	if err != nil {
		h.handleServiceError(w, r, err, rawID)
		return
	}

	writeJSON(w, http.StatusOK, dto.RecipeEnvelope{
		Message: "Recipe updated successfully",
		Recipe:  dto.ToRecipeResponse(recipe),
	})
}

// Delete handles DELETE /api/recipes/{id}.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	id, ok := parseRecipeID(rawID)
	if !ok {
		writeRecipeNotFound(w, rawID)
		return
	}

	if err := h.svc.DeleteRecipe(r.Context(), id, auth.UserIDFromContext(r.Context())); err != nil {
		h.handleServiceError(w, r, err, rawID)
		return
	}

	writeMessage(w, http.StatusOK, "Recipe deleted successfully")
}

// handleServiceError maps service errors to HTTP responses.
func (h *RecipeHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, rawID string) {
	switch {
	case errors.Is(err, service.ErrRecipeNotFound):
		writeRecipeNotFound(w, rawID)
	case errors.Is(err, service.ErrForbidden):
		WriteError(w, http.StatusForbidden, CodeForbidden, "You are not allowed to delete this recipe")
	case errors.Is(err, service.ErrInvalidTitle):
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid or missing title")
	case errors.Is(err, service.ErrInvalidDescription):
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid or missing description")
	case errors.Is(err, service.ErrInvalidIngredients):
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid or missing ingredients")
	case errors.Is(err, service.ErrInvalidIngredientName):
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid ingredient name")
	case errors.Is(err, service.ErrInvalidIngredientQuantity):
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid ingredient quantity")
	case errors.Is(err, service.ErrInvalidInstructions):
		WriteError(w, http.StatusBadRequest, CodeValidation, "Invalid instructions")
	default:
		h.logger.Error("internal_error", "method", r.Method, "path", r.URL.Path, "error", err)
		WriteError(w, http.StatusInternalServerError, CodeInternal, msgInternalError)
	}
}

// parseRecipeID accepts positive decimal ids only.
func parseRecipeID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeRecipeNotFound(w http.ResponseWriter, rawID string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, fmt.Sprintf("Recipe with id %s not found", rawID))
}
