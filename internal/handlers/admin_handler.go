package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"tingxie/internal/drill"
	"tingxie/internal/models"
	"tingxie/internal/service"
)

// maxListFileSize bounds an uploaded TOML list
const maxListFileSize = 1 << 20

// AdminHandler manages word lists and audio over a small JSON API
type AdminHandler struct {
	listService *service.ListService
}

func NewAdminHandler(listService *service.ListService) *AdminHandler {
	return &AdminHandler{listService: listService}
}

type listResponse struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	Words       []string `json:"words,omitempty"`
	WordCount   int      `json:"word_count"`
}

func newListResponse(list *models.ListWithWords) listResponse {
	return listResponse{
		ID:          list.List.ID,
		Name:        list.List.Name,
		Description: list.List.Description,
		Language:    list.List.Language,
		Words:       list.Texts(),
		WordCount:   len(list.Words),
	}
}

// ListLists returns every stored list with its word count
func (h *AdminHandler) ListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.listService.GetAllLists()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error getting lists", err)
		return
	}

	out := make([]listResponse, len(lists))
	for i, l := range lists {
		out[i] = listResponse{
			ID:          l.ID,
			Name:        l.Name,
			Description: l.Description,
			Language:    l.Language,
			WordCount:   l.WordCount,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// ImportList stores a TOML list sent as the request body
func (h *AdminHandler) ImportList(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxListFileSize)

	list, err := h.listService.ImportList(r.Context(), body)
	switch {
	case errors.Is(err, service.ErrListExists):
		respondJSON(w, http.StatusConflict, MessageResponse{Message: err.Error()})
		return
	case err != nil && isValidationError(err):
		respondJSON(w, http.StatusBadRequest, MessageResponse{Message: err.Error()})
		return
	case err != nil:
		respondWithError(w, http.StatusInternalServerError, "Failed to import list", "Error importing list", err)
		return
	}

	log.Printf("Imported list %q with %d words", list.List.Name, len(list.Words))
	respondJSON(w, http.StatusCreated, newListResponse(list))
}

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidListFile) ||
		errors.Is(err, drill.ErrEmptyBank) ||
		errors.Is(err, drill.ErrBlankWord) ||
		errors.Is(err, drill.ErrDuplicateWord)
}

// ExportList downloads a list as TOML
func (h *AdminHandler) ExportList(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var buf strings.Builder
	err := h.listService.ExportListFile(name, &buf)
	if errors.Is(err, service.ErrListNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error exporting list", err)
		return
	}

	w.Header().Set("Content-Type", "application/toml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="list.toml"`)
	io.WriteString(w, buf.String())
}

// DeleteList removes a list by ID
func (h *AdminHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	listID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid list ID", http.StatusBadRequest)
		return
	}

	err = h.listService.DeleteList(listID)
	if errors.Is(err, service.ErrListNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to delete list", "Error deleting list", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetDefaultList changes which list a drill starts from when none is chosen
func (h *AdminHandler) SetDefaultList(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	err := h.listService.SetDefaultList(name)
	if errors.Is(err, service.ErrListNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error setting default list", err)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Message: "default list set to " + name})
}

type regenerateResponse struct {
	Generated int `json:"generated"`
	Failed    int `json:"failed"`
	Removed   int `json:"removed"`
}

// RegenerateAudio fills in missing word clips and removes orphaned ones
func (h *AdminHandler) RegenerateAudio(w http.ResponseWriter, r *http.Request) {
	generated, failed, err := h.listService.GenerateMissingAudio(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to generate audio", "Error generating audio", err)
		return
	}

	removed, err := h.listService.CleanupOrphanedAudioFiles()
	if err != nil {
		log.Printf("Warning: Failed to cleanup orphaned audio files: %v", err)
	}

	respondJSON(w, http.StatusOK, regenerateResponse{Generated: generated, Failed: failed, Removed: removed})
}
