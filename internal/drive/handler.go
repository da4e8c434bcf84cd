package drive

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service       *Service
	ingestService *IngestService
	defaultFolder string
}

func NewHandler(service *Service, ingestService *IngestService, defaultFolder string) *Handler {
	return &Handler{
		service:       service,
		ingestService: ingestService,
		defaultFolder: defaultFolder,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods("GET")
	router.HandleFunc("/api/drive/ingest", h.IngestFile).Methods("POST")
	router.HandleFunc("/api/drive/ingest-folder", h.IngestFolder).Methods("POST")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Drive: encode response failed")
	}
}

func (h *Handler) folder(r *http.Request) (string, error) {
	query := r.URL.Query()
	if path := query.Get("path"); path != "" {
		return h.service.FindFolderByPath(r.Context(), path)
	}
	if id := query.Get("folderId"); id != "" {
		return id, nil
	}
	return h.defaultFolder, nil
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	folderID, err := h.folder(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	files, err := h.service.ListFiles(r.Context(), folderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = make([]*File, 0)
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) IngestFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		http.Error(w, "fileId parameter is required", http.StatusBadRequest)
		return
	}

	res, err := h.ingestService.IngestFile(r.Context(), fileID)
	if errors.Is(err, domain.ErrUnknownFormat) {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	if err != nil {
		http.Error(w, "ingestion failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (h *Handler) IngestFolder(w http.ResponseWriter, r *http.Request) {
	folderID, err := h.folder(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	results, err := h.ingestService.IngestFolder(r.Context(), folderID)
	if err != nil {
		http.Error(w, "ingestion failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, results)
}
