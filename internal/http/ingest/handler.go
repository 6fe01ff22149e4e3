package ingest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/reconciler/internal/importer"
	"github.com/MrJamesThe3rd/reconciler/internal/ingest"
	"github.com/MrJamesThe3rd/reconciler/internal/record"
)

const maxUploadSize = 32 << 20

type Handler struct {
	importSvc *importer.Service
	ingestSvc *ingest.Service
}

func NewHandler(importSvc *importer.Service, ingestSvc *ingest.Service) *Handler {
	return &Handler{
		importSvc: importSvc,
		ingestSvc: ingestSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/file", h.ingestFile)
	r.Post("/{kind}", h.ingestJSON)
}

type ingestResponse struct {
	Ingested int      `json:"ingested"`
	Errors   []string `json:"errors"`
}

func (h *Handler) ingestJSON(w http.ResponseWriter, r *http.Request) {
	kind, err := record.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	batch, err := h.importSvc.Import(importer.FormatJSON, kind, http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.store(w, r, batch)
}

func (h *Handler) ingestFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	kind, err := record.ParseKind(r.FormValue("type"))
	if err != nil {
		http.Error(w, "type field must be one of transactions, settlements, adjustments", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	batch, err := h.importSvc.Import(importer.FormatFromFilename(header.Filename), kind, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.store(w, r, batch)
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request, batch *record.Batch) {
	result, err := h.ingestSvc.IngestBatch(r.Context(), batch)
	if err != nil {
		slog.Error("failed to ingest batch", "kind", batch.Kind, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	resp := ingestResponse{Ingested: result.Ingested, Errors: result.Errors}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
