package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/username/brokerecon/backend/src/config"
	"github.com/username/brokerecon/backend/src/logger"
	"github.com/username/brokerecon/backend/src/security/validation"
	"github.com/username/brokerecon/backend/src/services"
	"github.com/username/brokerecon/backend/src/utils"
)

type ReconHandler struct {
	reconService services.ReconService
}

func NewReconHandler(service services.ReconService) *ReconHandler {
	return &ReconHandler{reconService: service}
}

// HandleRunReconciliation accepts one clearing file ("clearing_file") and one
// or more broker files ("broker_files") as multipart form data and runs a
// full reconciliation. Business failures (unreadable clearing file, account
// mismatch) come back as a structured result with success=false, not as HTTP
// errors; the UI picks its remediation path off error_type.
func (h *ReconHandler) HandleRunReconciliation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clearingInput, err := h.readFormFile(r, "clearing_file")
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	brokerHeaders := r.MultipartForm.File["broker_files"]
	if len(brokerHeaders) == 0 {
		utils.SendJSONError(w, "At least one broker file is required. Ensure 'broker_files' field is used.", http.StatusBadRequest)
		return
	}
	var brokerInputs []services.FileInput
	for _, fh := range brokerHeaders {
		input, err := h.readHeader(fh)
		if err != nil {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		brokerInputs = append(brokerInputs, input)
	}

	result, err := h.reconService.RunReconciliation(r.Context(), clearingInput, brokerInputs)
	if err != nil {
		logger.L.Error("Reconciliation failed", "error", err)
		utils.SendJSONError(w, "Internal error running reconciliation", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleListRuns returns the persisted run history, newest first.
func (h *ReconHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	runs, err := h.reconService.ListRuns(limit)
	if err != nil {
		logger.L.Error("Failed to list reconciliation runs", "error", err)
		utils.SendJSONError(w, "Error retrieving run history", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []services.RunRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// HandleGetRun returns one run's summary record.
func (h *ReconHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, err := h.reconService.GetRun(r.PathValue("id"))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// HandleGetReport returns the full multi-section report for a run while it is
// still cached. Reports are large, so an ETag lets the UI poll cheaply.
func (h *ReconHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reconService.GetReport(r.PathValue("id"))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	etag, etagErr := utils.GenerateETag(rep)
	if etagErr == nil {
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}

// HandleDownloadEnhanced streams the enhanced clearing CSV for a run.
func (h *ReconHandler) HandleDownloadEnhanced(w http.ResponseWriter, r *http.Request) {
	path, err := h.reconService.EnhancedPath(r.PathValue("id"))
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\"enhanced_clearing.csv\"")
	http.ServeFile(w, r, path)
}

func (h *ReconHandler) sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrRunNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrReportExpired):
		utils.SendJSONError(w, err.Error(), http.StatusGone)
	default:
		logger.L.Error("Reconciliation service error", "error", err)
		utils.SendJSONError(w, "Internal error", http.StatusInternalServerError)
	}
}

func (h *ReconHandler) readFormFile(r *http.Request, field string) (services.FileInput, error) {
	file, fileHeader, err := r.FormFile(field)
	if err != nil {
		return services.FileInput{}, fmt.Errorf("failed to retrieve file from request; ensure '%s' field is used", field)
	}
	defer file.Close()
	return h.validateAndRead(file, fileHeader)
}

func (h *ReconHandler) readHeader(fh *multipart.FileHeader) (services.FileInput, error) {
	file, err := fh.Open()
	if err != nil {
		return services.FileInput{}, fmt.Errorf("failed to open uploaded file %s", fh.Filename)
	}
	defer file.Close()
	return h.validateAndRead(file, fh)
}

func (h *ReconHandler) validateAndRead(file multipart.File, fh *multipart.FileHeader) (services.FileInput, error) {
	if fh.Size > config.Cfg.MaxUploadSizeBytes {
		return services.FileInput{}, fmt.Errorf("file %s too large, max %d MB", fh.Filename, config.Cfg.MaxUploadSizeBytes/(1024*1024))
	}
	if err := validation.ValidateClientContentType(fh.Header.Get("Content-Type")); err != nil {
		return services.FileInput{}, err
	}
	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		return services.FileInput{}, err
	}
	content, err := io.ReadAll(io.LimitReader(file, config.Cfg.MaxUploadSizeBytes+1))
	if err != nil {
		return services.FileInput{}, fmt.Errorf("failed to read uploaded file %s", fh.Filename)
	}
	if int64(len(content)) > config.Cfg.MaxUploadSizeBytes {
		return services.FileInput{}, fmt.Errorf("file %s too large, max %d MB", fh.Filename, config.Cfg.MaxUploadSizeBytes/(1024*1024))
	}
	return services.FileInput{Name: fh.Filename, Content: content}, nil
}
