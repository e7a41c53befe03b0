package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zombor/finsight/internal/email"
	"github.com/zombor/finsight/internal/fees"
	"github.com/zombor/finsight/internal/model"
)

const (
	// maxUploadSize covers high-resolution phone photos
	maxUploadSize = int64(50 << 20)
	maxBodySize   = int64(10 << 20)

	uploadTooLarge = "File is too large. Maximum size is 50MB. Please compress or resize your image."
)

type detectFeesRequest struct {
	Transactions []model.Transaction `json:"transactions"`
	ExistingFees []fees.DetectedFee  `json:"existing_fees"`
}

type detectSubscriptionsRequest struct {
	Expenses []model.Transaction `json:"expenses"`
}

type classifyEmailsRequest struct {
	Emails []email.Message `json:"emails"`
}

type recognitionFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors to status codes
func writeServiceError(w http.ResponseWriter, err error, action string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		slog.Error("Error "+action, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// uploadContentType uses the part's header, falling back to the file extension
func uploadContentType(header string, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(header))
	if contentType != "" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, uploadTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := uploadContentType(header.Header.Get("Content-Type"), header.Filename)

	scan, err := s.service.ProcessReceipt(r.Context(), header.Filename, data, contentType)
	if err != nil {
		if errors.Is(err, ErrRecognitionFailed) {
			writeJSON(w, http.StatusUnprocessableEntity, recognitionFailure{Success: false, Error: err.Error()})
			return
		}
		writeServiceError(w, err, "processing receipt")
		return
	}

	writeJSON(w, http.StatusCreated, scan)
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	scans, err := s.service.ListScans()
	if err != nil {
		writeServiceError(w, err, "listing scans")
		return
	}
	writeJSON(w, http.StatusOK, scans)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	scan, err := s.service.GetScan(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "getting scan")
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleGetScanFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetScanFile(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "getting scan file")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteScan(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, "deleting scan")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDetectFees(w http.ResponseWriter, r *http.Request) {
	var req detectFeesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	detected, err := s.service.DetectFees(req.Transactions, req.ExistingFees)
	if err != nil {
		writeServiceError(w, err, "detecting fees")
		return
	}
	writeJSON(w, http.StatusOK, detected)
}

func (s *Server) handleConfirmFee(w http.ResponseWriter, r *http.Request) {
	var fee fees.DetectedFee
	if !decodeBody(w, r, &fee) {
		return
	}
	saved, err := s.service.ConfirmFee(fee)
	if err != nil {
		writeServiceError(w, err, "confirming fee")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleListFees(w http.ResponseWriter, r *http.Request) {
	confirmed, err := s.service.ListFees()
	if err != nil {
		writeServiceError(w, err, "listing fees")
		return
	}
	writeJSON(w, http.StatusOK, confirmed)
}

func (s *Server) handleFeeReport(w http.ResponseWriter, r *http.Request) {
	timeRange, err := fees.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.service.FeeReport(timeRange)
	if err != nil {
		writeServiceError(w, err, "building fee report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDetectSubscriptions(w http.ResponseWriter, r *http.Request) {
	var req detectSubscriptionsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	candidates, err := s.service.DetectSubscriptions(req.Expenses)
	if err != nil {
		writeServiceError(w, err, "detecting subscriptions")
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (s *Server) handleClassifyEmails(w http.ResponseWriter, r *http.Request) {
	var req classifyEmailsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.service.ClassifyEmails(r.Context(), req.Emails))
}
