package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bouyassine11/AnalytIQ/internal/analysis"
	"github.com/bouyassine11/AnalytIQ/internal/charts"
	"github.com/bouyassine11/AnalytIQ/internal/cleaning"
	"github.com/bouyassine11/AnalytIQ/internal/jobs"
	"github.com/bouyassine11/AnalytIQ/internal/utils"
)

type uploadResponse struct {
	DatasetID string      `json:"dataset_id"`
	Filename  string      `json:"filename"`
	Status    jobs.Status `json:"status"`
	Message   string      `json:"message"`
}

type analysisResponse struct {
	DatasetID      string           `json:"dataset_id"`
	Filename       string           `json:"filename"`
	Status         jobs.Status      `json:"status"`
	CleaningReport *cleaning.Report `json:"cleaning_report"`
	EDAResults     *analysis.Result `json:"eda_results"`
	Visualizations []charts.Spec    `json:"visualizations"`
	AIInsights     *string          `json:"ai_insights"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
}

type listItem struct {
	DatasetID  string      `json:"dataset_id"`
	Filename   string      `json:"filename"`
	Status     jobs.Status `json:"status"`
	UploadDate time.Time   `json:"upload_date"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing multipart field \"file\"")
		return
	}
	defer file.Close()

	name := filepath.Base(hdr.Filename)
	if !strings.HasSuffix(name, ".csv") {
		writeError(w, http.StatusBadRequest, "Only CSV files are allowed")
		return
	}
	path, err := s.saveUpload(file, name)
	if err != nil {
		s.log.Error("api: save upload", zap.String("filename", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Could not store upload")
		return
	}

	j, err := s.svc.Submit(r.Context(), userID(r), name, path)
	if err != nil {
		_ = os.Remove(path)
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		DatasetID: j.ID,
		Filename:  j.Filename,
		Status:    j.Status,
		Message:   "File uploaded successfully. Analysis in progress.",
	})
}

func (s *Server) saveUpload(src io.Reader, name string) (string, error) {
	if err := utils.EnsureDir(s.uploadDir); err != nil {
		return "", fmt.Errorf("ensure upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, uuid.NewString()+"_"+name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	j, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"), userID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	resp := analysisResponse{
		DatasetID:   j.ID,
		Filename:    j.Filename,
		Status:      j.Status,
		Error:       j.Error,
		CreatedAt:   j.UploadedAt,
		CompletedAt: j.CompletedAt,
	}
	// sections are only exposed for completed jobs
	if j.Status == jobs.StatusCompleted && j.Result != nil {
		resp.CleaningReport = j.Result.CleaningReport
		resp.EDAResults = j.Result.EDAResults
		resp.Visualizations = j.Result.Visualizations
		resp.AIInsights = &j.Result.AIInsights
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.List(r.Context(), userID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	out := make([]listItem, 0, len(list))
	for _, j := range list {
		out = append(out, listItem{DatasetID: j.ID, Filename: j.Filename, Status: j.Status, UploadDate: j.UploadedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Request body must be {\"message\": \"...\"}")
		return
	}
	reply, err := s.svc.Chat(r.Context(), chi.URLParam(r, "id"), userID(r), req.Message)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: reply})
}
