package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/contra/internal/common"
	"github.com/bobmcallan/contra/internal/models"
	"github.com/bobmcallan/contra/internal/services/analyzer"
)

// maxUploadBytes bounds uploaded report size (32MB).
const maxUploadBytes = 32 << 20

// askChunks is how many index chunks a follow-up question retrieves.
const askChunks = 8

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"companies": s.app.Storage.TickerStore().Count(),
		"uptime":    time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleAnalyze handles POST /api/analyze: a multipart submission carrying
// the company name, report type, the report PDF and an optional
// comma-separated manual peer list. Returns a job identifier immediately;
// the pipeline runs in the background.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	companyName := strings.TrimSpace(r.FormValue("company_name"))
	if companyName == "" {
		WriteError(w, http.StatusBadRequest, "company_name is required")
		return
	}

	tickers := s.app.Storage.TickerStore()
	if tickers.Count() > 0 {
		if _, found := tickers.GetDetails(companyName); !found {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Company %q not found in dataset", companyName))
			return
		}
	}

	reportType := strings.TrimSpace(r.FormValue("report_type"))
	if reportType == "" {
		reportType = models.ReportTypeAnnual
	}
	if reportType != models.ReportTypeAnnual && reportType != models.ReportTypeQuarterly {
		WriteError(w, http.StatusBadRequest, "report_type must be annual or quarterly")
		return
	}

	file, header, err := r.FormFile("report")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "report file is required")
		return
	}
	defer file.Close()

	jobID := uuid.New().String()
	reportPath, err := s.saveUpload(file, header.Filename, jobID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to save uploaded report")
		WriteError(w, http.StatusInternalServerError, "Failed to save uploaded report")
		return
	}

	s.app.Coordinator.Submit(r.Context(), analyzer.Request{
		JobID:       jobID,
		CompanyName: companyName,
		ReportType:  reportType,
		ReportPath:  reportPath,
		ManualPeers: splitPeers(r.FormValue("peers")),
	})

	s.logger.Info().
		Str("job_id", jobID).
		Str("company", companyName).
		Str("report_type", reportType).
		Msg("Analysis submitted")

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": models.JobStatusQueued,
	})
}

// saveUpload copies the uploaded report under the configured upload
// directory, keyed by job so re-submissions never collide.
func (s *Server) saveUpload(file io.Reader, filename, jobID string) (string, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".pdf"
	}
	path := filepath.Join(s.app.Config.Storage.UploadDir, jobID+ext)

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func splitPeers(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var peers []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			peers = append(peers, p)
		}
	}
	return peers
}

// handleStatus handles GET /api/status/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := PathParam(r, "/api/status/", "")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, found := s.app.Storage.JobStore().Get(jobID)
	if !found {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// handleCancel handles POST /api/cancel/{id}. Cancellation is cooperative
// and takes effect at the next stage boundary.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	jobID := PathParam(r, "/api/cancel/", "")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	if !s.app.Storage.JobStore().Cancel(jobID) {
		WriteError(w, http.StatusNotFound, "Job not found or already finished")
		return
	}

	s.logger.Info().Str("job_id", jobID).Msg("Job cancellation requested")
	WriteJSON(w, http.StatusOK, map[string]string{
		"job_id": jobID,
		"status": models.JobStatusCancelled,
	})
}

// handleSearch handles GET /api/search?q= company-name autocomplete.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		WriteError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	names := s.app.Storage.TickerStore().Search(query, 10)
	if names == nil {
		names = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": names,
	})
}

type askRequest struct {
	Question string `json:"question"`
}

// handleAsk handles POST /api/ask/{id}: a free-form follow-up question
// answered from the completed job's report context.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	jobID := PathParam(r, "/api/ask/", "")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, found := s.app.Storage.JobStore().Get(jobID)
	if !found {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.Status != models.JobStatusCompleted {
		WriteError(w, http.StatusConflict, "Job has not completed")
		return
	}

	var req askRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		WriteError(w, http.StatusBadRequest, "question is required")
		return
	}

	ctx := r.Context()
	reportContext, err := s.app.Storage.DocumentIndex().Query(ctx, question, job.CompanyName, askChunks)
	if err != nil {
		s.logger.Warn().Str("job_id", jobID).Err(err).Msg("Follow-up context retrieval failed")
		WriteError(w, http.StatusInternalServerError, "Failed to retrieve report context")
		return
	}

	prompt := buildAskPrompt(job.CompanyName, question, reportContext)
	answer, err := s.app.GeminiClient.GenerateContent(ctx, prompt)
	if err != nil {
		s.logger.Warn().Str("job_id", jobID).Err(err).Msg("Follow-up answer generation failed")
		WriteError(w, http.StatusBadGateway, "Answer generation failed: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"job_id":   jobID,
		"question": question,
		"answer":   strings.TrimSpace(answer),
	})
}

func buildAskPrompt(companyName, question, reportContext string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are a financial analyst. Answer the question about %s using the report excerpts below.\n\n", companyName))
	if reportContext != "" {
		sb.WriteString("Report excerpts:\n")
		sb.WriteString(reportContext)
		sb.WriteString("\n\n")
	} else {
		sb.WriteString("No report excerpts are available; say so if the question cannot be answered.\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}
