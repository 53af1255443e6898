// Package handlers implements the HTTP endpoints.
package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/creditlens/creditlens/internal/api"
	"github.com/creditlens/creditlens/internal/domain"
	"github.com/creditlens/creditlens/internal/extract"
)

const maxUploadMemory = 32 << 20

type ReportJobRepository interface {
	Create(ctx context.Context, job *domain.ReportJob) error
	GetByID(ctx context.Context, id string) (*domain.ReportJob, error)
}

type ArtifactGetter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

type DocumentExtractor interface {
	Extract(path string) (*extract.Result, error)
}

// DownloadLinker mints a presigned URL for a stored artifact. Optional: when
// absent, status responses link to the local download route instead.
type DownloadLinker interface {
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

type ReportHandler struct {
	repo      ReportJobRepository
	store     ArtifactGetter
	extractor DocumentExtractor
	linker    DownloadLinker
	uploadDir string
}

func NewReportHandler(repo ReportJobRepository, store ArtifactGetter, extractor DocumentExtractor, linker DownloadLinker, uploadDir string) *ReportHandler {
	return &ReportHandler{
		repo:      repo,
		store:     store,
		extractor: extractor,
		linker:    linker,
		uploadDir: uploadDir,
	}
}

type ReportJobResponse struct {
	ID           string   `json:"id"`
	CompanyName  string   `json:"company_name"`
	Status       string   `json:"status"`
	SkippedFiles []string `json:"skipped_files,omitempty"`
	Error        string   `json:"error,omitempty"`
	DownloadLink string   `json:"download_link,omitempty"`
	CreatedAt    string   `json:"created_at"`
	ProcessedAt  string   `json:"processed_at,omitempty"`
}

func reportJobToResponse(j *domain.ReportJob) *ReportJobResponse {
	resp := &ReportJobResponse{
		ID:           j.ID,
		CompanyName:  j.CompanyName,
		Status:       string(j.Status),
		SkippedFiles: j.SkippedFiles,
		Error:        j.Error,
		CreatedAt:    j.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if j.ProcessedAt != nil {
		resp.ProcessedAt = j.ProcessedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

// Create accepts a multipart upload (company_name plus document files),
// extracts the document text, and enqueues a report job. Files whose text
// cannot be extracted are recorded as skipped, not rejected.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	companyName := r.FormValue("company_name")
	if companyName == "" {
		api.HandleError(w, domain.ErrMissingCompanyName)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		api.Error(w, http.StatusBadRequest, "at least one document file is required")
		return
	}

	var chunks []domain.Chunk
	var skipped []string
	for _, header := range files {
		path, err := h.saveUpload(header)
		if err != nil {
			api.Error(w, http.StatusInternalServerError, "failed to save upload")
			return
		}

		result, err := h.extractor.Extract(path)
		if err != nil || result.Unsupported {
			skipped = append(skipped, header.Filename)
			continue
		}
		chunks = append(chunks, result.Chunks...)
	}

	job := domain.NewReportJob(uuid.New().String(), companyName,
		domain.JoinChunks(chunks), skipped, time.Now().UTC())
	if err := domain.ValidateReportJob(job); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.Create(r.Context(), job); err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to enqueue report job")
		return
	}

	api.Success(w, http.StatusAccepted, reportJobToResponse(job))
}

// Get returns the status of a report job. Completed jobs carry a download
// link: a presigned object-store URL when one can be minted, the local
// download route otherwise.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")

	job, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := reportJobToResponse(job)
	resp.DownloadLink = h.downloadLink(r.Context(), job)

	api.Success(w, http.StatusOK, resp)
}

func (h *ReportHandler) downloadLink(ctx context.Context, job *domain.ReportJob) string {
	if job.Status != domain.ReportJobStatusCompleted || job.ArtifactKey == "" {
		return ""
	}

	if h.linker != nil {
		url, err := h.linker.GenerateDownloadURL(ctx, job.ArtifactKey)
		if err == nil {
			return url
		}
		log.Printf("failed to presign download for job %s: %v", job.ID, err)
	}

	return fmt.Sprintf("/reports/%s/download", job.ID)
}

// Download streams the rendered PDF of a completed job.
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")

	job, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if job.Status != domain.ReportJobStatusCompleted || job.ArtifactKey == "" {
		api.Error(w, http.StatusConflict,
			fmt.Sprintf("report job is %s, not completed", job.Status))
		return
	}

	data, err := h.store.Get(r.Context(), job.ArtifactKey)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", job.ArtifactKey))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// saveUpload writes one uploaded file into the upload directory under a
// unique name that keeps the original extension, so kind detection still
// works.
func (h *ReportHandler) saveUpload(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}

	name := uuid.New().String() + filepath.Ext(header.Filename)
	path := filepath.Join(h.uploadDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", err
	}

	return path, nil
}
