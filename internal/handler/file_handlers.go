package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"pdf-qr-hub/internal/database"
	"pdf-qr-hub/internal/domain/entities"
	domainerrors "pdf-qr-hub/internal/domain/errors"
	"pdf-qr-hub/internal/fileid"
	"pdf-qr-hub/internal/logger"
	"pdf-qr-hub/internal/middleware"
	"pdf-qr-hub/internal/qrcode"
)

// uploadedFileInfo is the per-file payload returned after a successful upload.
type uploadedFileInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	QRCode      string `json:"qrCode"`
	DownloadURL string `json:"downloadUrl"`
	UploadDate  string `json:"uploadDate"`
}

// listedFileInfo is one row of the admin file listing.
type listedFileInfo struct {
	ID            string `json:"id"`
	OriginalName  string `json:"originalName"`
	FileSize      int64  `json:"fileSize"`
	UploadDate    string `json:"uploadDate"`
	DownloadCount int64  `json:"downloadCount"`
	QRCode        string `json:"qrCode"`
	DownloadURL   string `json:"downloadUrl"`
}

// uploadHandler accepts one or more PDFs under the multipart field "pdfs",
// stores each one, and returns the generated id, download link and QR code
// image for each file. Every part is validated before anything is persisted
// so a bad file in a batch rejects the whole request.
func uploadHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["pdfs"]
	if len(parts) == 0 {
		writeErrorWithCode(w, http.StatusBadRequest, "NO_FILES", "No files uploaded")
		return
	}
	if len(parts) > maxUploadFiles {
		writeErrorWithCodeDetails(w, http.StatusBadRequest, "TOO_MANY_FILES",
			fmt.Sprintf("At most %d files per upload", maxUploadFiles),
			map[string]interface{}{"received": len(parts)})
		return
	}

	// Validate every part up front: nothing is written unless all parts pass.
	for _, part := range parts {
		if !isPDFPart(part) {
			writeErrorWithCodeDetails(w, http.StatusBadRequest, "INVALID_FILE_TYPE",
				"Only PDF files are accepted",
				map[string]interface{}{"file": part.Filename})
			return
		}
		if part.Size > maxUploadBytes {
			writeErrorWithCodeDetails(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
				"File exceeds the 50 MiB limit",
				map[string]interface{}{"file": part.Filename, "size": part.Size})
			return
		}
	}

	origin := requestOrigin(r)
	actor := requestActor(r)
	uploaded := make([]uploadedFileInfo, 0, len(parts))

	for _, part := range parts {
		info, err := storeUploadedPDF(part, origin, actor)
		if err != nil {
			if errors.Is(err, domainerrors.ErrDuplicateID) {
				writeErrorWithCode(w, http.StatusConflict, "DUPLICATE_ID", "File identifier already exists")
				return
			}
			logger.GetLogger().LogError("file upload failed", err, map[string]interface{}{
				"file": part.Filename,
			})
			writeErrorWithCode(w, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to store uploaded file")
			return
		}
		uploaded = append(uploaded, *info)
	}

	writeSuccessMessage(w, http.StatusOK,
		fmt.Sprintf("%d file(s) uploaded successfully", len(uploaded)),
		map[string]interface{}{"files": uploaded})
}

func storeUploadedPDF(part *multipart.FileHeader, origin, actor string) (*uploadedFileInfo, error) {
	src, err := part.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload part: %v", err)
	}
	defer src.Close()

	pdfDir := appConfig.PDFDir()
	if err := os.MkdirAll(pdfDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %v", err)
	}

	storedName := uuid.NewString() + ".pdf"
	storagePath := filepath.Join(pdfDir, storedName)
	dst, err := os.Create(storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %v", err)
	}
	size, err := io.Copy(dst, src)
	dst.Close()
	if err != nil {
		os.Remove(storagePath)
		return nil, fmt.Errorf("failed to write file: %v", err)
	}

	id := fileid.New()
	downloadURL := origin + "/api/pdf/" + id
	qrPath, err := qrcode.Generate(downloadURL, appConfig.QRDir())
	if err != nil {
		os.Remove(storagePath)
		return nil, err
	}

	now := time.Now()
	rec := entities.File{
		ID:           id,
		OriginalName: part.Filename,
		StoredName:   storedName,
		StoragePath:  storagePath,
		Size:         size,
		MimeType:     "application/pdf",
		QRCodePath:   qrPath,
		UploadDate:   now,
		LastAccessed: now,
	}
	if err := appContainer.Files.Insert(&rec); err != nil {
		os.Remove(storagePath)
		os.Remove(qrPath)
		if database.IsDuplicateID(err) {
			return nil, domainerrors.ErrDuplicateID
		}
		return nil, err
	}

	logger.GetLogger().LogFileUpload(storagePath, actor, size, map[string]interface{}{
		"file_id":       id,
		"original_name": part.Filename,
	})

	return &uploadedFileInfo{
		ID:          id,
		Name:        part.Filename,
		Size:        size,
		QRCode:      origin + "/uploads/qrcodes/" + filepath.Base(qrPath),
		DownloadURL: downloadURL,
		UploadDate:  now.Format(time.RFC3339),
	}, nil
}

// isPDFPart checks the declared media type of an upload part.
func isPDFPart(part *multipart.FileHeader) bool {
	mediaType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/pdf"
}

// downloadPDFHandler streams the stored PDF inline and records the download.
// A record whose backing file vanished from disk reports FILE_MISSING rather
// than FILE_NOT_FOUND.
func downloadPDFHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	file, err := appContainer.FileUC.Get(id)
	if err != nil {
		if errors.Is(err, domainerrors.ErrFileNotFound) {
			writeErrorWithCode(w, http.StatusNotFound, "FILE_NOT_FOUND", "File not found")
			return
		}
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to look up file")
		return
	}

	src, err := os.Open(file.StoragePath)
	if err != nil {
		writeErrorWithCode(w, http.StatusNotFound, "FILE_MISSING", "File missing from storage")
		return
	}
	defer src.Close()

	// Accounting is best effort: a failed counter update never blocks the
	// download itself.
	if err := appContainer.FileUC.RecordDownload(id); err != nil {
		logger.GetLogger().LogError("failed to record download", err, map[string]interface{}{
			"file_id": id,
		})
	}

	logger.GetLogger().LogFileDownload(id, r.RemoteAddr, file.Size, map[string]interface{}{
		"original_name": file.OriginalName,
	})

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", file.OriginalName))
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	io.Copy(w, src)
}

// downloadQRHandler serves the QR code image for a stored file.
func downloadQRHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	file, err := appContainer.FileUC.Get(id)
	if err != nil {
		if errors.Is(err, domainerrors.ErrFileNotFound) {
			writeErrorWithCode(w, http.StatusNotFound, "FILE_NOT_FOUND", "File not found")
			return
		}
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to look up file")
		return
	}

	src, err := os.Open(file.QRCodePath)
	if err != nil {
		writeErrorWithCode(w, http.StatusNotFound, "QR_NOT_FOUND", "QR code not found")
		return
	}
	defer src.Close()

	w.Header().Set("Content-Type", "image/png")
	io.Copy(w, src)
}

// fileInfoHandler returns public metadata for a stored file.
func fileInfoHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	file, err := appContainer.FileUC.Get(id)
	if err != nil {
		if errors.Is(err, domainerrors.ErrFileNotFound) {
			writeErrorWithCode(w, http.StatusNotFound, "FILE_NOT_FOUND", "File not found")
			return
		}
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to look up file")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"id":            file.ID,
		"originalName":  file.OriginalName,
		"fileSize":      file.Size,
		"uploadDate":    file.UploadDate.Format(time.RFC3339),
		"downloadCount": file.DownloadCount,
		"lastAccessed":  file.LastAccessed.Format(time.RFC3339),
	})
}

// listFilesHandler returns one page of stored files, newest first.
func listFilesHandler(w http.ResponseWriter, r *http.Request) {
	page := parsePositiveInt(r.URL.Query().Get("page"), 1)
	limit := parsePositiveInt(r.URL.Query().Get("limit"), 10)

	files, total, err := appContainer.FileUC.ListWithPagination(page, limit)
	if err != nil {
		logger.GetLogger().LogError("failed to list files", err, nil)
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to list files")
		return
	}

	origin := requestOrigin(r)
	list := make([]listedFileInfo, 0, len(files))
	for _, f := range files {
		list = append(list, listedFileInfo{
			ID:            f.ID,
			OriginalName:  f.OriginalName,
			FileSize:      f.Size,
			UploadDate:    f.UploadDate.Format(time.RFC3339),
			DownloadCount: f.DownloadCount,
			QRCode:        origin + "/uploads/qrcodes/" + filepath.Base(f.QRCodePath),
			DownloadURL:   origin + "/api/pdf/" + f.ID,
		})
	}

	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"files": list,
		"pagination": map[string]interface{}{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": pages,
		},
	})
}

// deleteFileHandler removes the stored PDF, its QR image and the record.
func deleteFileHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := appContainer.FileUC.Delete(id); err != nil {
		if errors.Is(err, domainerrors.ErrFileNotFound) {
			writeErrorWithCode(w, http.StatusNotFound, "FILE_NOT_FOUND", "File not found")
			return
		}
		logger.GetLogger().LogError("failed to delete file", err, map[string]interface{}{
			"file_id": id,
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}

	logger.GetLogger().InfoCtx(logger.EventFileDelete, "file deleted",
		map[string]interface{}{"file_id": id}, "",
		r.Context().Value(middleware.RequestIDKey), requestActor(r))

	writeSuccessMessage(w, http.StatusOK, "File deleted successfully", nil)
}

// statsHandler returns store-wide counters and the most recent uploads.
func statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := appContainer.FileUC.Stats()
	if err != nil {
		logger.GetLogger().LogError("failed to compute stats", err, nil)
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}

	recent := make([]map[string]interface{}, 0, len(stats.RecentFiles))
	for _, f := range stats.RecentFiles {
		recent = append(recent, map[string]interface{}{
			"id":            f.ID,
			"originalName":  f.OriginalName,
			"uploadDate":    f.UploadDate.Format(time.RFC3339),
			"downloadCount": f.DownloadCount,
		})
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"totalFiles":     stats.TotalFiles,
		"totalDownloads": stats.TotalDownloads,
		"todayUploads":   stats.TodayUploads,
		"recentFiles":    recent,
	})
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
