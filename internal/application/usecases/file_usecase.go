package usecases

import (
	"os"
	"time"

	"pdf-qr-hub/internal/domain/entities"
	domainerrors "pdf-qr-hub/internal/domain/errors"
	"pdf-qr-hub/internal/domain/repositories"
)

type FileUseCase struct {
	files repositories.FileRepository
}

func NewFileUseCase(files repositories.FileRepository) *FileUseCase {
	return &FileUseCase{files: files}
}

// ListWithPagination returns one page of records (upload date descending)
// plus the total count. Non-positive page/limit fall back to 1 and 10.
func (uc *FileUseCase) ListWithPagination(page, limit int) ([]entities.File, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit
	return uc.files.List(offset, limit)
}

// Get returns the record for id, or a typed not-found error.
func (uc *FileUseCase) Get(id string) (*entities.File, error) {
	file, err := uc.files.GetByID(id)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, domainerrors.ErrFileNotFound
	}
	return file, nil
}

// RecordDownload bumps the download counter and stamps last access time.
func (uc *FileUseCase) RecordDownload(id string) error {
	return uc.files.RecordDownload(id, time.Now())
}

// Stats aggregates store-wide counters; "today" is the current calendar day
// in server-local time.
func (uc *FileUseCase) Stats() (*repositories.StatsSummary, error) {
	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return uc.files.Stats(todayStart, 5)
}

// Delete removes the PDF and QR files best-effort (a missing file is not an
// error), then deletes the record. Removal failures never roll back the
// record delete.
func (uc *FileUseCase) Delete(id string) error {
	file, err := uc.files.GetByID(id)
	if err != nil {
		return err
	}
	if file == nil {
		return domainerrors.ErrFileNotFound
	}

	if file.StoragePath != "" {
		os.Remove(file.StoragePath)
	}
	if file.QRCodePath != "" {
		os.Remove(file.QRCodePath)
	}

	return uc.files.Delete(id)
}
