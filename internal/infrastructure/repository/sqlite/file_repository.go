package sqlite

import (
	"errors"
	"time"

	dbpkg "pdf-qr-hub/internal/database"
	"pdf-qr-hub/internal/domain/entities"
	"pdf-qr-hub/internal/domain/repositories"
)

// ErrDBUnavailable is returned when the default database was never initialized.
var ErrDBUnavailable = errors.New("database not available")

type FileRepo struct{}

var _ repositories.FileRepository = (*FileRepo)(nil)

func NewFileRepo() *FileRepo { return &FileRepo{} }

func toEntity(rec dbpkg.FileRecord) entities.File {
	return entities.File{
		ID:            rec.ID,
		OriginalName:  rec.OriginalName,
		StoredName:    rec.StoredName,
		StoragePath:   rec.StoragePath,
		Size:          rec.FileSize,
		MimeType:      rec.MimeType,
		QRCodePath:    rec.QRCodePath,
		UploadDate:    rec.UploadDate,
		DownloadCount: rec.DownloadCount,
		LastAccessed:  rec.LastAccessed,
	}
}

func (r *FileRepo) Insert(file *entities.File) error {
	db := dbpkg.GetDatabase()
	if db == nil {
		return ErrDBUnavailable
	}
	rec := dbpkg.FileRecord{
		ID:            file.ID,
		OriginalName:  file.OriginalName,
		StoredName:    file.StoredName,
		StoragePath:   file.StoragePath,
		FileSize:      file.Size,
		MimeType:      file.MimeType,
		QRCodePath:    file.QRCodePath,
		UploadDate:    file.UploadDate,
		DownloadCount: file.DownloadCount,
		LastAccessed:  file.LastAccessed,
	}
	return db.InsertFileRecord(&rec)
}

func (r *FileRepo) GetByID(id string) (*entities.File, error) {
	db := dbpkg.GetDatabase()
	if db == nil {
		return nil, ErrDBUnavailable
	}
	rec, err := db.GetFileRecordByID(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	e := toEntity(*rec)
	return &e, nil
}

func (r *FileRepo) List(offset, limit int) ([]entities.File, int, error) {
	db := dbpkg.GetDatabase()
	if db == nil {
		return nil, 0, ErrDBUnavailable
	}
	recs, total, err := db.ListFilesWithPagination(offset, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]entities.File, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toEntity(rec))
	}
	return out, total, nil
}

func (r *FileRepo) Delete(id string) error {
	db := dbpkg.GetDatabase()
	if db == nil {
		return ErrDBUnavailable
	}
	return db.DeleteFileRecord(id)
}

func (r *FileRepo) RecordDownload(id string, accessedAt time.Time) error {
	db := dbpkg.GetDatabase()
	if db == nil {
		return ErrDBUnavailable
	}
	return db.RecordDownload(id, accessedAt)
}

func (r *FileRepo) Stats(todayStart time.Time, recentLimit int) (*repositories.StatsSummary, error) {
	db := dbpkg.GetDatabase()
	if db == nil {
		return nil, ErrDBUnavailable
	}
	stats, err := db.GetFileStats(todayStart, recentLimit)
	if err != nil {
		return nil, err
	}
	recent := make([]entities.File, 0, len(stats.RecentFiles))
	for _, rec := range stats.RecentFiles {
		recent = append(recent, toEntity(rec))
	}
	return &repositories.StatsSummary{
		TotalFiles:     stats.TotalFiles,
		TotalDownloads: stats.TotalDownloads,
		TodayUploads:   stats.TodayUploads,
		RecentFiles:    recent,
	}, nil
}
