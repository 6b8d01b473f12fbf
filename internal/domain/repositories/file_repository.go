package repositories

import (
	"time"

	"pdf-qr-hub/internal/domain/entities"
)

// StatsSummary aggregates store-wide counters for the stats endpoint.
type StatsSummary struct {
	TotalFiles     int
	TotalDownloads int64
	TodayUploads   int
	RecentFiles    []entities.File
}

type FileRepository interface {
	Insert(file *entities.File) error
	GetByID(id string) (*entities.File, error)
	List(offset, limit int) ([]entities.File, int, error)
	Delete(id string) error
	// RecordDownload increments the download counter and stamps lastAccessed.
	RecordDownload(id string, accessedAt time.Time) error
	Stats(todayStart time.Time, recentLimit int) (*StatsSummary, error)
}
