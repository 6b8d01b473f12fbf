package entities

import "time"

type File struct {
	ID            string
	OriginalName  string
	StoredName    string
	StoragePath   string
	Size          int64
	MimeType      string
	QRCodePath    string
	UploadDate    time.Time
	DownloadCount int64
	LastAccessed  time.Time
}
