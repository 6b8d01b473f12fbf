package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Database manager struct
type Database struct {
	db *sql.DB
}

// FileRecord represents one uploaded PDF in the database
type FileRecord struct {
	ID            string    `json:"id"`
	OriginalName  string    `json:"originalName"`
	StoredName    string    `json:"fileName"`
	StoragePath   string    `json:"filePath"`
	FileSize      int64     `json:"fileSize"`
	MimeType      string    `json:"mimeType"`
	QRCodePath    string    `json:"qrCodePath"`
	UploadDate    time.Time `json:"uploadDate"`
	DownloadCount int64     `json:"downloadCount"`
	LastAccessed  time.Time `json:"lastAccessed"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FileStats aggregates counters across all records
type FileStats struct {
	TotalFiles     int          `json:"totalFiles"`
	TotalDownloads int64        `json:"totalDownloads"`
	TodayUploads   int          `json:"todayUploads"`
	RecentFiles    []FileRecord `json:"recentFiles"`
}

var defaultDB *Database

// duplicateIDError marks an insert that hit the id uniqueness constraint.
type duplicateIDError struct{ id string }

func (e duplicateIDError) Error() string {
	return fmt.Sprintf("file record %s already exists", e.id)
}

// IsDuplicateID reports whether err came from an id collision on insert.
func IsDuplicateID(err error) bool {
	_, ok := err.(duplicateIDError)
	return ok
}

// InitDatabase initializes the database connection and creates tables
func InitDatabase(dbPath string) error {
	// Create directory if not exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}

	// Enable foreign keys and WAL mode for better performance
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %v", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %v", err)
	}

	defaultDB = &Database{db: db}

	if err := defaultDB.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %v", err)
	}

	return nil
}

// GetDatabase returns the default database instance
func GetDatabase() *Database {
	return defaultDB
}

// createTables creates all necessary database tables
func (d *Database) createTables() error {
	// Files table
	createFilesTable := `
	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		original_name TEXT NOT NULL,
		stored_name TEXT NOT NULL,
		file_path TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		mime_type TEXT NOT NULL,
		qr_code_path TEXT NOT NULL,
		upload_date TEXT NOT NULL,
		download_count INTEGER NOT NULL DEFAULT 0,
		last_accessed TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_files_upload_date ON files(upload_date);
	CREATE INDEX IF NOT EXISTS idx_files_stored_name ON files(stored_name);
	`

	// Access logs table
	createLogsTable := `
	CREATE TABLE IF NOT EXISTS access_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		level TEXT NOT NULL,
		event_code TEXT NOT NULL,
		message TEXT NOT NULL,
		details TEXT,
		hostname TEXT NOT NULL,
		source_location TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON access_logs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_logs_event_code ON access_logs(event_code);
	`

	// File operations audit log
	createAuditTable := `
	CREATE TABLE IF NOT EXISTS file_audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_id TEXT NOT NULL,
		operation TEXT NOT NULL, -- 'upload', 'download', 'delete'
		operator TEXT NOT NULL,
		operation_time TEXT NOT NULL,
		details TEXT, -- JSON details
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_audit_file_id ON file_audit_logs(file_id);
	CREATE INDEX IF NOT EXISTS idx_audit_operation ON file_audit_logs(operation);
	`

	// Execute all table creation statements
	tables := []string{createFilesTable, createLogsTable, createAuditTable}
	for _, table := range tables {
		if _, err := d.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %v", err)
		}
	}

	return nil
}

// InsertFileRecord inserts a new file record
func (d *Database) InsertFileRecord(record *FileRecord) error {
	record.CreatedAt = time.Now()
	record.UpdatedAt = time.Now()
	if record.LastAccessed.IsZero() {
		record.LastAccessed = record.UploadDate
	}

	query := `
	INSERT INTO files (
		id, original_name, stored_name, file_path, file_size, mime_type,
		qr_code_path, upload_date, download_count, last_accessed,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := d.db.Exec(query,
		record.ID, record.OriginalName, record.StoredName, record.StoragePath,
		record.FileSize, record.MimeType, record.QRCodePath,
		record.UploadDate.Format(time.RFC3339), record.DownloadCount,
		record.LastAccessed.Format(time.RFC3339),
		record.CreatedAt.Format(time.RFC3339), record.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return duplicateIDError{id: record.ID}
		}
		return fmt.Errorf("failed to insert file record: %v", err)
	}

	// Log the upload operation
	d.LogFileOperation(record.ID, "upload", "admin", map[string]interface{}{
		"original_name": record.OriginalName,
		"size":          record.FileSize,
	})

	return nil
}

// GetFileRecordByID returns a single record, or nil when absent
func (d *Database) GetFileRecordByID(id string) (*FileRecord, error) {
	query := `
	SELECT id, original_name, stored_name, file_path, file_size, mime_type,
		   qr_code_path, upload_date, download_count, last_accessed,
		   created_at, updated_at
	FROM files
	WHERE id = ?
	`

	rows, err := d.db.Query(query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := d.scanFileRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// ListFilesWithPagination returns one page of records sorted by upload date
// descending, plus the total record count.
func (d *Database) ListFilesWithPagination(offset, limit int) ([]FileRecord, int, error) {
	var total int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count files: %v", err)
	}

	query := `
	SELECT id, original_name, stored_name, file_path, file_size, mime_type,
		   qr_code_path, upload_date, download_count, last_accessed,
		   created_at, updated_at
	FROM files
	ORDER BY upload_date DESC, id DESC
	LIMIT ? OFFSET ?
	`

	rows, err := d.db.Query(query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records, err := d.scanFileRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// RecordDownload increments download_count and stamps last_accessed
func (d *Database) RecordDownload(id string, accessedAt time.Time) error {
	query := `
	UPDATE files
	SET download_count = download_count + 1, last_accessed = ?, updated_at = ?
	WHERE id = ?
	`

	result, err := d.db.Exec(query,
		accessedAt.Format(time.RFC3339), time.Now().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to record download: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("file record not found")
	}

	d.LogFileOperation(id, "download", "anonymous", map[string]interface{}{
		"accessed_at": accessedAt.Format(time.RFC3339),
	})

	return nil
}

// DeleteFileRecord removes a record permanently
func (d *Database) DeleteFileRecord(id string) error {
	result, err := d.db.Exec(`DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("file record not found")
	}

	d.LogFileOperation(id, "delete", "admin", nil)

	return nil
}

// GetFileStats aggregates totals for the stats endpoint. todayStart bounds
// the current calendar day in server-local time; recentLimit caps the
// most-recently-uploaded list.
func (d *Database) GetFileStats(todayStart time.Time, recentLimit int) (*FileStats, error) {
	stats := &FileStats{RecentFiles: []FileRecord{}}

	if err := d.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&stats.TotalFiles); err != nil {
		return nil, fmt.Errorf("failed to count files: %v", err)
	}

	if err := d.db.QueryRow(`SELECT COALESCE(SUM(download_count), 0) FROM files`).Scan(&stats.TotalDownloads); err != nil {
		return nil, fmt.Errorf("failed to sum downloads: %v", err)
	}

	if err := d.db.QueryRow(`SELECT COUNT(*) FROM files WHERE upload_date >= ?`,
		todayStart.Format(time.RFC3339)).Scan(&stats.TodayUploads); err != nil {
		return nil, fmt.Errorf("failed to count today's uploads: %v", err)
	}

	query := `
	SELECT id, original_name, stored_name, file_path, file_size, mime_type,
		   qr_code_path, upload_date, download_count, last_accessed,
		   created_at, updated_at
	FROM files
	ORDER BY upload_date DESC, id DESC
	LIMIT ?
	`

	rows, err := d.db.Query(query, recentLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recent, err := d.scanFileRecords(rows)
	if err != nil {
		return nil, err
	}
	stats.RecentFiles = recent

	return stats, nil
}

// LogFileOperation logs file operations to audit table
func (d *Database) LogFileOperation(fileID, operation, operator string, details map[string]interface{}) error {
	detailsJSON, _ := json.Marshal(details)

	query := `
	INSERT INTO file_audit_logs (file_id, operation, operator, operation_time, details)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := d.db.Exec(query, fileID, operation, operator, time.Now().Format(time.RFC3339), string(detailsJSON))
	if err != nil {
		log.Printf("Failed to log file operation: %v", err)
		return err
	}

	return nil
}

// scanFileRecords helper function to scan file records from rows
func (d *Database) scanFileRecords(rows *sql.Rows) ([]FileRecord, error) {
	var records []FileRecord

	for rows.Next() {
		var record FileRecord
		var uploadDateStr, lastAccessedStr, createdAtStr, updatedAtStr string

		err := rows.Scan(
			&record.ID, &record.OriginalName, &record.StoredName,
			&record.StoragePath, &record.FileSize, &record.MimeType,
			&record.QRCodePath, &uploadDateStr, &record.DownloadCount,
			&lastAccessedStr, &createdAtStr, &updatedAtStr,
		)

		if err != nil {
			log.Printf("Error scanning file record: %v", err)
			continue
		}

		// Parse time fields
		if uploadDate, err := time.Parse(time.RFC3339, uploadDateStr); err == nil {
			record.UploadDate = uploadDate
		}
		if lastAccessed, err := time.Parse(time.RFC3339, lastAccessedStr); err == nil {
			record.LastAccessed = lastAccessed
		}
		if createdAt, err := time.Parse(time.RFC3339, createdAtStr); err == nil {
			record.CreatedAt = createdAt
		}
		if updatedAt, err := time.Parse(time.RFC3339, updatedAtStr); err == nil {
			record.UpdatedAt = updatedAt
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

// GetDB returns the underlying sql.DB instance
func (d *Database) GetDB() *sql.DB {
	return d.db
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
