package logger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"time"
)

// LogLevel represents logging severity level
type LogLevel string

const (
	LogLevelDEBUG LogLevel = "DEBUG"
	LogLevelINFO  LogLevel = "INFO"
	LogLevelWARN  LogLevel = "WARN"
	LogLevelERROR LogLevel = "ERROR"
)

// EventCode represents structured event types
type EventCode string

const (
	EventAPIRequest   EventCode = "API_REQUEST"
	EventAPIResponse  EventCode = "API_RESPONSE"
	EventLogin        EventCode = "USER_LOGIN"
	EventLogout       EventCode = "USER_LOGOUT"
	EventFileUpload   EventCode = "FILE_UPLOAD"
	EventFileDownload EventCode = "FILE_DOWNLOAD"
	EventFileDelete   EventCode = "FILE_DELETE"
	EventSystemStart  EventCode = "SYSTEM_START"
	EventError        EventCode = "ERROR"
)

// StructuredLog is the persisted log record format
type StructuredLog struct {
	Timestamp      string                 `json:"timestamp"`
	Level          LogLevel               `json:"level"`
	EventCode      EventCode              `json:"event_code"`
	Message        string                 `json:"message"`
	Details        map[string]interface{} `json:"details"`
	Hostname       string                 `json:"hostname"`
	SourceLocation string                 `json:"source_location"`
}

// Logger writes structured logs to stdout and database
type Logger struct {
	db       *sql.DB
	hostname string
}

var defaultLogger *Logger

// InitLogger initializes default logger
func InitLogger(db *sql.DB) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	defaultLogger = &Logger{
		db:       db,
		hostname: hostname,
	}

	return nil
}

// GetLogger returns the default logger, falling back to a stdout-only
// logger when InitLogger was never called.
func GetLogger() *Logger {
	if defaultLogger == nil {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		defaultLogger = &Logger{hostname: hostname}
	}
	return defaultLogger
}

// LogUserLogin records a user login attempt
func (l *Logger) LogUserLogin(username, remoteAddr string, success bool) {
	details := map[string]interface{}{
		"username":    username,
		"remote_addr": remoteAddr,
		"success":     success,
	}
	level := LogLevelINFO
	message := fmt.Sprintf("User login success: %s", username)
	if !success {
		level = LogLevelWARN
		message = fmt.Sprintf("User login failed: %s", username)
	}
	l.log(level, EventLogin, message, details)
}

// LogFileUpload records a file upload event
func (l *Logger) LogFileUpload(filePath, uploader string, fileSize int64, details map[string]interface{}) {
	uploadDetails := map[string]interface{}{
		"file_path": filePath,
		"uploader":  uploader,
		"file_size": fileSize,
	}
	for k, v := range details {
		uploadDetails[k] = v
	}
	l.log(LogLevelINFO, EventFileUpload, fmt.Sprintf("File upload: %s (%d bytes) by %s", filePath, fileSize, uploader), uploadDetails)
}

// LogFileDownload records a file download event
func (l *Logger) LogFileDownload(fileID, remoteAddr string, fileSize int64, details map[string]interface{}) {
	downloadDetails := map[string]interface{}{
		"file_id":     fileID,
		"remote_addr": remoteAddr,
		"file_size":   fileSize,
	}
	for k, v := range details {
		downloadDetails[k] = v
	}
	l.log(LogLevelINFO, EventFileDownload, fmt.Sprintf("File download: %s (%d bytes)", fileID, fileSize), downloadDetails)
}

// LogError records an error event with optional error payload
func (l *Logger) LogError(message string, err error, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	if err != nil {
		details["error"] = err.Error()
	}
	l.log(LogLevelERROR, EventError, message, details)
}

// InfoCtx records an info event enriched with error code, request id and actor.
func (l *Logger) InfoCtx(eventCode EventCode, message string, details map[string]interface{}, code string, requestID interface{}, actor string) {
	l.logCtx(LogLevelINFO, eventCode, message, details, code, requestID, actor)
}

// WarnCtx records a warning event enriched with error code, request id and actor.
func (l *Logger) WarnCtx(eventCode EventCode, message string, details map[string]interface{}, code string, requestID interface{}, actor string) {
	l.logCtx(LogLevelWARN, eventCode, message, details, code, requestID, actor)
}

// ErrorCtx records an error event enriched with error code, request id and actor.
func (l *Logger) ErrorCtx(eventCode EventCode, message string, details map[string]interface{}, code string, requestID interface{}, actor string) {
	l.logCtx(LogLevelERROR, eventCode, message, details, code, requestID, actor)
}

func (l *Logger) logCtx(level LogLevel, eventCode EventCode, message string, details map[string]interface{}, code string, requestID interface{}, actor string) {
	merged := make(map[string]interface{}, len(details)+3)
	for k, v := range details {
		merged[k] = v
	}
	if code != "" {
		merged["code"] = code
	}
	if requestID != nil {
		merged["request_id"] = requestID
	}
	if actor != "" {
		merged["actor"] = actor
	}
	l.log(level, eventCode, message, merged)
}

// log writes structured log to stdout and persists to DB
func (l *Logger) log(level LogLevel, eventCode EventCode, message string, details map[string]interface{}) {
	// Capture caller location
	_, file, line, ok := runtime.Caller(2)
	sourceLocation := "unknown"
	if ok {
		parts := strings.Split(file, "/")
		filename := parts[len(parts)-1]
		sourceLocation = fmt.Sprintf("%s:%d", filename, line)
	}

	structuredLog := StructuredLog{
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
		Level:          level,
		EventCode:      eventCode,
		Message:        message,
		Details:        details,
		Hostname:       l.hostname,
		SourceLocation: sourceLocation,
	}

	// Console
	logJSON, _ := json.Marshal(structuredLog)
	log.Printf("%s", string(logJSON))

	// Persist
	l.saveToDatabase(structuredLog)
}

// saveToDatabase persists a structured log into access_logs
func (l *Logger) saveToDatabase(logEntry StructuredLog) {
	if l.db == nil {
		return
	}

	detailsJSON, _ := json.Marshal(logEntry.Details)

	insertSQL := `
	INSERT INTO access_logs (
		timestamp, level, event_code, message, details, hostname, source_location
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := l.db.Exec(insertSQL,
		logEntry.Timestamp,
		logEntry.Level,
		logEntry.EventCode,
		logEntry.Message,
		string(detailsJSON),
		logEntry.Hostname,
		logEntry.SourceLocation,
	)
	if err != nil {
		log.Printf("Failed to save log to database: %v", err)
	}
}

// GetAccessLogs loads recent logs with pagination
func (l *Logger) GetAccessLogs(limit int, offset int) ([]StructuredLog, error) {
	querySQL := `
	SELECT timestamp, level, event_code, message, details, hostname, source_location
	FROM access_logs
	ORDER BY timestamp DESC
	LIMIT ? OFFSET ?
	`

	rows, err := l.db.Query(querySQL, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []StructuredLog
	for rows.Next() {
		var logRec StructuredLog
		var detailsJSON string

		err := rows.Scan(
			&logRec.Timestamp,
			&logRec.Level,
			&logRec.EventCode,
			&logRec.Message,
			&detailsJSON,
			&logRec.Hostname,
			&logRec.SourceLocation,
		)
		if err != nil {
			continue
		}

		if detailsJSON != "" {
			_ = json.Unmarshal([]byte(detailsJSON), &logRec.Details)
		}
		logs = append(logs, logRec)
	}
	return logs, nil
}

// Close detaches the logger from its database handle. The handle itself is
// owned by the database layer and closed there.
func (l *Logger) Close() error {
	l.db = nil
	return nil
}
