package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"pdf-qr-hub/internal/auth"
	"pdf-qr-hub/internal/database"
	"pdf-qr-hub/internal/infrastructure/config"
	"pdf-qr-hub/internal/infrastructure/di"
	"pdf-qr-hub/internal/logger"
	"pdf-qr-hub/internal/server"
)

const testPassword = "correct horse battery staple"

type testEnvelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Error   string                 `json:"error"`
}

// newTestApp boots a full router backed by a temporary database and
// storage tree.
func newTestApp(t *testing.T, requireAuth bool) (*mux.Router, *config.Config) {
	t.Helper()

	tmp := t.TempDir()
	cfg := config.Default()
	cfg.Database.Database = filepath.Join(tmp, "test.db")
	cfg.Storage.Root = filepath.Join(tmp, "uploads")
	cfg.Auth.AdminPasswordHash = auth.HashPassword(testPassword)
	cfg.Auth.RequireAuth = &requireAuth

	if err := database.InitDatabase(cfg.Database.Database); err != nil {
		t.Fatalf("InitDatabase failed: %v", err)
	}
	db := database.GetDatabase()
	t.Cleanup(func() { _ = db.Close() })

	if err := logger.InitLogger(db.GetDB()); err != nil {
		t.Fatalf("InitLogger failed: %v", err)
	}

	authn := auth.NewAuthenticator(cfg, auth.NewMemorySessionStore())
	srv := server.New(cfg, authn)
	RegisterRoutes(srv.Router, cfg, di.New(db.GetDB()), authn)
	return srv.Router, cfg
}

func addPDFPart(t *testing.T, w *multipart.Writer, filename, contentType string, content []byte) {
	t.Helper()
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="pdfs"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart failed: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("writing part failed: %v", err)
	}
}

func doUpload(t *testing.T, router *mux.Router, build func(*multipart.Writer)) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	build(w)
	if err := w.Close(); err != nil {
		t.Fatalf("closing multipart writer failed: %v", err)
	}
	req := httptest.NewRequest("POST", "http://files.example/api/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func uploadOnePDF(t *testing.T, router *mux.Router, filename string, content []byte) string {
	t.Helper()
	rr := doUpload(t, router, func(w *multipart.Writer) {
		addPDFPart(t, w, filename, "application/pdf", content)
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("upload returned %d: %s", rr.Code, rr.Body.String())
	}
	var env testEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding upload response failed: %v", err)
	}
	files := env.Data["files"].([]interface{})
	return files[0].(map[string]interface{})["id"].(string)
}

func doJSON(router *mux.Router, method, path string, payload interface{}, token string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, "http://files.example"+path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding response failed: %v (body: %s)", err, rr.Body.String())
	}
	return env
}

func TestUploadAndFileInfo(t *testing.T) {
	router, cfg := newTestApp(t, false)

	content := []byte("%PDF-1.4 test document")
	rr := doUpload(t, router, func(w *multipart.Writer) {
		addPDFPart(t, w, "manual.pdf", "application/pdf", content)
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("upload returned %d: %s", rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	if !env.Success {
		t.Fatal("expected success response")
	}

	files := env.Data["files"].([]interface{})
	if len(files) != 1 {
		t.Fatalf("expected 1 uploaded file, got %d", len(files))
	}
	file := files[0].(map[string]interface{})
	id := file["id"].(string)
	if id == "" {
		t.Fatal("expected non-empty file id")
	}
	wantURL := "http://files.example/api/pdf/" + id
	if file["downloadUrl"] != wantURL {
		t.Errorf("downloadUrl = %v, want %s", file["downloadUrl"], wantURL)
	}
	qrURL := file["qrCode"].(string)
	if !strings.HasPrefix(qrURL, "http://files.example/uploads/qrcodes/qr_") {
		t.Errorf("unexpected qrCode url: %s", qrURL)
	}

	// The QR image must exist on disk under the qrcodes directory.
	qrPath := filepath.Join(cfg.QRDir(), filepath.Base(qrURL))
	if _, err := os.Stat(qrPath); err != nil {
		t.Errorf("expected QR image at %s: %v", qrPath, err)
	}

	info := decodeEnvelope(t, doJSON(router, "GET", "/api/file-info/"+id, nil, ""))
	if info.Data["originalName"] != "manual.pdf" {
		t.Errorf("originalName = %v, want manual.pdf", info.Data["originalName"])
	}
	if int64(info.Data["fileSize"].(float64)) != int64(len(content)) {
		t.Errorf("fileSize = %v, want %d", info.Data["fileSize"], len(content))
	}
	if info.Data["downloadCount"].(float64) != 0 {
		t.Errorf("expected zero downloads, got %v", info.Data["downloadCount"])
	}
}

func TestUploadRejectsNonPDFWithoutPersisting(t *testing.T) {
	router, cfg := newTestApp(t, false)

	rr := doUpload(t, router, func(w *multipart.Writer) {
		addPDFPart(t, w, "fine.pdf", "application/pdf", []byte("%PDF-1.4"))
		addPDFPart(t, w, "notes.txt", "text/plain", []byte("plain text"))
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Error != "INVALID_FILE_TYPE" {
		t.Errorf("error code = %q, want INVALID_FILE_TYPE", env.Error)
	}

	// A bad part in the batch must leave nothing behind.
	list := decodeEnvelope(t, doJSON(router, "GET", "/api/files", nil, ""))
	pagination := list.Data["pagination"].(map[string]interface{})
	if pagination["total"].(float64) != 0 {
		t.Errorf("expected empty store, got total %v", pagination["total"])
	}
	if entries, err := os.ReadDir(cfg.PDFDir()); err == nil && len(entries) != 0 {
		t.Errorf("expected no stored PDFs, found %d", len(entries))
	}
}

func TestUploadWithoutFiles(t *testing.T) {
	router, _ := newTestApp(t, false)

	rr := doUpload(t, router, func(w *multipart.Writer) {})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Error != "NO_FILES" {
		t.Errorf("error code = %q, want NO_FILES", env.Error)
	}
}

func TestDownloadStreamsAndCounts(t *testing.T) {
	router, _ := newTestApp(t, false)

	content := []byte("%PDF-1.4 downloadable")
	id := uploadOnePDF(t, router, "paper.pdf", content)

	for i := 0; i < 2; i++ {
		rr := doJSON(router, "GET", "/api/pdf/"+id, nil, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("download %d returned %d", i+1, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("Content-Type = %q, want application/pdf", ct)
		}
		if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "inline") ||
			!strings.Contains(cd, "paper.pdf") {
			t.Errorf("unexpected Content-Disposition: %q", cd)
		}
		if !bytes.Equal(rr.Body.Bytes(), content) {
			t.Error("downloaded bytes differ from uploaded content")
		}
	}

	info := decodeEnvelope(t, doJSON(router, "GET", "/api/file-info/"+id, nil, ""))
	if info.Data["downloadCount"].(float64) != 2 {
		t.Errorf("downloadCount = %v, want 2", info.Data["downloadCount"])
	}
}

func TestDownloadUnknownID(t *testing.T) {
	router, _ := newTestApp(t, false)

	rr := doJSON(router, "GET", "/api/pdf/does-not-exist", nil, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Error != "FILE_NOT_FOUND" {
		t.Errorf("error code = %q, want FILE_NOT_FOUND", env.Error)
	}
}

func TestDownloadMissingFromStorage(t *testing.T) {
	router, _ := newTestApp(t, false)

	id := uploadOnePDF(t, router, "gone.pdf", []byte("%PDF-1.4"))

	rec, err := database.GetDatabase().GetFileRecordByID(id)
	if err != nil || rec == nil {
		t.Fatalf("expected stored record: %v", err)
	}
	if err := os.Remove(rec.StoragePath); err != nil {
		t.Fatalf("removing backing file failed: %v", err)
	}

	rr := doJSON(router, "GET", "/api/pdf/"+id, nil, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Error != "FILE_MISSING" {
		t.Errorf("error code = %q, want FILE_MISSING", env.Error)
	}
}

func TestQREndpointDoesNotCount(t *testing.T) {
	router, _ := newTestApp(t, false)

	id := uploadOnePDF(t, router, "qr.pdf", []byte("%PDF-1.4"))

	rr := doJSON(router, "GET", "/api/qr/"+id, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("qr fetch returned %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if rr.Body.Len() == 0 {
		t.Error("expected PNG payload")
	}

	info := decodeEnvelope(t, doJSON(router, "GET", "/api/file-info/"+id, nil, ""))
	if info.Data["downloadCount"].(float64) != 0 {
		t.Errorf("qr fetch must not count as download, got %v", info.Data["downloadCount"])
	}
}

func TestListPagination(t *testing.T) {
	router, _ := newTestApp(t, false)

	db := database.GetDatabase()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 15; i++ {
		rec := &database.FileRecord{
			ID:           fmt.Sprintf("file-%02d", i),
			OriginalName: fmt.Sprintf("doc-%02d.pdf", i),
			StoredName:   fmt.Sprintf("doc-%02d.pdf", i),
			StoragePath:  fmt.Sprintf("uploads/pdfs/doc-%02d.pdf", i),
			FileSize:     100,
			MimeType:     "application/pdf",
			QRCodePath:   fmt.Sprintf("uploads/qrcodes/qr_%02d.png", i),
			UploadDate:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.InsertFileRecord(rec); err != nil {
			t.Fatalf("seeding record %d failed: %v", i, err)
		}
	}

	env := decodeEnvelope(t, doJSON(router, "GET", "/api/files", nil, ""))
	files := env.Data["files"].([]interface{})
	if len(files) != 10 {
		t.Fatalf("default page size = %d, want 10", len(files))
	}
	first := files[0].(map[string]interface{})
	if first["id"] != "file-14" {
		t.Errorf("newest-first ordering violated: first id %v", first["id"])
	}
	pagination := env.Data["pagination"].(map[string]interface{})
	if pagination["total"].(float64) != 15 || pagination["pages"].(float64) != 2 {
		t.Errorf("pagination = %v, want total 15 pages 2", pagination)
	}

	env = decodeEnvelope(t, doJSON(router, "GET", "/api/files?page=2&limit=10", nil, ""))
	files = env.Data["files"].([]interface{})
	if len(files) != 5 {
		t.Fatalf("page 2 size = %d, want 5", len(files))
	}
	last := files[len(files)-1].(map[string]interface{})
	if last["id"] != "file-00" {
		t.Errorf("expected oldest file last on page 2, got %v", last["id"])
	}
}

func TestStats(t *testing.T) {
	router, _ := newTestApp(t, false)

	idA := uploadOnePDF(t, router, "a.pdf", []byte("%PDF-1.4 a"))
	uploadOnePDF(t, router, "b.pdf", []byte("%PDF-1.4 b"))

	for i := 0; i < 3; i++ {
		if rr := doJSON(router, "GET", "/api/pdf/"+idA, nil, ""); rr.Code != http.StatusOK {
			t.Fatalf("download returned %d", rr.Code)
		}
	}

	env := decodeEnvelope(t, doJSON(router, "GET", "/api/stats", nil, ""))
	if env.Data["totalFiles"].(float64) != 2 {
		t.Errorf("totalFiles = %v, want 2", env.Data["totalFiles"])
	}
	if env.Data["totalDownloads"].(float64) != 3 {
		t.Errorf("totalDownloads = %v, want 3", env.Data["totalDownloads"])
	}
	if env.Data["todayUploads"].(float64) != 2 {
		t.Errorf("todayUploads = %v, want 2", env.Data["todayUploads"])
	}
	if recent := env.Data["recentFiles"].([]interface{}); len(recent) != 2 {
		t.Errorf("recentFiles length = %d, want 2", len(recent))
	}
}

func TestStatsEmptyStore(t *testing.T) {
	router, _ := newTestApp(t, false)

	env := decodeEnvelope(t, doJSON(router, "GET", "/api/stats", nil, ""))
	if env.Data["totalFiles"].(float64) != 0 || env.Data["totalDownloads"].(float64) != 0 {
		t.Errorf("expected zeroed stats, got %v", env.Data)
	}
}

func TestDeleteRemovesRecordAndFiles(t *testing.T) {
	router, _ := newTestApp(t, false)

	id := uploadOnePDF(t, router, "victim.pdf", []byte("%PDF-1.4"))
	rec, err := database.GetDatabase().GetFileRecordByID(id)
	if err != nil || rec == nil {
		t.Fatalf("expected stored record: %v", err)
	}

	rr := doJSON(router, "DELETE", "/api/file/"+id, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete returned %d: %s", rr.Code, rr.Body.String())
	}

	if _, err := os.Stat(rec.StoragePath); !os.IsNotExist(err) {
		t.Error("expected PDF removed from disk")
	}
	if _, err := os.Stat(rec.QRCodePath); !os.IsNotExist(err) {
		t.Error("expected QR image removed from disk")
	}
	if rr := doJSON(router, "GET", "/api/file-info/"+id, nil, ""); rr.Code != http.StatusNotFound {
		t.Errorf("file-info after delete returned %d, want 404", rr.Code)
	}

	// Deleting again reports not found.
	if rr := doJSON(router, "DELETE", "/api/file/"+id, nil, ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete returned %d, want 404", rr.Code)
	}
}

func TestAuthGate(t *testing.T) {
	router, _ := newTestApp(t, true)

	// Admin endpoints reject anonymous callers.
	for _, probe := range []struct{ method, path string }{
		{"GET", "/api/files"},
		{"GET", "/api/stats"},
		{"DELETE", "/api/file/some-id"},
	} {
		if rr := doJSON(router, probe.method, probe.path, nil, ""); rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token returned %d, want 401", probe.method, probe.path, rr.Code)
		}
	}

	// Public endpoints stay reachable (404 proves the gate let them through).
	if rr := doJSON(router, "GET", "/api/pdf/nope", nil, ""); rr.Code != http.StatusNotFound {
		t.Errorf("public download returned %d, want 404", rr.Code)
	}
	if rr := doJSON(router, "GET", "/api/health", nil, ""); rr.Code != http.StatusOK {
		t.Errorf("health returned %d, want 200", rr.Code)
	}

	// Wrong credentials are rejected without a session.
	rr := doJSON(router, "POST", "/api/auth/login",
		map[string]string{"username": "admin", "password": "wrong"}, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login returned %d, want 401", rr.Code)
	}

	// Valid login yields a working bearer token.
	rr = doJSON(router, "POST", "/api/auth/login",
		map[string]string{"username": "admin", "password": testPassword}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rr.Code, rr.Body.String())
	}
	token := decodeEnvelope(t, rr).Data["token"].(string)
	if token == "" {
		t.Fatal("expected session token")
	}

	if rr := doJSON(router, "GET", "/api/files", nil, token); rr.Code != http.StatusOK {
		t.Errorf("authorized list returned %d, want 200", rr.Code)
	}

	check := decodeEnvelope(t, doJSON(router, "GET", "/api/auth/check", nil, token))
	if check.Data["authenticated"] != true || check.Data["username"] != "admin" {
		t.Errorf("unexpected check payload: %v", check.Data)
	}

	// Logout invalidates the token.
	if rr := doJSON(router, "POST", "/api/auth/logout", nil, token); rr.Code != http.StatusOK {
		t.Fatalf("logout returned %d", rr.Code)
	}
	if rr := doJSON(router, "GET", "/api/files", nil, token); rr.Code != http.StatusUnauthorized {
		t.Errorf("list after logout returned %d, want 401", rr.Code)
	}
}

func TestLoginMissingFields(t *testing.T) {
	router, _ := newTestApp(t, true)

	rr := doJSON(router, "POST", "/api/auth/login", map[string]string{"username": "admin"}, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Error != "MISSING_FIELDS" {
		t.Errorf("error code = %q, want MISSING_FIELDS", env.Error)
	}
}
