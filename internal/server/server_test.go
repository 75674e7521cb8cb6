package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gongdo-labs/deungdae/internal/extract"
	"github.com/gongdo-labs/deungdae/internal/store"
)

const testMetadata = `
학생정보:
  성명: 김민준
  학교: 한성고등학교

행동특성_및_종합의견:
  "1":
    평가내용: 공동체 기여가 꾸준함.
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	ref, err := store.New(filepath.Join(dir, "ref.db"))
	if err != nil {
		t.Fatalf("opening ref store: %v", err)
	}
	t.Cleanup(func() { ref.Close() })
	client, err := store.New(filepath.Join(dir, "client.db"))
	if err != nil {
		t.Fatalf("opening client store: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	engine := extract.NewService(10 * 1024 * 1024)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New("127.0.0.1:0", engine, ref, client, logger)
}

func multipartBody(t *testing.T, files map[string][2]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, nameAndContent := range files {
		part, err := mw.CreateFormFile(field, nameAndContent[0])
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		if _, err := part.Write([]byte(nameAndContent[1])); err != nil {
			t.Fatalf("writing form file: %v", err)
		}
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("writing field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestIngest_MetadataOnly(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartBody(t,
		map[string][2]string{"yaml": {"kim_minjun.yaml", testMetadata}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ref/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		DocumentID string `json:"document_id"`
		StudentID  string `json:"student_id"`
		Unmatched  int    `json:"unmatched"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.DocumentID != "kim_minjun" {
		t.Errorf("Expected document_id from filename stem, got %q", resp.DocumentID)
	}
	if resp.StudentID == "" {
		t.Error("Expected a student_id")
	}
	if resp.Unmatched != 1 {
		t.Errorf("Expected 1 unmatched evaluation, got %d", resp.Unmatched)
	}

	// The record landed in the ref store, not the client store.
	rec2 := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/api/ref/students", nil))
	if rec2.Code != http.StatusOK {
		t.Fatalf("Listing students failed: %d", rec2.Code)
	}
	var list struct {
		Students []store.Student `json:"students"`
	}
	if err := json.Unmarshal(rec2.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(list.Students) != 1 || list.Students[0].Name != "김민준" {
		t.Errorf("Expected one student 김민준 in ref store, got %+v", list.Students)
	}

	rec3 := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec3, httptest.NewRequest(http.MethodGet, "/api/client/students", nil))
	var empty struct {
		Students []store.Student `json:"students"`
	}
	if err := json.Unmarshal(rec3.Body.Bytes(), &empty); err != nil {
		t.Fatalf("decoding client list: %v", err)
	}
	if len(empty.Students) != 0 {
		t.Errorf("Client store should be empty, got %+v", empty.Students)
	}
}

func TestIngest_ExplicitDocumentID(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartBody(t,
		map[string][2]string{"yaml": {"upload.yaml", testMetadata}},
		map[string]string{"document_id": "custom-id"})

	req := httptest.NewRequest(http.MethodPost, "/api/client/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		DocumentID string `json:"document_id"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.DocumentID != "custom-id" {
		t.Errorf("Expected custom-id, got %q", resp.DocumentID)
	}
}

func TestIngest_NoFiles(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartBody(t, nil, map[string]string{"document_id": "x"})

	req := httptest.NewRequest(http.MethodPost, "/api/ref/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestIngest_UnreadablePDF(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartBody(t,
		map[string][2]string{"pdf": {"junk.pdf", "this is not a pdf"}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ref/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for an unreadable PDF, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestIngest_MalformedMetadata(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartBody(t,
		map[string][2]string{"yaml": {"bad.yaml", "성명: 이름뿐\n"}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ref/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for malformed metadata, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestIngest_UnknownSide(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartBody(t,
		map[string][2]string{"yaml": {"a.yaml", testMetadata}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/other/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown side, got %d", rec.Code)
	}
}

func TestStudentLifecycle(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartBody(t,
		map[string][2]string{"yaml": {"kim.yaml", testMetadata}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ref/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Ingest failed: %d %s", rec.Code, rec.Body.String())
	}
	var ingest struct {
		StudentID string `json:"student_id"`
	}
	json.Unmarshal(rec.Body.Bytes(), &ingest)

	rec2 := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/api/ref/students/"+ingest.StudentID, nil))
	if rec2.Code != http.StatusOK {
		t.Fatalf("Get student failed: %d", rec2.Code)
	}
	var got struct {
		Student store.Student  `json:"student"`
		Records []store.Record `json:"records"`
	}
	if err := json.Unmarshal(rec2.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding student: %v", err)
	}
	if got.Student.Name != "김민준" {
		t.Errorf("Wrong student: %+v", got.Student)
	}
	if len(got.Records) != 1 {
		t.Errorf("Expected 1 record, got %d", len(got.Records))
	}

	rec3 := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec3, httptest.NewRequest(http.MethodDelete, "/api/ref/students/"+ingest.StudentID, nil))
	if rec3.Code != http.StatusOK {
		t.Fatalf("Delete failed: %d", rec3.Code)
	}

	rec4 := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec4, httptest.NewRequest(http.MethodGet, "/api/ref/students/"+ingest.StudentID, nil))
	if rec4.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec4.Code)
	}
}
