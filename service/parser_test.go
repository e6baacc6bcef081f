package service

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/InfradynAB/infradyn1-sub003/config"
)

func TestNewParserService(t *testing.T) {
	cfg := &config.ParserConfig{
		APIURL:   "https://api.parser.test",
		APIToken: "test-token",
	}

	svc := NewParserService(cfg)
	if svc == nil {
		t.Fatal("Expected non-nil service")
	}
	if svc.config != cfg {
		t.Error("Expected config to be set")
	}
	if svc.httpClient == nil {
		t.Error("Expected httpClient to be set")
	}
}

func TestParserServiceCreateTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/extract/task" {
			t.Errorf("Expected /extract/task, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Error("Expected Authorization header")
		}

		response := ParseTaskResponse{
			Code:    0,
			Message: "success",
		}
		response.Data.TaskID = "task-123"

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	cfg := &config.ParserConfig{
		APIURL:   server.URL,
		APIToken: "test-token",
	}

	svc := NewParserService(cfg)
	resp, err := svc.CreateTask("http://example.com/po.pdf", "data-123")

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Data.TaskID != "task-123" {
		t.Errorf("Expected task ID 'task-123', got '%s'", resp.Data.TaskID)
	}
}

func TestParserServiceCreateTaskWithCallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody ParseTaskRequest
		json.NewDecoder(r.Body).Decode(&reqBody)

		if reqBody.Callback != "http://callback.test" {
			t.Errorf("Expected callback URL, got '%s'", reqBody.Callback)
		}
		if reqBody.Seed != "test-seed" {
			t.Errorf("Expected seed, got '%s'", reqBody.Seed)
		}

		response := ParseTaskResponse{Code: 0}
		response.Data.TaskID = "task-456"
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	cfg := &config.ParserConfig{
		APIURL:      server.URL,
		APIToken:    "test-token",
		CallbackURL: "http://callback.test",
		Seed:        "test-seed",
	}

	svc := NewParserService(cfg)
	_, err := svc.CreateTask("http://example.com/po.pdf", "data-123")

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestParserServiceCreateTaskError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := ParseTaskResponse{
			Code:    1,
			Message: "API error",
		}
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	cfg := &config.ParserConfig{
		APIURL:   server.URL,
		APIToken: "test-token",
	}

	svc := NewParserService(cfg)
	_, err := svc.CreateTask("http://example.com/po.pdf", "data-123")

	if err == nil {
		t.Error("Expected error for API error response")
	}
}

func TestParserServiceGetTaskStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/extract/task/task-123" {
			t.Errorf("Expected /extract/task/task-123, got %s", r.URL.Path)
		}

		response := ParseTaskStatusResponse{
			Code: 0,
		}
		response.Data.TaskID = "task-123"
		response.Data.State = "done"
		response.Data.FullZipURL = "http://example.com/result.zip"

		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	cfg := &config.ParserConfig{
		APIURL:   server.URL,
		APIToken: "test-token",
	}

	svc := NewParserService(cfg)
	status, err := svc.GetTaskStatus("task-123")

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if status.Data.State != "done" {
		t.Errorf("Expected state 'done', got '%s'", status.Data.State)
	}
	if status.Data.FullZipURL != "http://example.com/result.zip" {
		t.Errorf("Expected zip URL, got '%s'", status.Data.FullZipURL)
	}
}

func TestParserServiceGetTaskStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := ParseTaskStatusResponse{
			Code:    1,
			Message: "Task not found",
		}
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	cfg := &config.ParserConfig{
		APIURL:   server.URL,
		APIToken: "test-token",
	}

	svc := NewParserService(cfg)
	_, err := svc.GetTaskStatus("invalid-task")

	if err == nil {
		t.Error("Expected error for API error response")
	}
}

func TestParserServiceVerifyCallback(t *testing.T) {
	cfg := &config.ParserConfig{
		Seed: "test-seed",
	}

	svc := NewParserService(cfg)

	result := svc.VerifyCallback("invalid-checksum", "test-content", "test-uid")
	if result {
		t.Error("Expected false for invalid checksum")
	}
}

func makeResultZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to create zip entry: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write zip entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func TestParserServiceFetchZipAndExtractText(t *testing.T) {
	zipData := makeResultZip(t, map[string]string{
		"result/full.md":     "# Purchase Order\nPO-2024-001",
		"result/layout.json": `{"pages": 1}`,
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipData)
	}))
	defer server.Close()

	cfg := &config.ParserConfig{}
	svc := NewParserService(cfg)

	text, err := svc.FetchZipAndExtractText(server.URL)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text != "# Purchase Order\nPO-2024-001" {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestParserServiceFetchZipFallbackMarkdown(t *testing.T) {
	zipData := makeResultZip(t, map[string]string{
		"result/page_1.md": "invoice body",
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipData)
	}))
	defer server.Close()

	svc := NewParserService(&config.ParserConfig{})

	text, err := svc.FetchZipAndExtractText(server.URL)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text != "invoice body" {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestParserServiceFetchZipNoTextFile(t *testing.T) {
	zipData := makeResultZip(t, map[string]string{
		"result/layout.json": `{"pages": 1}`,
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(zipData)
	}))
	defer server.Close()

	svc := NewParserService(&config.ParserConfig{})

	_, err := svc.FetchZipAndExtractText(server.URL)
	if err == nil {
		t.Error("Expected error when ZIP has no text file")
	}
}

func TestParserServiceFetchZipInvalidZip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not a zip file"))
	}))
	defer server.Close()

	svc := NewParserService(&config.ParserConfig{})

	_, err := svc.FetchZipAndExtractText(server.URL)
	if err == nil {
		t.Error("Expected error for invalid ZIP")
	}
}

func TestParserServiceCreateTaskNetworkError(t *testing.T) {
	cfg := &config.ParserConfig{
		APIURL:   "http://invalid-host-that-does-not-exist:9999",
		APIToken: "test-token",
	}

	svc := NewParserService(cfg)
	_, err := svc.CreateTask("http://example.com/po.pdf", "data-123")

	if err == nil {
		t.Error("Expected error for network failure")
	}
}

func TestParserServiceGetTaskStatusInvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	cfg := &config.ParserConfig{
		APIURL:   server.URL,
		APIToken: "test-token",
	}

	svc := NewParserService(cfg)
	_, err := svc.GetTaskStatus("task-123")

	if err == nil {
		t.Error("Expected error for invalid JSON response")
	}
}
