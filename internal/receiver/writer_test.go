package receiver

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tripscope/tripscope-cli/internal/models"
)

func TestStdoutWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	writer := NewStdoutWriter(&buf, "json")

	export := validExport("test-123")
	if err := writer.Write(&export); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	var parsed models.TripExport
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v\nOutput: %s", err, buf.String())
	}

	if parsed.ExportID != "test-123" {
		t.Errorf("expected export_id 'test-123', got '%s'", parsed.ExportID)
	}
}

func TestStdoutWriter_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	writer := NewStdoutWriter(&buf, "ndjson")

	export := validExport("test-456")
	if err := writer.Write(&export); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	output := buf.String()
	if output[len(output)-1] != '\n' {
		t.Error("NDJSON output should end with newline")
	}
	if strings.Count(output, "\n") != 1 {
		t.Error("NDJSON output should be a single line")
	}

	var parsed models.TripExport
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if parsed.ExportID != "test-456" {
		t.Errorf("expected export_id 'test-456', got '%s'", parsed.ExportID)
	}
}

func TestFileWriter(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewFileWriter(tmpDir, "json")
	if err != nil {
		t.Fatalf("failed to create file writer: %v", err)
	}

	export := validExport("file-test-789")
	if err := writer.Write(&export); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, "tripscope_export_file-test-789.json")
	content, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}

	var parsed models.TripExport
	if err := json.Unmarshal(content, &parsed); err != nil {
		t.Fatalf("file content is not valid JSON: %v", err)
	}

	if parsed.ExportID != "file-test-789" {
		t.Errorf("expected export_id 'file-test-789', got '%s'", parsed.ExportID)
	}
	if len(parsed.Trips) != 1 {
		t.Errorf("expected 1 trip, got %d", len(parsed.Trips))
	}
	if trip := parsed.Trips["trip-a"]; trip == nil || len(trip.Events) != 1 {
		t.Error("expected trip-a with 1 event")
	}
}

func TestFileWriter_CreateDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	nestedDir := filepath.Join(tmpDir, "nested", "exports")

	writer, err := NewFileWriter(nestedDir, "json")
	if err != nil {
		t.Fatalf("failed to create file writer: %v", err)
	}

	if _, err := os.Stat(nestedDir); os.IsNotExist(err) {
		t.Error("nested directory should have been created")
	}

	_ = writer.Close()
}

func TestMultiWriter(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	writer1 := NewStdoutWriter(&buf1, "json")
	writer2 := NewStdoutWriter(&buf2, "json")

	multi := NewMultiWriter(writer1, writer2)

	export := validExport("multi-test")
	if err := multi.Write(&export); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	if buf1.Len() == 0 {
		t.Error("buffer 1 should have content")
	}
	if buf2.Len() == 0 {
		t.Error("buffer 2 should have content")
	}
	if buf1.String() != buf2.String() {
		t.Error("both buffers should have identical content")
	}
}
