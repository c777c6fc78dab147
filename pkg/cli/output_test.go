package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

type textResult struct{}

func (textResult) Text() string { return "3 violations" }

type tableResult struct{}

func (tableResult) Header() []string { return []string{"id", "status"} }
func (tableResult) Rows() [][]string {
	return [][]string{{"a", "success"}, {"b", "error, \"quoted\""}}
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{"plain", "test message", "test message\n"},
		{"texter", textResult{}, "3 violations\n"},
		{"already terminated", "done\n", "done\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := (&TextFormatter{}).FormatTo(buf, tt.data); err != nil {
				t.Fatalf("FormatTo() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("FormatTo() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	data := map[string]string{"test": "value"}

	if err := (&JSONFormatter{Indent: true}).FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var result map[string]string
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Errorf("FormatTo() produced invalid JSON: %v", err)
	}
	if result["test"] != "value" {
		t.Errorf("FormatTo() = %v, want %v", result, data)
	}
}

func TestCSVFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&CSVFormatter{}).FormatTo(buf, tableResult{}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	want := "id,status\na,success\nb,\"error, \"\"quoted\"\"\"\n"
	if buf.String() != want {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), want)
	}

	if err := (&CSVFormatter{}).FormatTo(buf, "not a table"); err == nil {
		t.Error("FormatTo() expected error for non-table data")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"JSON", FormatJSON, false},
		{" csv ", FormatCSV, false},
		{"junit", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   string
	}{
		{FormatText, "*cli.TextFormatter"},
		{FormatJSON, "*cli.JSONFormatter"},
		{FormatCSV, "*cli.CSVFormatter"},
		{"unknown", "*cli.TextFormatter"},
	}

	for _, tt := range tests {
		got := fmt.Sprintf("%T", NewFormatter(tt.format))
		if got != tt.want {
			t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
		}
	}
}
