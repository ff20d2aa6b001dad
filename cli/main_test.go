package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ankit-chaubey/media-metadata-scrubber/config"
	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writePDF writes a one-page-less PDF whose Info dictionary names an author.
func writePDF(t *testing.T, dir string) string {
	t.Helper()
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [] /Count 0 >>",
		"<< /Author (Alice Example) /Title (Quarterly) >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 3 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)

	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCommandStructure(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"view", "clean", "serve", "formats", "config", "version"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := root.Find([]string{name})
			if err != nil || cmd == nil || cmd.Name() != name {
				t.Fatalf("command %q not found: %v", name, err)
			}
			if cmd.Short == "" {
				t.Errorf("command %q has no Short description", name)
			}
		})
	}
}

func TestView(t *testing.T) {
	path := writePDF(t, t.TempDir())
	out, err := run(t, "view", "--json", path)
	if err != nil {
		t.Fatalf("view error = %v", err)
	}
	var got struct {
		File   string `json:"file"`
		Kind   string `json:"kind"`
		Fields []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.File != "report.pdf" || got.Kind != "pdf" {
		t.Errorf("header = %+v", got)
	}
	found := false
	for _, f := range got.Fields {
		if f.Name == "Author" && f.Value == "Alice Example" {
			found = true
		}
	}
	if !found {
		t.Errorf("Author missing from %+v", got.Fields)
	}
}

func TestViewUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.zzz")
	os.WriteFile(path, []byte("hello"), 0o644)
	_, err := run(t, "view", path)
	var ue *core.UnsupportedFormatError
	if !errors.As(err, &ue) {
		t.Errorf("error = %v, want UnsupportedFormatError", err)
	}
}

func TestCleanSelectedFields(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir)
	out, err := run(t, "clean", "--fields", "Author", path)
	if err != nil {
		t.Fatalf("clean error = %v", err)
	}
	if !strings.Contains(out, "Removed 1 field(s)") {
		t.Errorf("output = %q", out)
	}
	cleaned, err := os.ReadFile(filepath.Join(dir, "scrubbed-report.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(cleaned, []byte("Alice Example")) {
		t.Error("author still present")
	}
	if !bytes.Contains(cleaned, []byte("Quarterly")) {
		t.Error("unselected title was removed")
	}
}

func TestCleanOutFlag(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir)
	dst := filepath.Join(dir, "clean.pdf")
	if _, err := run(t, "clean", "--all", "--out", dst, path); err != nil {
		t.Fatalf("clean error = %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestCleanRejects(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"nothing selected", []string{"clean", path}, "no fields selected"},
		{"unknown field", []string{"clean", "--fields", "Camera", path}, "field not present"},
		{"missing file", []string{"clean", "--all", filepath.Join(dir, "gone.pdf")}, "no such file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
	if _, err := os.Stat(filepath.Join(dir, "scrubbed-report.pdf")); !os.IsNotExist(err) {
		t.Error("failed clean wrote an output file")
	}
}

func TestFormats(t *testing.T) {
	out, err := run(t, "formats", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var got []struct {
		Name      string `json:"name"`
		Selective bool   `json:"selective"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if len(got) != len(core.Kinds) {
		t.Fatalf("got %d formats, want %d", len(got), len(core.Kinds))
	}
	if got[1].Name != "PDF" || !got[1].Selective || got[0].Selective {
		t.Errorf("formats = %+v", got)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, Version) {
		t.Errorf("output = %q", out)
	}
}

func TestBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("jpeg_quality: 0\n"), 0o644)
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "formats"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "jpeg_quality") {
		t.Errorf("error = %v", err)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	exec := func(args ...string) error {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--config", path}, args...))
		return cmd.Execute()
	}

	if err := exec("config", "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("written file does not load: %v", err)
	}
	if *cfg != *config.DefaultConfig() {
		t.Errorf("written config = %+v", cfg)
	}

	if err := exec("config", "init"); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Errorf("second init error = %v", err)
	}

	os.WriteFile(path, []byte("jpeg_quality: 0\n"), 0o644)
	if err := exec("config", "init", "--force"); err != nil {
		t.Fatalf("config init --force over a broken file: %v", err)
	}
	if _, err := config.Load(path); err != nil {
		t.Errorf("file not replaced: %v", err)
	}
}
