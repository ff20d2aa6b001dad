package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		mediaType string
		want      FormatKind
	}{
		{"image/jpeg", KindImage},
		{"image/svg+xml", KindImage},
		{"application/pdf", KindPDF},
		{MIMEDocx, KindOffice},
		{MIMEXlsx, KindOffice},
		{MIMEPptx, KindOffice},
		{"audio/mpeg", KindAudio},
		{"audio/flac", KindAudio},
		{"video/mp4", KindVideo},
		{"application/msword", KindUnsupported},
		{"application/pdf; charset=binary", KindUnsupported},
		{"text/plain", KindUnsupported},
		{"", KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			got, err := Classify(tt.mediaType)
			if got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.mediaType, got, tt.want)
			}
			var ue *UnsupportedFormatError
			if tt.want == KindUnsupported {
				if !errors.As(err, &ue) || ue.MediaType != tt.mediaType {
					t.Errorf("error = %v, want UnsupportedFormatError", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error %v", err)
			}

			// Same input, same answer.
			for i := 0; i < 3; i++ {
				again, err2 := Classify(tt.mediaType)
				if again != got || (err == nil) != (err2 == nil) {
					t.Fatalf("Classify(%q) changed between calls", tt.mediaType)
				}
			}
		})
	}
}

func TestMediaTypeFor(t *testing.T) {
	tests := map[string]string{
		"photo.JPG":    "image/jpeg",
		"report.pdf":   MIMEPDF,
		"deck.pptx":    MIMEPptx,
		"song.mp3":     "audio/mpeg",
		"clip.mov":     "video/quicktime",
		"noext":        "application/octet-stream",
		"archive.zzzz": "application/octet-stream",
	}
	for name, want := range tests {
		if got := MediaTypeFor(name); got != want {
			t.Errorf("MediaTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestSnapshotSet(t *testing.T) {
	var s Snapshot
	s.Set("A", "1")
	s.Set("B", "2")
	s.Set("A", "3")
	if got := strings.Join(s.Names(), ","); got != "A,B" {
		t.Errorf("names = %s", got)
	}
	if v, _ := s.Get("A"); v != "3" {
		t.Errorf("A = %q, want last write", v)
	}
}

func TestEnsureStatus(t *testing.T) {
	var empty Snapshot
	empty.EnsureStatus("none")
	if !empty.IsStatusOnly() {
		t.Errorf("fields = %v", empty.Fields)
	}

	var filled Snapshot
	filled.Set("Title", "x")
	filled.EnsureStatus("none")
	if filled.Has(StatusField) || filled.Len() != 1 {
		t.Errorf("Status mixed with real fields: %v", filled.Fields)
	}
}

func TestOutputName(t *testing.T) {
	for _, name := range []string{"a.jpg", "scrubbed-a.jpg", "with space.pdf", ""} {
		f := &UploadedFile{Name: name, MediaType: "image/png"}
		res := NewResult(f, nil)
		if res.Name != "scrubbed-"+name || res.MediaType != "image/png" {
			t.Errorf("NewResult(%q) = %q %q", name, res.Name, res.MediaType)
		}
	}
}

func TestSelection(t *testing.T) {
	snap := &Snapshot{}
	snap.Set("A", "1")
	snap.Set("B", "2")
	snap.Set("C", "3")
	sel := NewSelection(snap)

	if sel.State() != Unchecked {
		t.Errorf("state = %s", sel.State())
	}
	if err := sel.Toggle("Z", true); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Toggle(Z) error = %v", err)
	}
	if err := sel.Toggle("Z", false); err != nil {
		t.Errorf("removing an absent name should succeed: %v", err)
	}
	sel.Toggle("C", true)
	sel.Toggle("A", true)
	if got := strings.Join(sel.Names(), ","); got != "A,C" {
		t.Errorf("names = %s, want snapshot order", got)
	}
	if sel.State() != Indeterminate {
		t.Errorf("state = %s", sel.State())
	}
	sel.SelectAll()
	if sel.State() != Checked || sel.Len() != 3 {
		t.Errorf("state = %s len = %d", sel.State(), sel.Len())
	}
	sel.Clear()
	if sel.Len() != 0 || sel.Contains("A") {
		t.Error("Clear() left members")
	}

	var none *Selection
	if none.Len() != 0 || none.Contains("A") || none.Names() != nil || none.State() != Unchecked {
		t.Error("nil selection should read as empty")
	}
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		err  error
		want string
	}{
		{&UnsupportedFormatError{MediaType: "text/plain"}, `unsupported file type "text/plain"`},
		{NewParseError(KindPDF, cause), "could not read pdf metadata: boom"},
		{NewScrubError(KindAudio, cause), "could not scrub audio metadata: boom"},
		{&RemoteServiceError{Op: "read", Status: 500, Message: "failed", Details: "moov"}, "video service read: status 500: failed (moov)"},
		{&RemoteServiceError{Op: "scrub", Cause: cause}, "video service scrub: boom"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
	if !errors.Is(NewScrubError(KindVideo, &RemoteServiceError{Op: "scrub", Cause: cause}), cause) {
		t.Error("cause lost through wrapping")
	}
}

func TestCheckKind(t *testing.T) {
	if err := CheckKind(KindPDF, &Snapshot{Kind: KindPDF}); err != nil {
		t.Errorf("matching kind: %v", err)
	}
	if err := CheckKind(KindPDF, &Snapshot{Kind: KindOffice}); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("mismatch: %v", err)
	}
	var se *ScrubError
	if err := CheckKind(KindPDF, nil); !errors.As(err, &se) {
		t.Errorf("nil snapshot: %v", err)
	}
}

func TestFormatting(t *testing.T) {
	if got := FormatMB(3*1024*1024 + 256*1024); got != "3.25 MB" {
		t.Errorf("FormatMB = %q", got)
	}
	if got := FormatMB(0); got != "0.00 MB" {
		t.Errorf("FormatMB(0) = %q", got)
	}
	ts := time.Date(2023, 4, 15, 14, 5, 9, 0, time.Local)
	if got := FormatTimestamp(ts); got != "4/15/2023, 2:05:09 PM" {
		t.Errorf("FormatTimestamp = %q", got)
	}
}

func TestPrinter(t *testing.T) {
	f := &UploadedFile{Name: "a.pdf", MediaType: MIMEPDF, Data: []byte("x")}
	snap := &Snapshot{Kind: KindPDF}
	snap.Set("Author", "Alice")
	snap.Set("Title", "Doc")
	sel := NewSelection(snap)
	sel.Toggle("Author", true)

	var buf bytes.Buffer
	p := &Printer{JSON: true, Writer: &buf}
	p.PrintSnapshot(f, snap, sel)

	var out struct {
		Kind   string `json:"kind"`
		Fields []struct {
			Name     string `json:"name"`
			Selected bool   `json:"selected"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if out.Kind != "pdf" || len(out.Fields) != 2 || !out.Fields[0].Selected || out.Fields[1].Selected {
		t.Errorf("output = %+v", out)
	}

	buf.Reset()
	p = &Printer{Verbose: true, Writer: &buf}
	p.PrintSnapshot(f, snap, sel)
	for _, want := range []string{"a.pdf", "Author:", "Alice", "selected 1 of 2 (indeterminate)"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("text output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestSplitFieldList(t *testing.T) {
	got := SplitFieldList(" Author, ,Creation Date ,")
	if strings.Join(got, "|") != "Author|Creation Date" {
		t.Errorf("got %q", got)
	}
}

func TestResolveOutPath(t *testing.T) {
	if got := ResolveOutPath("/tmp/in/a.pdf", ""); got != "/tmp/in/scrubbed-a.pdf" {
		t.Errorf("default = %q", got)
	}
	if got := ResolveOutPath("/tmp/in/a.pdf", "b.pdf"); got != "b.pdf" {
		t.Errorf("explicit = %q", got)
	}
}

func TestPrintFormats(t *testing.T) {
	infos := []FormatInfo{
		{Name: "PDF", MediaTypes: []string{MIMEPDF}, Selective: true, Notes: "in place"},
		{Name: "Audio", MediaTypes: []string{"audio/"}, Notes: "whole blocks"},
	}
	var buf bytes.Buffer
	(&Printer{Writer: &buf}).PrintFormats(infos)
	for _, want := range []string{"PDF", "selected fields", "Audio", "all fields", "whole blocks"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("missing %q in:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	(&Printer{JSON: true, Writer: &buf}).PrintFormats(infos)
	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil || len(out) != 2 || out[0]["selective"] != true {
		t.Errorf("json = %s (%v)", buf.String(), err)
	}
}
