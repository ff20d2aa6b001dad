package video

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

func clip() *core.UploadedFile {
	return &core.UploadedFile{
		Name:         "clip.mp4",
		MediaType:    "video/mp4",
		Data:         make([]byte, 3*1024*1024+512*1024),
		LastModified: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFieldsKeepOrder(t *testing.T) {
	in := `{"Zeta":"1","Alpha":"two","Count":3,"Flag":true,"Gone":null}`
	var f Fields
	if err := json.Unmarshal([]byte(in), &f); err != nil {
		t.Fatal(err)
	}
	want := Fields{{Name: "Zeta", Value: "1"}, {Name: "Alpha", Value: "two"}, {Name: "Count", Value: "3"}, {Name: "Flag", Value: "true"}, {Name: "Gone", Value: ""}}
	if len(f) != len(want) {
		t.Fatalf("got %v", f)
	}
	for i := range want {
		if f[i] != want[i] {
			t.Errorf("field %d = %v, want %v", i, f[i], want[i])
		}
	}
	out, err := json.Marshal(Fields{{Name: "b", Value: "1"}, {Name: "a", Value: `q"`}})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"b":"1","a":"q\""}` {
		t.Errorf("marshal = %s", out)
	}
}

func TestExtractFromService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != MetadataPath {
			t.Errorf("path = %s", r.URL.Path)
		}
		file, hdr, err := r.FormFile(FormFile)
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		if hdr.Filename != "clip.mp4" || hdr.Header.Get("Content-Type") != "video/mp4" {
			t.Errorf("upload header = %q %q", hdr.Filename, hdr.Header.Get("Content-Type"))
		}
		if got := r.FormValue(FormLastModified); got != "1717243200000" {
			t.Errorf("lastModified = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"metadata":{"File Name":"clip.mp4","Video Codec":"h264","Resolution":"1920x1080"}}`)
	}))
	defer srv.Close()

	h := New(NewClient(srv.URL, 5*time.Second), nil)
	snap, err := h.Extract(context.Background(), clip())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got := strings.Join(snap.Names(), "|"); got != "File Name|Video Codec|Resolution" {
		t.Errorf("names = %s", got)
	}
}

func TestExtractDegradesOnServiceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"Failed to process video metadata","details":"moov atom not found"}`)
	}))
	defer srv.Close()

	h := New(NewClient(srv.URL, 5*time.Second), nil)
	snap, err := h.Extract(context.Background(), clip())
	if err != nil {
		t.Fatalf("Extract() error = %v, want degraded snapshot", err)
	}
	for name, want := range map[string]string{
		"File Name": "clip.mp4",
		"File Size": "3.50 MB",
		"File Type": "video/mp4",
	} {
		if got, _ := snap.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if !snap.Has("Error") || !snap.Has(core.StatusField) || !snap.Has("Last Modified") {
		t.Errorf("fields = %v", snap.Fields)
	}
	if d, _ := snap.Get("Details"); !strings.Contains(d, "moov atom not found") {
		t.Errorf("Details = %q", d)
	}
}

func TestExtractDegradesWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	h := New(NewClient(url, time.Second), nil)
	snap, err := h.Extract(context.Background(), clip())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !snap.Has("Error") {
		t.Errorf("fields = %v", snap.Fields)
	}
}

func TestScrubForwardsSelection(t *testing.T) {
	var gotFields []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.Unmarshal([]byte(r.FormValue(FormFields)), &gotFields); err != nil {
			t.Errorf("fieldsToScrub: %v", err)
		}
		w.Header().Set("Content-Type", "video/mp4")
		io.WriteString(w, "cleaned")
	}))
	defer srv.Close()

	h := New(NewClient(srv.URL, 5*time.Second), nil)
	f := clip()
	snap := &core.Snapshot{Kind: core.KindVideo}
	snap.Set("Title", "Holiday")
	snap.Set("Encoder", "Lavf")
	sel := core.NewSelection(snap)
	sel.Toggle("Encoder", true)

	res, err := h.Scrub(context.Background(), f, snap, sel)
	if err != nil {
		t.Fatalf("Scrub() error = %v", err)
	}
	if string(res.Data) != "cleaned" || res.Name != "scrubbed-clip.mp4" || res.MediaType != "video/mp4" {
		t.Errorf("result = %q %q %q", res.Data, res.Name, res.MediaType)
	}
	if len(gotFields) != 1 || gotFields[0] != "Encoder" {
		t.Errorf("fieldsToScrub = %v", gotFields)
	}
}

func TestScrubFailureIsScrubError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"Failed to scrub video metadata","details":"ffmpeg exited 1"}`)
	}))
	defer srv.Close()

	h := New(NewClient(srv.URL, 5*time.Second), nil)
	_, err := h.Scrub(context.Background(), clip(), &core.Snapshot{Kind: core.KindVideo}, nil)

	var se *core.ScrubError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want ScrubError", err)
	}
	var re *core.RemoteServiceError
	if !errors.As(err, &re) || re.Status != http.StatusInternalServerError || re.Details != "ffmpeg exited 1" {
		t.Errorf("remote error = %+v", re)
	}
}
