package image

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	stdimage "image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

func solidImage() stdimage.Image {
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 40, B: 90, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage()); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type tiffEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func asciiTag(tag uint16, s string) tiffEntry {
	v := append([]byte(s), 0)
	return tiffEntry{tag: tag, typ: 2, count: uint32(len(v)), data: v}
}

func longTag(tag uint16, n uint32) tiffEntry {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, n)
	return tiffEntry{tag: tag, typ: 4, count: 1, data: b}
}

func undefinedTag(tag uint16, b []byte) tiffEntry {
	return tiffEntry{tag: tag, typ: 7, count: uint32(len(b)), data: b}
}

func ifdSize(entries []tiffEntry) int {
	n := 2 + len(entries)*12 + 4
	for _, e := range entries {
		if len(e.data) > 4 {
			n += len(e.data)
		}
	}
	return n
}

// buildTIFF lays out a little-endian TIFF block: IFD0, then the Exif
// sub-IFD it points to (if any), then IFD1 chained after IFD0 (if any).
func buildTIFF(ifd0, exifIFD, ifd1 []tiffEntry) []byte {
	ifd0 = append([]tiffEntry(nil), ifd0...)
	if exifIFD != nil {
		ifd0 = append(ifd0, longTag(0x8769, 0))
	}
	off0 := 8
	offExif := off0 + ifdSize(ifd0)
	off1 := offExif
	if exifIFD != nil {
		off1 += ifdSize(exifIFD)
		binary.LittleEndian.PutUint32(ifd0[len(ifd0)-1].data, uint32(offExif))
	}

	var buf bytes.Buffer
	buf.Write([]byte{'I', 'I', 0x2A, 0x00})
	binary.Write(&buf, binary.LittleEndian, uint32(off0))
	next := 0
	if ifd1 != nil {
		next = off1
	}
	writeIFD(&buf, ifd0, next)
	if exifIFD != nil {
		writeIFD(&buf, exifIFD, 0)
	}
	if ifd1 != nil {
		writeIFD(&buf, ifd1, 0)
	}
	return buf.Bytes()
}

// writeIFD appends one directory at the current end of buf, followed by the
// values that do not fit inline.
func writeIFD(buf *bytes.Buffer, entries []tiffEntry, next int) {
	le := binary.LittleEndian
	dataOff := buf.Len() + 2 + len(entries)*12 + 4
	var data bytes.Buffer
	binary.Write(buf, le, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(buf, le, e.tag)
		binary.Write(buf, le, e.typ)
		binary.Write(buf, le, e.count)
		if len(e.data) <= 4 {
			pad := make([]byte, 4)
			copy(pad, e.data)
			buf.Write(pad)
		} else {
			binary.Write(buf, le, uint32(dataOff+data.Len()))
			data.Write(e.data)
		}
	}
	binary.Write(buf, le, uint32(next))
	buf.Write(data.Bytes())
}

// tiffIFD builds a TIFF block with a single IFD0 holding Make, Model and
// Artist ASCII tags.
func tiffIFD() []byte {
	return buildTIFF([]tiffEntry{
		asciiTag(0x010F, "Acme"),
		asciiTag(0x0110, "Shooter 3000"),
		asciiTag(0x013B, "Jane Roe"),
	}, nil, nil)
}

// jpegWithEXIF splices an APP1 Exif segment after the SOI marker.
func jpegWithEXIF(t *testing.T) []byte {
	t.Helper()
	return jpegWithTIFF(t, tiffIFD())
}

func jpegWithTIFF(t *testing.T, block []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solidImage(), nil); err != nil {
		t.Fatal(err)
	}
	src := buf.Bytes()
	payload := append([]byte("Exif\x00\x00"), block...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))

	var out bytes.Buffer
	out.Write(src[:2])
	out.Write(seg)
	out.Write(payload)
	out.Write(src[2:])
	return out.Bytes()
}

func TestExtractEXIF(t *testing.T) {
	h := New(Options{})
	f := &core.UploadedFile{Name: "a.jpg", MediaType: "image/jpeg", Data: jpegWithEXIF(t)}
	snap, err := h.Extract(context.Background(), f)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := map[string]string{"Make": "Acme", "Model": "Shooter 3000", "Artist": "Jane Roe"}
	for k, v := range want {
		got, ok := snap.Get(k)
		if !ok || got != v {
			t.Errorf("field %s = %q (present %v), want %q", k, got, ok, v)
		}
	}
	if snap.Has(core.StatusField) {
		t.Error("Status field mixed with real fields")
	}
}

func TestExtractSkipsExcludedTags(t *testing.T) {
	block := buildTIFF(
		[]tiffEntry{asciiTag(0x010F, "Acme")},
		[]tiffEntry{
			asciiTag(0x9003, "2024:06:01 12:00:00"),
			undefinedTag(0x927C, []byte("ACME maker blob")),
			undefinedTag(0x9286, []byte("ASCII\x00\x00\x00private note")),
		},
		[]tiffEntry{longTag(0x0201, 4096), longTag(0x0202, 512)},
	)
	h := New(Options{})
	f := &core.UploadedFile{Name: "a.jpg", MediaType: "image/jpeg", Data: jpegWithTIFF(t, block)}
	snap, err := h.Extract(context.Background(), f)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if v, _ := snap.Get("DateTimeOriginal"); v != "2024:06:01 12:00:00" {
		t.Fatalf("Exif sub-IFD not read: %v", snap.Fields)
	}
	if v, _ := snap.Get("Make"); v != "Acme" {
		t.Errorf("Make = %q", v)
	}
	for _, name := range []string{
		"MakerNote", "UserComment",
		"ThumbJPEGInterchangeFormat", "ThumbJPEGInterchangeFormatLength",
		"ExifIFDPointer", "GPSInfoIFDPointer", "InteroperabilityIFDPointer",
	} {
		if snap.Has(name) {
			t.Errorf("%s emitted: %v", name, snap.Fields)
		}
	}
}

func TestExtractNoMetadataYieldsStatusOnly(t *testing.T) {
	h := New(Options{})
	f := &core.UploadedFile{Name: "a.png", MediaType: "image/png", Data: encodePNG(t)}
	snap, err := h.Extract(context.Background(), f)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !snap.IsStatusOnly() {
		t.Errorf("fields = %v, want only Status", snap.Fields)
	}
}

func TestExtractMalformed(t *testing.T) {
	h := New(Options{})
	f := &core.UploadedFile{Name: "a.jpg", MediaType: "image/jpeg", Data: []byte("not an image at all")}
	_, err := h.Extract(context.Background(), f)
	var pe *core.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want ParseError", err)
	}
	if pe.Kind != core.KindImage {
		t.Errorf("kind = %v, want image", pe.Kind)
	}
}

func TestScrubDropsAllTags(t *testing.T) {
	h := New(Options{})
	f := &core.UploadedFile{Name: "a.jpg", MediaType: "image/jpeg", Data: jpegWithEXIF(t)}
	snap, err := h.Extract(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	sel := core.NewSelection(snap)
	if err := sel.Toggle("Make", true); err != nil {
		t.Fatal(err)
	}

	res, err := h.Scrub(context.Background(), f, snap, sel)
	if err != nil {
		t.Fatalf("Scrub() error = %v", err)
	}
	if res.Name != "scrubbed-a.jpg" {
		t.Errorf("name = %q", res.Name)
	}
	if res.MediaType != "image/jpeg" {
		t.Errorf("media type = %q", res.MediaType)
	}

	// Unselected Model and Artist are gone too: the re-encode is all or nothing.
	out := &core.UploadedFile{Name: res.Name, MediaType: res.MediaType, Data: res.Data}
	again, err := h.Extract(context.Background(), out)
	if err != nil {
		t.Fatal(err)
	}
	if !again.IsStatusOnly() {
		t.Errorf("scrubbed fields = %v, want only Status", again.Fields)
	}
	cfg, format, err := stdimage.DecodeConfig(bytes.NewReader(res.Data))
	if err != nil || format != "jpeg" || cfg.Width != 8 || cfg.Height != 6 {
		t.Errorf("decoded %s %dx%d err=%v", format, cfg.Width, cfg.Height, err)
	}
}

func TestScrubUnknownEncoderFallsBackToPNG(t *testing.T) {
	out, err := reencode(encodePNG(t), "image/webp", DefaultJPEGQuality)
	if err != nil {
		t.Fatal(err)
	}
	if _, format, err := stdimage.DecodeConfig(bytes.NewReader(out)); err != nil || format != "png" {
		t.Errorf("format = %q err = %v, want png", format, err)
	}
}

func TestScrubRejectsForeignSnapshot(t *testing.T) {
	h := New(Options{})
	f := &core.UploadedFile{Name: "a.png", MediaType: "image/png", Data: encodePNG(t)}
	_, err := h.Scrub(context.Background(), f, &core.Snapshot{Kind: core.KindPDF}, nil)
	if !errors.Is(err, core.ErrKindMismatch) {
		t.Errorf("error = %v, want ErrKindMismatch", err)
	}
}

func TestIPTCRecords(t *testing.T) {
	rec := func(ds byte, v string) []byte {
		b := []byte{0x1C, 2, ds, 0, 0}
		binary.BigEndian.PutUint16(b[3:], uint16(len(v)))
		return append(b, v...)
	}
	var block []byte
	block = append(block, rec(0x19, "beach")...)
	block = append(block, rec(0x19, "summer")...)
	block = append(block, rec(0x50, "J. Roe")...)

	res := []byte("8BIM")
	res = append(res, 0x04, 0x04, 0, 0)
	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, uint32(len(block)))
	res = append(res, size...)
	res = append(res, block...)

	snap := &core.Snapshot{}
	addIPTC(res, snap)
	if v, _ := snap.Get("Keywords"); v != "beach, summer" {
		t.Errorf("Keywords = %q", v)
	}
	if v, _ := snap.Get("By-line"); v != "J. Roe" {
		t.Errorf("By-line = %q", v)
	}
}
