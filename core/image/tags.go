package image

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/tiff"

	"github.com/ankit-chaubey/media-metadata-scrubber/core"
)

// tagValue renders a TIFF tag as display text. Multi-valued tags are joined
// with ", ".
func tagValue(tag *tiff.Tag) string {
	n := int(tag.Count)
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(s, "\x00"))
	case tiff.IntVal:
		parts := make([]string, 0, n)
		for i := 0; i < n; i++ {
			v, err := tag.Int64(i)
			if err != nil {
				break
			}
			parts = append(parts, strconv.FormatInt(v, 10))
		}
		return strings.Join(parts, ", ")
	case tiff.RatVal:
		parts := make([]string, 0, n)
		for i := 0; i < n; i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				break
			}
			parts = append(parts, formatRational(num, den))
		}
		return strings.Join(parts, ", ")
	case tiff.FloatVal:
		parts := make([]string, 0, n)
		for i := 0; i < n; i++ {
			v, err := tag.Float(i)
			if err != nil {
				break
			}
			parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64))
		}
		return strings.Join(parts, ", ")
	}
	val := tag.String()
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = val[1 : len(val)-1]
	}
	return strings.TrimSpace(val)
}

func formatRational(num, den int64) string {
	if den == 0 {
		return strconv.FormatInt(num, 10) + "/0"
	}
	if num%den == 0 {
		return strconv.FormatInt(num/den, 10)
	}
	return strconv.FormatInt(num, 10) + "/" + strconv.FormatInt(den, 10)
}

// exifPayload returns bytes goexif can decode for the given image format:
// the whole file for JPEG and TIFF, the embedded chunk for PNG and WebP.
func exifPayload(format string, data []byte) []byte {
	switch format {
	case "jpeg", "tiff":
		return data
	case "png":
		return pngChunk(data, "eXIf")
	case "webp":
		return riffChunk(data, "EXIF")
	}
	return nil
}

// jpegSegment finds a JPEG APP segment by marker byte and prefix and returns
// the data after the prefix, or nil.
func jpegSegment(data []byte, marker byte, prefix []byte) []byte {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil
	}
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return nil
		}
		segMarker := data[pos+1]
		if segMarker == 0xDA || segMarker == 0xD9 {
			return nil
		}
		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if segLen < 2 || pos+2+segLen > len(data) {
			return nil
		}
		seg := data[pos+4 : pos+2+segLen]
		if segMarker == marker && bytes.HasPrefix(seg, prefix) {
			return seg[len(prefix):]
		}
		pos += 2 + segLen
	}
	return nil
}

// pngChunk returns the payload of the first chunk of type typ.
func pngChunk(data []byte, typ string) []byte {
	sig := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	if !bytes.HasPrefix(data, sig) {
		return nil
	}
	pos := len(sig)
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		chunkType := string(data[pos+4 : pos+8])
		start := pos + 8
		if length < 0 || start+length+4 > len(data) {
			return nil
		}
		if chunkType == typ {
			return data[start : start+length]
		}
		if chunkType == "IEND" {
			return nil
		}
		pos = start + length + 4
	}
	return nil
}

// riffChunk returns the payload of the first top-level RIFF chunk with id.
func riffChunk(data []byte, id string) []byte {
	if len(data) < 12 || string(data[0:4]) != "RIFF" {
		return nil
	}
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		start := pos + 8
		if size < 0 || start+size > len(data) {
			return nil
		}
		if chunkID == id {
			return data[start : start+size]
		}
		pos = start + size
		if size%2 != 0 {
			pos++
		}
	}
	return nil
}

// ─── IPTC ─────────────────────────────────────────────────────────────────────

var iptcFieldNames = map[byte]string{
	0x05: "Object Name",
	0x0F: "Category",
	0x14: "Supplemental Category",
	0x19: "Keywords",
	0x1E: "Release Date",
	0x37: "Date Created",
	0x3C: "Time Created",
	0x50: "By-line",
	0x55: "By-line Title",
	0x5A: "City",
	0x5F: "Province/State",
	0x65: "Country/Primary Location Name",
	0x67: "Original Transmission Reference",
	0x69: "Headline",
	0x6E: "Credit",
	0x73: "Source",
	0x74: "Copyright Notice",
	0x76: "Contact",
	0x78: "Caption/Abstract",
	0x7A: "Writer/Editor",
}

// addIPTC walks Photoshop 8BIM resources looking for the IPTC block (0x0404).
func addIPTC(data []byte, snap *core.Snapshot) {
	i := 0
	for i+12 <= len(data) {
		if !bytes.Equal(data[i:i+4], []byte("8BIM")) {
			i++
			continue
		}
		resType := binary.BigEndian.Uint16(data[i+4 : i+6])
		nameLen := int(data[i+6])
		if nameLen%2 == 0 {
			nameLen++
		}
		i += 7 + nameLen
		if i+4 > len(data) {
			return
		}
		blockLen := int(binary.BigEndian.Uint32(data[i : i+4]))
		i += 4
		if blockLen < 0 || i+blockLen > len(data) {
			return
		}
		if resType == 0x0404 {
			addIPTCRecords(data[i:i+blockLen], snap)
		}
		i += blockLen
		if blockLen%2 != 0 {
			i++
		}
	}
}

// addIPTCRecords reads application records (record 2). Repeated datasets
// such as Keywords are joined with ", ".
func addIPTCRecords(data []byte, snap *core.Snapshot) {
	values := map[string][]string{}
	var order []string
	i := 0
	for i+5 <= len(data) {
		if data[i] != 0x1C {
			i++
			continue
		}
		record := data[i+1]
		dataset := data[i+2]
		length := int(binary.BigEndian.Uint16(data[i+3 : i+5]))
		i += 5
		if i+length > len(data) {
			break
		}
		val := strings.TrimSpace(string(data[i : i+length]))
		i += length
		name, ok := iptcFieldNames[dataset]
		if record != 2 || !ok || val == "" {
			continue
		}
		if _, seen := values[name]; !seen {
			order = append(order, name)
		}
		values[name] = append(values[name], val)
	}
	for _, name := range order {
		snap.Set(name, strings.Join(values[name], ", "))
	}
}
