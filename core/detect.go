package core

import (
	"mime"
	"path/filepath"
	"strings"
)

// FormatKind enumerates the supported file families.
type FormatKind int

const (
	KindUnsupported FormatKind = iota
	KindImage
	KindPDF
	KindOffice
	KindAudio
	KindVideo
)

// Kinds lists every supported kind, in classification order.
var Kinds = []FormatKind{KindImage, KindPDF, KindOffice, KindAudio, KindVideo}

func (k FormatKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindPDF:
		return "pdf"
	case KindOffice:
		return "office"
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "unsupported"
	}
}

// OOXML media types accepted as Office documents.
const (
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEPptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MIMEPDF  = "application/pdf"
)

var officeTypes = map[string]bool{
	MIMEDocx: true,
	MIMEXlsx: true,
	MIMEPptx: true,
}

// Classify maps a declared media type to a FormatKind. Only the declared
// type is consulted; file bytes are never sniffed.
func Classify(mediaType string) (FormatKind, error) {
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return KindImage, nil
	case mediaType == MIMEPDF:
		return KindPDF, nil
	case officeTypes[mediaType]:
		return KindOffice, nil
	case strings.HasPrefix(mediaType, "audio/"):
		return KindAudio, nil
	case strings.HasPrefix(mediaType, "video/"):
		return KindVideo, nil
	}
	return KindUnsupported, &UnsupportedFormatError{MediaType: mediaType}
}

// extMap covers extensions the mime package may not know on every host.
var extMap = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".bmp":  "image/bmp",
	".heic": "image/heic",

	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",

	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",

	".pdf":  MIMEPDF,
	".docx": MIMEDocx,
	".xlsx": MIMEXlsx,
	".pptx": MIMEPptx,
}

// MediaTypeFor returns the declared media type for a local file name, the
// way a browser would fill in File.type. Unknown extensions yield
// "application/octet-stream".
func MediaTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extMap[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
		return t
	}
	return "application/octet-stream"
}
