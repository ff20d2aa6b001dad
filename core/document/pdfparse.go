package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"unicode/utf16"

	"github.com/klauspost/compress/zlib"
)

// This is a heuristic reader for the document Info dictionary, not a full
// PDF parser. It understands enough syntax to locate values precisely so
// they can be overwritten without moving any other byte.

var (
	reInfoRef  = regexp.MustCompile(`/Info\s+(\d+)\s+(\d+)\s+R`)
	reEncrypt  = regexp.MustCompile(`/Encrypt\s*(\d|<<)`)
	reObjStart = regexp.MustCompile(`(\d+)\s+(\d+)\s+obj\b`)
)

func isWhite(c byte) bool {
	return c == 0 || c == '\t' || c == '\n' || c == '\f' || c == '\r' || c == ' '
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool { return !isWhite(c) && !isDelim(c) }

// skipWS skips whitespace and comments.
func skipWS(b []byte, p int) int {
	for p < len(b) {
		switch {
		case isWhite(b[p]):
			p++
		case b[p] == '%':
			for p < len(b) && b[p] != '\n' && b[p] != '\r' {
				p++
			}
		default:
			return p
		}
	}
	return p
}

var errSyntax = errors.New("malformed object syntax")

// valueEnd returns the index just past the object starting at b[p].
func valueEnd(b []byte, p int) (int, error) {
	if p >= len(b) {
		return 0, errSyntax
	}
	switch c := b[p]; {
	case c == '(':
		depth := 0
		for i := p; i < len(b); i++ {
			switch b[i] {
			case '\\':
				i++
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					return i + 1, nil
				}
			}
		}
		return 0, errSyntax
	case c == '<' && p+1 < len(b) && b[p+1] == '<':
		_, end, err := parseDict(b, p)
		return end, err
	case c == '<':
		i := bytes.IndexByte(b[p:], '>')
		if i < 0 {
			return 0, errSyntax
		}
		return p + i + 1, nil
	case c == '[':
		q := p + 1
		for {
			q = skipWS(b, q)
			if q >= len(b) {
				return 0, errSyntax
			}
			if b[q] == ']' {
				return q + 1, nil
			}
			end, err := valueEnd(b, q)
			if err != nil {
				return 0, err
			}
			q = end
		}
	case c == '/':
		q := p + 1
		for q < len(b) && isRegular(b[q]) {
			q++
		}
		return q, nil
	case isRegular(c):
		q := p
		for q < len(b) && isRegular(b[q]) {
			q++
		}
		// An integer may start an indirect reference "n g R".
		if _, err := strconv.Atoi(string(b[p:q])); err == nil {
			r := skipWS(b, q)
			s := r
			for s < len(b) && b[s] >= '0' && b[s] <= '9' {
				s++
			}
			if s > r {
				t := skipWS(b, s)
				if t < len(b) && b[t] == 'R' && (t+1 == len(b) || !isRegular(b[t+1])) {
					return t + 1, nil
				}
			}
		}
		return q, nil
	}
	return 0, errSyntax
}

type dictEntry struct {
	key        string
	start, end int // value span
}

// parseDict parses the dictionary starting at b[p] ("<<").
func parseDict(b []byte, p int) ([]dictEntry, int, error) {
	if p+1 >= len(b) || b[p] != '<' || b[p+1] != '<' {
		return nil, 0, errSyntax
	}
	var entries []dictEntry
	q := p + 2
	for {
		q = skipWS(b, q)
		if q+1 >= len(b) {
			return nil, 0, errSyntax
		}
		if b[q] == '>' && b[q+1] == '>' {
			return entries, q + 2, nil
		}
		if b[q] != '/' {
			return nil, 0, fmt.Errorf("%w: expected name at offset %d", errSyntax, q)
		}
		keyEnd, _ := valueEnd(b, q)
		key := string(b[q+1 : keyEnd])
		v := skipWS(b, keyEnd)
		end, err := valueEnd(b, v)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, dictEntry{key: key, start: v, end: end})
		q = end
	}
}

func lookup(entries []dictEntry, key string) (dictEntry, bool) {
	for _, e := range entries {
		if e.key == key {
			return e, true
		}
	}
	return dictEntry{}, false
}

func parseRef(raw []byte) (num, gen int, ok bool) {
	fields := bytes.Fields(raw)
	if len(fields) != 3 || string(fields[2]) != "R" {
		return 0, 0, false
	}
	n, err1 := strconv.Atoi(string(fields[0]))
	g, err2 := strconv.Atoi(string(fields[1]))
	return n, g, err1 == nil && err2 == nil
}

// ─── Strings ─────────────────────────────────────────────────────────────────

// stringBytes decodes a literal "(...)" or hex "<...>" string token.
func stringBytes(raw []byte) ([]byte, bool) {
	if len(raw) < 2 {
		return nil, false
	}
	switch {
	case raw[0] == '(' && raw[len(raw)-1] == ')':
		return unescapeLiteral(raw[1 : len(raw)-1]), true
	case raw[0] == '<' && raw[len(raw)-1] == '>' && (len(raw) < 4 || raw[1] != '<'):
		return decodeHex(raw[1 : len(raw)-1]), true
	}
	return nil, false
}

func unescapeLiteral(s []byte) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			out = append(out, c)
			continue
		}
		i++
		switch e := s[i]; e {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\n':
		default:
			if e >= '0' && e <= '7' {
				v := 0
				j := i
				for ; j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7'; j++ {
					v = v*8 + int(s[j]-'0')
				}
				out = append(out, byte(v))
				i = j - 1
			} else {
				out = append(out, e)
			}
		}
	}
	return out
}

func decodeHex(s []byte) []byte {
	var digits []byte
	for _, c := range s {
		if !isWhite(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			return out
		}
		out = append(out, byte(v))
	}
	return out
}

// textString converts PDF text string bytes to UTF-8. PDFDocEncoding is
// treated as Latin-1, which agrees on every printable character in use.
func textString(b []byte) string {
	switch {
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		u := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	case len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF:
		return string(b[3:])
	}
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}

// ─── Objects ─────────────────────────────────────────────────────────────────

// objStream is a FlateDecode object stream (PDF 1.5+) held inflated.
type objStream struct {
	dataStart int // offset of the compressed bytes in the file
	dataLen   int
	content   []byte
	first     int
	offsets   map[int]int // object number → offset relative to first
}

// location names bytes either in the file or in an inflated object stream.
type location struct {
	stream     *objStream
	start, end int
}

type pdfFile struct {
	data    []byte
	streams []*objStream
	loaded  bool
}

// findObject returns the source bytes and body offset of object num.
// The last definition wins, matching incremental-update semantics.
func (pf *pdfFile) findObject(num, gen int) ([]byte, *objStream, int, bool) {
	re := regexp.MustCompile(`(?:^|[^0-9])` + strconv.Itoa(num) + `\s+` + strconv.Itoa(gen) + `\s+obj\b`)
	if all := re.FindAllIndex(pf.data, -1); len(all) > 0 {
		m := all[len(all)-1]
		body := bytes.Index(pf.data[m[0]:m[1]], []byte("obj")) + m[0] + 3
		return pf.data, nil, skipWS(pf.data, body), true
	}
	pf.loadStreams()
	for i := len(pf.streams) - 1; i >= 0; i-- {
		s := pf.streams[i]
		if off, ok := s.offsets[num]; ok && s.first+off < len(s.content) {
			return s.content, s, skipWS(s.content, s.first+off), true
		}
	}
	return nil, nil, 0, false
}

// loadStreams inflates every object stream in the file once.
func (pf *pdfFile) loadStreams() {
	if pf.loaded {
		return
	}
	pf.loaded = true
	for _, m := range reObjStart.FindAllIndex(pf.data, -1) {
		p := skipWS(pf.data, m[1])
		if !bytes.HasPrefix(pf.data[p:], []byte("<<")) {
			continue
		}
		entries, end, err := parseDict(pf.data, p)
		if err != nil {
			continue
		}
		if s := pf.objectStream(entries, end); s != nil {
			pf.streams = append(pf.streams, s)
		}
	}
}

func (pf *pdfFile) dictInt(entries []dictEntry, key string) (int, bool) {
	e, ok := lookup(entries, key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(string(pf.data[e.start:e.end]))
	return n, err == nil
}

func (pf *pdfFile) objectStream(entries []dictEntry, dictEnd int) *objStream {
	typ, ok := lookup(entries, "Type")
	if !ok || string(pf.data[typ.start:typ.end]) != "/ObjStm" {
		return nil
	}
	if f, ok := lookup(entries, "Filter"); !ok || !bytes.Contains(pf.data[f.start:f.end], []byte("/FlateDecode")) {
		return nil
	}
	if _, ok := lookup(entries, "DecodeParms"); ok {
		return nil
	}
	n, okN := pf.dictInt(entries, "N")
	first, okF := pf.dictInt(entries, "First")
	if !okN || !okF {
		return nil
	}

	start, length, ok := pf.streamBounds(entries, dictEnd)
	if !ok {
		return nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(pf.data[start : start+length]))
	if err != nil {
		return nil
	}
	content, err := io.ReadAll(zr)
	zr.Close()
	if err != nil && len(content) == 0 {
		return nil
	}

	s := &objStream{dataStart: start, dataLen: length, content: content, first: first, offsets: map[int]int{}}
	header := bytes.Fields(content[:min(first, len(content))])
	for i := 0; i+1 < len(header) && i/2 < n; i += 2 {
		num, err1 := strconv.Atoi(string(header[i]))
		off, err2 := strconv.Atoi(string(header[i+1]))
		if err1 == nil && err2 == nil {
			s.offsets[num] = off
		}
	}
	return s
}

// streamBounds locates the raw stream data following a stream dictionary.
func (pf *pdfFile) streamBounds(entries []dictEntry, dictEnd int) (int, int, bool) {
	p := skipWS(pf.data, dictEnd)
	if !bytes.HasPrefix(pf.data[p:], []byte("stream")) {
		return 0, 0, false
	}
	p += len("stream")
	if p < len(pf.data) && pf.data[p] == '\r' {
		p++
	}
	if p < len(pf.data) && pf.data[p] == '\n' {
		p++
	}
	if n, ok := pf.dictInt(entries, "Length"); ok && n >= 0 && p+n <= len(pf.data) {
		return p, n, true
	}
	end := bytes.Index(pf.data[p:], []byte("endstream"))
	if end < 0 {
		return 0, 0, false
	}
	n := end
	for n > 0 && (pf.data[p+n-1] == '\n' || pf.data[p+n-1] == '\r') {
		n--
	}
	return p, n, true
}
