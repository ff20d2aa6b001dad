package audio

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	id3v2HeaderSize = 10
	id3v1Size       = 128
	footerFlag      = 0x10
)

var (
	id3v2Magic = []byte("ID3")
	id3v1Magic = []byte("TAG")
)

// synchsafe decodes a 4-byte big-endian integer that uses 7 bits per byte.
func synchsafe(b []byte) (int, error) {
	n := 0
	for _, c := range b {
		if c&0x80 != 0 {
			return 0, fmt.Errorf("invalid synchsafe byte 0x%02x", c)
		}
		n = n<<7 | int(c)
	}
	return n, nil
}

// StripTags removes a leading ID3v2 block and a trailing ID3v1 block. All
// other bytes are returned unchanged.
func StripTags(data []byte) ([]byte, error) {
	body := data
	if len(body) >= id3v2HeaderSize && bytes.HasPrefix(body, id3v2Magic) {
		size, err := synchsafe(body[6:10])
		if err != nil {
			return nil, fmt.Errorf("ID3v2 header: %w", err)
		}
		total := id3v2HeaderSize + size
		if body[5]&footerFlag != 0 {
			total += id3v2HeaderSize
		}
		if total > len(body) {
			return nil, errors.New("ID3v2 tag size exceeds file length")
		}
		body = body[total:]
	}
	if len(body) >= id3v1Size && bytes.Equal(body[len(body)-id3v1Size:len(body)-id3v1Size+3], id3v1Magic) {
		body = body[:len(body)-id3v1Size]
	}
	return append([]byte(nil), body...), nil
}

var genreRef = regexp.MustCompile(`^\((\d+)\)`)

// splitGenres splits null-separated ID3v2.4 values and resolves ID3v1
// numeric references such as "(17)" or "17".
func splitGenres(raw string) []string {
	var out []string
	for _, g := range strings.Split(raw, "\x00") {
		g = strings.TrimSpace(g)
		if m := genreRef.FindStringSubmatch(g); m != nil {
			rest := strings.TrimSpace(g[len(m[0]):])
			if rest != "" {
				g = rest
			} else {
				g = m[1]
			}
		}
		if n, err := strconv.Atoi(g); err == nil && n >= 0 && n < len(id3v1Genres) {
			g = id3v1Genres[n]
		}
		if g != "" {
			out = append(out, g)
		}
	}
	return out
}

var id3v1Genres = []string{
	"Blues", "Classic Rock", "Country", "Dance", "Disco", "Funk", "Grunge",
	"Hip-Hop", "Jazz", "Metal", "New Age", "Oldies", "Other", "Pop", "R&B",
	"Rap", "Reggae", "Rock", "Techno", "Industrial", "Alternative", "Ska",
	"Death Metal", "Pranks", "Soundtrack", "Euro-Techno", "Ambient",
	"Trip-Hop", "Vocal", "Jazz+Funk", "Fusion", "Trance", "Classical",
	"Instrumental", "Acid", "House", "Game", "Sound Clip", "Gospel", "Noise",
	"AlternRock", "Bass", "Soul", "Punk", "Space", "Meditative",
	"Instrumental Pop", "Instrumental Rock", "Ethnic", "Gothic", "Darkwave",
	"Techno-Industrial", "Electronic", "Pop-Folk", "Eurodance", "Dream",
	"Southern Rock", "Comedy", "Cult", "Gangsta", "Top 40", "Christian Rap",
	"Pop/Funk", "Jungle", "Native American", "Cabaret", "New Wave",
	"Psychedelic", "Rave", "Showtunes", "Trailer", "Lo-Fi", "Tribal",
	"Acid Punk", "Acid Jazz", "Polka", "Retro", "Musical", "Rock & Roll",
	"Hard Rock",
}
