package probe

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TagLabel turns a container tag key such as "creation_time" into
// "Creation Time".
func TagLabel(key string) string {
	// A Caser is stateful and must not be shared across goroutines.
	return cases.Title(language.English).String(strings.Join(strings.Fields(strings.ReplaceAll(key, "_", " ")), " "))
}

// formatDuration renders seconds as HH:MM:SS.
func formatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int(seconds + 0.5)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

func formatKbps(bps string) string {
	n, err := strconv.ParseFloat(bps, 64)
	if err != nil || n <= 0 {
		return ""
	}
	return fmt.Sprintf("%.0f kbps", n/1000)
}

func formatKHz(hz string) string {
	n, err := strconv.ParseFloat(hz, 64)
	if err != nil || n <= 0 {
		return ""
	}
	return strconv.FormatFloat(n/1000, 'f', -1, 64) + " kHz"
}

// formatFrameRate accepts ffprobe rationals such as "30000/1001".
func formatFrameRate(r string) string {
	num, den, ok := strings.Cut(r, "/")
	if !ok {
		den = "1"
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || n <= 0 || d <= 0 {
		return ""
	}
	return strconv.FormatFloat(float64(int(n/d*100+0.5))/100, 'f', -1, 64) + " fps"
}

func formatChannels(n int, layout string) string {
	switch {
	case n <= 0:
		return ""
	case layout != "":
		return fmt.Sprintf("%d (%s)", n, layout)
	default:
		return strconv.Itoa(n)
	}
}
