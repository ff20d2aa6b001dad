package core

import (
	"fmt"
	"time"
)

// DisplayTimeLayout renders timestamps the way an en-US locale does.
const DisplayTimeLayout = "1/2/2006, 3:04:05 PM"

// FormatTimestamp renders t in local time for display.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(DisplayTimeLayout)
}

// FormatMB renders a byte count as megabytes with two decimals.
func FormatMB(size int64) string {
	return fmt.Sprintf("%.2f MB", float64(size)/1024/1024)
}
