package magick

import (
	"strings"

	"github.com/backmassage/texmaster/internal/dxt"
)

// ParseIdentify extracts the compression mode from `identify -verbose`
// output. The first line carrying a "Compression:" label wins; its value
// is matched by [dxt.ParseMode]. found is false when no such line exists,
// in which case mode is [dxt.Default].
func ParseIdentify(out string) (mode dxt.Mode, found bool) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "Compression:") {
			continue
		}
		value := line[strings.LastIndex(line, ":")+1:]
		return dxt.ParseMode(strings.TrimSpace(value)), true
	}
	return dxt.Default, false
}
