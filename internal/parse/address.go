package parse

import (
	"html"
	"regexp"
	"strings"
)

// Delivery blocks mix customer name, street address and city/state/zip
// with no consistent tag structure. The trailing "City, ST ZIP" line is
// the most reliable anchor available.
var (
	cityStateZipRe = regexp.MustCompile(`,\s*[A-Z]{2}\s+\d{5}(-\d{4})?$`)
	phoneRe        = regexp.MustCompile(`\(?\d{3}\)?[ .-]?\d{3}[ .-]?\d{4}`)
	brTagRe        = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagRe          = regexp.MustCompile(`<[^>]+>`)
	doubleCommaRe  = regexp.MustCompile(`\s*,\s*,`)
	spaceRunRe     = regexp.MustCompile(`\s+`)
)

// ExtractAddress derives a plausible postal address from the raw HTML of
// a "Deliver to" block. The result may be empty when the block holds no
// usable lines.
func ExtractAddress(deliveryHTML string) string {
	txt := brTagRe.ReplaceAllString(deliveryHTML, "\n")
	txt = tagRe.ReplaceAllString(txt, " ")
	txt = html.UnescapeString(txt)

	var lines []string
	for _, raw := range strings.Split(txt, "\n") {
		l := strings.Trim(spaceRunRe.ReplaceAllString(strings.TrimSpace(raw), " "), " ,")
		if l == "" {
			continue
		}
		// Contact lines are noise for a postal address
		if strings.Contains(l, "@") || phoneRe.MatchString(l) {
			continue
		}
		lines = append(lines, l)
	}

	cityIdx := -1
	for i, l := range lines {
		if cityStateZipRe.MatchString(l) {
			cityIdx = i
			break
		}
	}

	var window []string
	if cityIdx == -1 {
		if len(lines) > 3 {
			window = lines[len(lines)-3:]
		} else {
			window = lines
		}
	} else {
		start := cityIdx - 2
		if start < 0 {
			start = 0
		}
		window = lines[start : cityIdx+1]
	}

	if len(window) > 3 {
		window = window[len(window)-3:]
	}

	for i, l := range window {
		window[i] = strings.Trim(doubleCommaRe.ReplaceAllString(l, ", "), " ,")
	}
	return strings.Join(window, ", ")
}
