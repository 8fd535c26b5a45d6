package documents

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
)

// DefaultSummaryLength is the summary length used when maxLen is not positive.
const DefaultSummaryLength = 500

const truncationMarker = "\n\n... [content truncated] ...\n\n"

// Summarize shortens content to its start, middle and end, each about a
// third of maxLen. Content already within maxLen is returned unchanged.
func Summarize(content string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSummaryLength
	}
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}

	chunk := maxLen / 3
	midStart := len(runes)/2 - chunk/2

	start := string(runes[:chunk])
	middle := string(runes[midStart : midStart+chunk])
	end := string(runes[len(runes)-chunk:])

	return start + truncationMarker + middle + truncationMarker + end
}

var keywordPattern = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the a an and or but in on at to for of with
		by is are was were be been have has had do does did will would could
		should may might must can this that these those i you he she it we they
		me him her us them my your his its our their`) {
		stopWords[w] = struct{}{}
	}
}

// Keywords returns up to limit of the most frequent words of three or more
// letters, skipping common stop words. Ties keep first-appearance order.
func Keywords(content string, limit int) []string {
	if limit <= 0 {
		limit = 10
	}

	counts := make(map[string]int)
	var order []string
	for _, w := range keywordPattern.FindAllString(strings.ToLower(content), -1) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	slices.SortStableFunc(order, func(a, b string) int {
		return cmp.Compare(counts[b], counts[a])
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}
