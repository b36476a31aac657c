// Package templates holds the HTML fragments returned to HTMX requests.
// The components live in components.templ; run `templ generate` after
// editing it.
package templates

import "github.com/JonMunkholm/dsimport/internal/core"

func summaryStatus(res *core.ImportResult) string {
	if res.Cancelled || len(res.FailedChunks) > 0 {
		return "warning"
	}
	return "success"
}

func summaryTitle(res *core.ImportResult) string {
	switch {
	case res.Cancelled:
		return "Import cancelled"
	case len(res.FailedChunks) > 0:
		return "Import finished with failures"
	}
	return "Import complete"
}

// shownErrors returns the first maxErrors messages, or all of them when
// maxErrors is not positive.
func shownErrors(errs []string, maxErrors int) []string {
	if maxErrors > 0 && len(errs) > maxErrors {
		return errs[:maxErrors]
	}
	return errs
}

func hiddenErrors(errs []string, maxErrors int) int {
	return len(errs) - len(shownErrors(errs, maxErrors))
}
