package ews

import "regexp"

// The print-quality page is a plain HTML form of <select> controls. The
// device firmware emits stable, primitive markup, so the extraction is a
// regexp scrape rather than a full HTML parse. All markup contracts for the
// embedded web server live in this package.

var (
	selectRe   = regexp.MustCompile(`(?is)<select[^>]*\bname=["']?([^"'\s>]+)["']?[^>]*>(.*?)</select>`)
	optionRe   = regexp.MustCompile(`(?is)<option\b([^>]*)>`)
	selectedRe = regexp.MustCompile(`(?i)\bselected\b`)
	valueRe    = regexp.MustCompile(`(?i)\bvalue=["']?([^"'\s>]*)["']?`)
)

// parseSelectedOptions extracts, for every <select> control on the page, the
// value of the option carrying a selected attribute. Controls with no selected
// option are omitted. The result is the full current configuration of the
// page, which must be round-tripped unchanged on submit.
func parseSelectedOptions(page string) map[string]string {
	options := make(map[string]string)
	for _, sel := range selectRe.FindAllStringSubmatch(page, -1) {
		name, body := sel[1], sel[2]
		for _, opt := range optionRe.FindAllStringSubmatch(body, -1) {
			attrs := opt[1]
			if !selectedRe.MatchString(attrs) {
				continue
			}
			if m := valueRe.FindStringSubmatch(attrs); m != nil {
				options[name] = m[1]
			}
			break
		}
	}
	return options
}
