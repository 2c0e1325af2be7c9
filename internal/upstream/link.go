// SPDX-License-Identifier: MIT

package upstream

import "strings"

// link is one RFC 5988 link-value: a target URL plus its parameters.
type link struct {
	url    string
	params map[string]string
}

// parseLinkHeader parses an RFC 5988 Link header value into its
// individual link-values. Commas inside the <...> URL reference are not
// treated as separators.
func parseLinkHeader(value string) []link {
	var links []link
	for _, raw := range splitLinkValues(value) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		links = append(links, parseLinkValue(raw))
	}
	return links
}

func splitLinkValues(value string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range value {
		switch r {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, value[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, value[start:])
	return parts
}

func parseLinkValue(raw string) link {
	l := link{params: map[string]string{}}

	open := strings.IndexByte(raw, '<')
	end := strings.IndexByte(raw, '>')
	if open >= 0 && end > open {
		l.url = raw[open+1 : end]
		raw = raw[end+1:]
	}

	for _, seg := range strings.Split(raw, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		kv := strings.SplitN(seg, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.Trim(strings.TrimSpace(kv[1]), `"`)
		l.params[key] = val
	}
	return l
}

// extractAssetHints collects every stylesheet link (order preserved) and
// the first fragment-script link from one or more raw Link header values.
func extractAssetHints(headerValues ...string) (cssLinks []string, scriptLink string) {
	for _, v := range headerValues {
		if v == "" {
			continue
		}
		for _, l := range parseLinkHeader(v) {
			switch strings.ToLower(l.params["rel"]) {
			case "stylesheet":
				cssLinks = append(cssLinks, l.url)
			case "fragment-script":
				if scriptLink == "" {
					scriptLink = l.url
				}
			}
		}
	}
	return cssLinks, scriptLink
}
