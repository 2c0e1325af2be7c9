// SPDX-License-Identifier: MIT

package upstream

import (
	"net/http"
	"strings"
)

var forwardedHeaders = []string{"Referer", "Accept-Language", "User-Agent"}

// ForwardHeaders builds the header set sent to an upstream fragment host:
// a fixed whitelist plus any vendor header matching X-<org>-*. Cookie and
// any other header are dropped, notably including arbitrary X-* headers
// outside the configured org prefix.
func ForwardHeaders(client http.Header, orgPrefix string) http.Header {
	out := make(http.Header)
	for _, name := range forwardedHeaders {
		if v := client.Get(name); v != "" {
			out.Set(name, v)
		}
	}
	if orgPrefix == "" {
		return out
	}
	for name, values := range client {
		if len(values) == 0 {
			continue
		}
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(orgPrefix)) {
			out[http.CanonicalHeaderKey(name)] = values
		}
	}
	return out
}
