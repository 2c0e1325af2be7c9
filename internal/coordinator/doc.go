// SPDX-License-Identifier: MIT

// Package coordinator drives one HTTP request end to end: it obtains a
// template and a context override map from external collaborators,
// parses the template, spawns a fragment runtime per placeholder, and
// streams the assembled output to the client under the primary-fragment
// status rule.
package coordinator
