// Package trace records what a stream delivered and serialises it as
// canonical JSON for golden-file comparison.
//
// Canonical form: object keys sorted by UTF-16 code units, no
// insignificant whitespace, no HTML escaping, strings NFC-normalised and
// integral numbers printed without a fraction. The same trace always
// produces the same bytes.
package trace
