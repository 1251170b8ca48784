// Package detector implements the sensitive-data pattern family: social
// security numbers, payment card numbers (Luhn-validated), AWS access
// keys and secret assignments, email addresses, and US phone numbers.
//
// Offsets and context windows are computed over the raw byte slice, not
// over decoded runes. The source this is modeled on measured context in
// characters while storing a byte offset, which diverges for multi-byte
// input; here byte_offset and the context window are kept consistent by
// working in bytes throughout.
package detector

import (
	"regexp"
	"sort"
)

// Kind identifies a pattern family.
type Kind string

const (
	KindSSN         Kind = "ssn"
	KindCreditCard  Kind = "credit_card"
	KindAWSKey      Kind = "aws_key"
	KindAWSSecret   Kind = "aws_secret"
	KindEmail       Kind = "email"
	KindPhoneUS     Kind = "phone_us"
)

// Finding is one detection emitted by Detect, independent of any
// persistence model.
type Finding struct {
	Kind        Kind
	MaskedMatch string
	Context     string
	ByteOffset  int
}

// DefaultMaxPerKind is the per-kind cap applied when a caller does not
// specify one.
const DefaultMaxPerKind = 10

// DefaultContextChars is the number of bytes of context kept on each
// side of a match when a caller does not specify one.
const DefaultContextChars = 50

type patternSpec struct {
	kind    Kind
	re      *regexp.Regexp
	mask    func(match []byte) string
	validate func(match []byte) bool
}

var specs = []patternSpec{
	{
		kind: KindSSN,
		re:   regexp.MustCompile(`(?i)\b\d{3}-\d{2}-\d{4}\b`),
		mask: maskSSN,
	},
	{
		kind:     KindCreditCard,
		re:       regexp.MustCompile(`(?i)\b(?:\d[ -]*?){13,16}\b`),
		mask:     maskCreditCard,
		validate: validateCreditCard,
	},
	{
		kind: KindAWSKey,
		re:   regexp.MustCompile(`(?i)AKIA[0-9A-Z]{16}`),
		mask: maskAWSKey,
	},
	{
		kind: KindAWSSecret,
		re:   regexp.MustCompile(`(?is)aws_secret_access_key\s*=\s*['"]?[A-Za-z0-9/+=]{40}['"]?`),
		mask: maskFixed,
	},
	{
		kind: KindEmail,
		re:   regexp.MustCompile(`(?i)[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
		mask: maskFixed,
	},
	{
		kind: KindPhoneUS,
		re:   regexp.MustCompile(`(?i)\(?\d{3}\)?[ -]?\d{3}[ -]?\d{4}`),
		mask: maskFixed,
	},
}

// Detect scans text for every registered pattern kind and returns a
// bounded, masked list of findings. It never errors: malformed or
// non-UTF-8 input simply yields fewer or zero matches, since regexp
// operates directly on the byte slice regardless of encoding validity.
func Detect(text []byte, maxPerKind, contextChars int) []Finding {
	if maxPerKind <= 0 {
		maxPerKind = DefaultMaxPerKind
	}
	if contextChars <= 0 {
		contextChars = DefaultContextChars
	}

	var findings []Finding
	for _, spec := range specs {
		findings = append(findings, detectKind(spec, text, maxPerKind, contextChars)...)
	}
	return findings
}

func detectKind(spec patternSpec, text []byte, maxPerKind, contextChars int) []Finding {
	locs := spec.re.FindAllIndex(text, -1)
	var out []Finding
	for _, loc := range locs {
		if len(out) >= maxPerKind {
			break
		}
		start, end := loc[0], loc[1]
		match := text[start:end]

		if spec.validate != nil && !spec.validate(match) {
			continue
		}

		ctxStart := start - contextChars
		if ctxStart < 0 {
			ctxStart = 0
		}
		ctxEnd := end + contextChars
		if ctxEnd > len(text) {
			ctxEnd = len(text)
		}

		out = append(out, Finding{
			Kind:        spec.kind,
			MaskedMatch: spec.mask(match),
			Context:     string(text[ctxStart:ctxEnd]),
			ByteOffset:  start,
		})
	}
	// locs are already left-to-right by match start; stable to be safe.
	sort.SliceStable(out, func(i, j int) bool { return out[i].ByteOffset < out[j].ByteOffset })
	return out
}

func maskSSN(match []byte) string {
	if len(match) < 4 {
		return "XXX-XX-XXXX"
	}
	return "XXX-XX-" + string(match[len(match)-4:])
}

func maskCreditCard(match []byte) string {
	if len(match) < 4 {
		return "****-****-****-****"
	}
	return "****-****-****-" + string(match[len(match)-4:])
}

func maskAWSKey(match []byte) string {
	if len(match) <= 8 {
		return "AKIA****"
	}
	return string(match[:4]) + "..." + string(match[len(match)-4:])
}

func maskFixed(match []byte) string {
	return "***MASKED***"
}

// stripNonDigits removes separators, returning only the digit run.
func stripNonDigits(match []byte) []byte {
	out := make([]byte, 0, len(match))
	for _, b := range match {
		if b >= '0' && b <= '9' {
			out = append(out, b)
		}
	}
	return out
}

func validateCreditCard(match []byte) bool {
	digits := stripNonDigits(match)
	if len(digits) < 13 || len(digits) > 16 {
		return false
	}
	return luhnValid(digits)
}

// luhnValid implements the Luhn mod-10 checksum: starting from the
// rightmost digit, double every second digit, sum the decimal digits of
// the doubled values, add the untouched digits, and check divisibility
// by ten.
func luhnValid(digits []byte) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
