// Package procedures normalizes dental procedure codes and measures the
// overlap between the codes on a remittance and the codes on a claim.
package procedures

import "strings"

// NormalizeCode canonicalizes a CDT procedure code. Payers pad codes with
// leading zeros after the D ("D00120" for "D0120") and some drop the D
// entirely; both forms reduce to the standard D-plus-four-digits shape.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ""
	}

	if strings.HasPrefix(code, "D") {
		body := code[1:]
		if len(body) > 4 && isDigits(body) {
			for len(body) > 4 && body[0] == '0' {
				body = body[1:]
			}
			return "D" + body
		}
		return code
	}

	if isDigits(code) {
		return "D" + code
	}
	return code
}

// MatchPercentage reports how much of the remittance's code set is present
// on the claim, along with the normalized codes common to both. A claim
// with a single repeated code matching a single repeated remittance code
// counts as a full match, which is how ortho continuation claims bill.
func MatchPercentage(paymentCodes, claimCodes []string) (float64, []string) {
	if len(paymentCodes) == 0 || len(claimCodes) == 0 {
		return 0, nil
	}

	distinctPay := distinct(paymentCodes)
	distinctClaim := distinct(claimCodes)
	if len(distinctPay) == 1 && len(distinctClaim) == 1 &&
		NormalizeCode(distinctPay[0]) == NormalizeCode(distinctClaim[0]) {
		return 1.0, []string{NormalizeCode(distinctPay[0])}
	}

	paySet := normalizeSet(paymentCodes)
	claimSet := normalizeSet(claimCodes)

	var matched []string
	for code := range paySet {
		if _, ok := claimSet[code]; ok {
			matched = append(matched, code)
		}
	}
	if len(paySet) == 0 {
		return 0, nil
	}
	return float64(len(matched)) / float64(len(paySet)), matched
}

// NormalizeSet returns the distinct normalized codes in the list, dropping
// blanks.
func NormalizeSet(codes []string) map[string]struct{} {
	return normalizeSet(codes)
}

func normalizeSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		n := NormalizeCode(c)
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func distinct(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	var out []string
	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
