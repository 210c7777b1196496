package matching

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/savegress/remitmatch/internal/names"
	"github.com/savegress/remitmatch/pkg/models"
)

var compoundSplitRE = regexp.MustCompile(`[\s'\-]+`)

// resolvePatient finds the patient record a name refers to, escalating
// through four lookup strategies:
//
//  1. full last name with first name
//  2. each multi-character part of a compound last name with first name
//  3. last name only, ranked against the first name
//  4. the trailing part of the compound last name with first name, if not
//     already tried
//
// A nil patient with a nil error means no confident resolution.
func (m *Matcher) resolvePatient(ctx context.Context, lastName, firstName string) (*models.Patient, error) {
	lastName = strings.TrimSpace(lastName)
	firstName = strings.TrimSpace(firstName)
	if lastName == "" || firstName == "" {
		return nil, nil
	}

	found, err := m.source.PatientsByName(ctx, lastName, firstName)
	if err != nil {
		return nil, err
	}

	lnParts := compoundParts(lastName)
	triedParts := false
	if len(found) == 0 && len(lnParts) > 1 {
		triedParts = true
		for _, part := range lnParts {
			found, err = m.source.PatientsByName(ctx, part, firstName)
			if err != nil {
				return nil, err
			}
			if len(found) > 0 {
				break
			}
		}
	}

	if len(found) == 0 {
		p, err := m.resolveByLastNameOnly(ctx, lastName, firstName)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	} else {
		return &found[0], nil
	}

	// Compound surnames sometimes index under the final part only.
	if len(lnParts) > 1 && !triedParts {
		last := lnParts[len(lnParts)-1]
		found, err = m.source.PatientsByName(ctx, last, firstName)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return &found[0], nil
		}
	}

	return nil, nil
}

// resolveByLastNameOnly lists everyone with the last name and ranks their
// first names against the query. The top candidate wins only when it is
// both confident and unambiguous.
func (m *Matcher) resolveByLastNameOnly(ctx context.Context, lastName, firstName string) (*models.Patient, error) {
	candidates, err := m.source.PatientsByName(ctx, lastName, "")
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	type ranked struct {
		patient models.Patient
		score   float64
	}

	query := strings.ToLower(firstName)
	var best []ranked
	for _, cand := range candidates {
		cfn := strings.ToLower(cand.FirstName)
		score := 0.0
		switch {
		case cfn == query:
			score = 1.0
		case strings.HasPrefix(cfn, query):
			score = 0.9
		case strings.HasPrefix(query, cfn):
			score = 0.8
		default:
			maxLen := len(cfn)
			if len(query) > maxLen {
				maxLen = len(query)
			}
			if maxLen > 0 {
				sim := 1.0 - float64(names.Levenshtein(cfn, query))/float64(maxLen)
				if sim >= 0.6 {
					score = sim * 0.7
				}
			}
		}
		if score > 0.75 {
			best = append(best, ranked{patient: cand, score: score})
		}
	}
	if len(best) == 0 {
		return nil, nil
	}

	sort.SliceStable(best, func(i, j int) bool { return best[i].score > best[j].score })
	if best[0].score < 0.70 {
		return nil, nil
	}
	if len(best) > 1 && best[0].score <= best[1].score+0.1 {
		log.Printf("patient resolution: ambiguous first-name match for %q %q, discarding", firstName, lastName)
		return nil, nil
	}
	return &best[0].patient, nil
}

// activeSubscription picks the subscription still in force: an open-ended
// or future termination date. Falls back to the first subscription when
// none qualifies.
func activeSubscription(subs []models.InsSub, now time.Time) *models.InsSub {
	if len(subs) == 0 {
		return nil
	}
	for i := range subs {
		if subs[i].DateTerm == "0001-01-01" {
			return &subs[i]
		}
		term, err := time.Parse(dateLayout, subs[i].DateTerm)
		if err == nil && term.After(now) {
			return &subs[i]
		}
	}
	return &subs[0]
}

// hasSecondaryPlan checks whether the claim's patient really carries a
// second insurance plan. The claim-level fields overreport, so a positive
// signal is confirmed against the patient's plan links.
func (m *Matcher) hasSecondaryPlan(ctx context.Context, claim *models.Claim) bool {
	if claim.InsSubNum2 <= 0 && claim.PlanNum2 <= 0 {
		return false
	}
	if claim.PatNum <= 0 {
		return true
	}
	plans, err := m.source.PlansByPatient(ctx, claim.PatNum)
	if err != nil {
		log.Printf("plan check: patplans lookup failed for patient %d: %v", claim.PatNum, err)
		return true
	}
	return len(plans) > 1
}

// compoundParts splits a compound name on whitespace, hyphens, and
// apostrophes, keeping only parts longer than one character.
func compoundParts(name string) []string {
	raw := splitNameParts(compoundSplitRE, strings.ToLower(name))
	out := raw[:0]
	for _, p := range raw {
		if len(p) > 1 {
			out = append(out, p)
		}
	}
	return out
}
