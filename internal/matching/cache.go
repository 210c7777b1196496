package matching

import (
	"log"
	"sort"
	"strings"

	"github.com/savegress/remitmatch/internal/procedures"
	"github.com/savegress/remitmatch/pkg/models"
)

// MatchCached scores locally cached claims against the criteria. Cached
// claims carry their patient and subscriber names inline, so no remote
// lookups happen here.
//
// When the criteria's patient name is missing the subscriber name stands in
// for it, since for subscriber-only EOBs the cached patient is usually the
// subscriber. A matching cached subscriber name then adds a corroboration
// bonus on top of the base score.
func (m *Matcher) MatchCached(criteria *models.SearchCriteria, cached []models.Claim) []models.ClaimMatch {
	if len(cached) == 0 {
		return nil
	}

	critFN, critLN := cacheCriteriaName(criteria)
	if critFN == "" {
		log.Printf("cache match: no usable criteria name, skipping %d cached claims", len(cached))
		return nil
	}

	subFN := strings.TrimSpace(criteria.SubscriberFirstName)
	subLN := strings.TrimSpace(criteria.SubscriberLastName)

	var matches []models.ClaimMatch
	for i := range cached {
		claim := &cached[i]
		if claim.PatientFirstName == "" || claim.PatientLastName == "" {
			continue
		}

		score, override := m.scorer.Score(
			claim, claim.Procedures, criteria,
			claim.PatientFirstName, claim.PatientLastName,
			critFN, critLN,
			true,
		)
		if score == 0 {
			continue
		}

		bonus := 0
		if subFN != "" && subLN != "" &&
			strings.TrimSpace(claim.SubscriberFirstName) != "" &&
			strings.TrimSpace(claim.SubscriberLastName) != "" {
			subScore := m.scorer.NameScore(
				claim.SubscriberFirstName, claim.SubscriberLastName,
				subFN, subLN,
			)
			switch {
			case subScore == maxNamePoints:
				bonus = fullSubBonus
			case subScore >= fullSubBonus:
				bonus = partialSubBonus
			}
		}

		source := models.SourceCacheStrict
		switch override {
		case OverrideFee:
			source = models.SourceCacheAlternateBenefit
		case OverrideCount:
			source = models.SourceCacheCountMatch
		}

		total := score + bonus
		mm := claimToMatch(claim, claim.Procedures, &total, source)
		mm.HasSecondaryPlan = claim.InsSubNum2 > 0 || claim.PlanNum2 > 0
		matches = append(matches, mm)
	}

	sortByScore(matches)
	return prioritize(matches)
}

// cacheCriteriaName picks the criteria name to match cached patient names
// against: the patient name when both parts are present, otherwise the
// subscriber name.
func cacheCriteriaName(criteria *models.SearchCriteria) (fn, ln string) {
	pfn := strings.TrimSpace(criteria.PatientFirstName)
	pln := strings.TrimSpace(criteria.PatientLastName)
	if pfn != "" && pln != "" {
		return pfn, pln
	}
	sfn := strings.TrimSpace(criteria.SubscriberFirstName)
	sln := strings.TrimSpace(criteria.SubscriberLastName)
	if sfn != "" && sln != "" {
		return sfn, sln
	}
	return "", ""
}

// claimToMatch builds the outgoing match record from a claim and the
// procedures to report with it.
func claimToMatch(claim *models.Claim, procs []models.ClaimProcedure, score *int, source models.MatchSource) models.ClaimMatch {
	out := make([]models.ClaimProcedure, 0, len(procs))
	for _, p := range procs {
		p.CodeSent = procedures.NormalizeCode(p.CodeSent)
		out = append(out, p)
	}

	mm := models.ClaimMatch{
		ClaimNum:      claim.ClaimNum,
		PatNum:        claim.PatNum,
		ClaimFee:      claim.ClaimFee,
		DateOfService: claim.DateService,
		DateSent:      claim.DateSent,
		DateReceived:  claim.DateReceived,
		ClaimNote:     claim.ClaimNote,
		IsSecondary:   claim.IsSecondary(),
		MatchScore:    score,
		MatchSource:   source,
		Procedures:    out,
		IsOrtho:       claim.IsOrtho,
		CarrierName:   claim.CarrierName,
		ClaimStatus:   claim.ClaimStatus,
	}
	if claim.IsOrtho {
		mm.Ortho = &models.OrthoDetails{
			RemainingMonths: claim.OrthoRemainM,
			TotalMonths:     claim.OrthoTotalM,
			StartDate:       claim.OrthoDate,
		}
	}
	return mm
}

func sortByScore(matches []models.ClaimMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		return scoreOf(matches[i]) > scoreOf(matches[j])
	})
}

func scoreOf(m models.ClaimMatch) int {
	if m.MatchScore == nil {
		return 0
	}
	return *m.MatchScore
}

// prioritize partitions matches into primary and secondary claims. When
// both kinds matched, primaries are flagged as having a pending secondary
// and both groups are returned; otherwise whichever group is non-empty
// wins.
func prioritize(matches []models.ClaimMatch) []models.ClaimMatch {
	if len(matches) == 0 {
		return nil
	}

	var primary, secondary []models.ClaimMatch
	for _, m := range matches {
		if m.IsSecondary {
			secondary = append(secondary, m)
		} else {
			primary = append(primary, m)
		}
	}

	switch {
	case len(primary) > 0 && len(secondary) > 0:
		for i := range primary {
			primary[i].HasPendingSecondary = true
		}
		return append(primary, secondary...)
	case len(primary) > 0:
		return primary
	default:
		return secondary
	}
}
