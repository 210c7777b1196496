package matching

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/savegress/remitmatch/internal/names"
	"github.com/savegress/remitmatch/internal/procedures"
	"github.com/savegress/remitmatch/pkg/models"
)

const dateLayout = "2006-01-02"

// Score component weights. A candidate that clears every gate scores at
// least 90 before bonuses, so MinScore of 89 admits exactly the candidates
// that passed.
const (
	datePoints      = 30
	statusPoints    = 10
	maxNamePoints   = 30
	procPoints      = 30
	fullSubBonus    = 15
	partialSubBonus = 8
)

// Config holds the thresholds the scorer gates on.
type Config struct {
	// MinScore is the lowest total score accepted from the remote search.
	MinScore int

	// NameGateScore is the minimum name score (out of 30) a candidate
	// needs before the remaining gates run.
	NameGateScore int

	// FeeOverrideNameScore is the stricter name floor required before a
	// fee comparison may override a failed procedure-code gate.
	FeeOverrideNameScore int

	// ProcedureFloor is the code overlap fraction a candidate must exceed.
	ProcedureFloor float64

	// FeeTolerance is the absolute per-procedure fee difference treated
	// as a match.
	FeeTolerance decimal.Decimal

	// FeeRatioTolerance is the relative fee difference treated as a match
	// when the absolute difference exceeds FeeTolerance.
	FeeRatioTolerance float64

	// FeeMatchShare is the fraction of fee pairs that must match for the
	// fee override to apply.
	FeeMatchShare float64
}

func DefaultConfig() *Config {
	return &Config{
		MinScore:             89,
		NameGateScore:        20,
		FeeOverrideNameScore: 25,
		ProcedureFloor:       0.49,
		FeeTolerance:         decimal.NewFromInt(1),
		FeeRatioTolerance:    0.02,
		FeeMatchShare:        0.8,
	}
}

// Override identifies which fallback admitted a candidate whose procedure
// codes did not line up.
type Override string

const (
	OverrideNone  Override = ""
	OverrideFee   Override = "fee_match"
	OverrideCount Override = "count_match"
)

// Scorer applies the gate ladder to one candidate claim at a time.
// Safe for concurrent use.
type Scorer struct {
	cfg     *Config
	matcher *names.Matcher
	nicks   *names.Nicknames
}

func NewScorer(cfg *Config) *Scorer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Scorer{
		cfg:     cfg,
		matcher: names.NewMatcher(),
		nicks:   names.NewNicknames(),
	}
}

// Score runs a candidate through the date, status, name, and procedure
// gates. It returns zero when any gate rejects. allowReceivedPrimary admits
// status R claims when the claim is not secondary, which only the cache
// path uses.
//
// The name gate retries once with the criteria first and last names
// swapped, which recovers EOBs where the payer reversed the name fields.
func (s *Scorer) Score(
	claim *models.Claim,
	procs []models.ClaimProcedure,
	criteria *models.SearchCriteria,
	ownerFN, ownerLN string,
	critFN, critLN string,
	allowReceivedPrimary bool,
) (int, Override) {
	claimDate, err := time.Parse(dateLayout, claim.DateService)
	if err != nil {
		return 0, OverrideNone
	}
	targetDate, err := time.Parse(dateLayout, criteria.DateOfService)
	if err != nil {
		return 0, OverrideNone
	}
	if !claimDate.Equal(targetDate) {
		return 0, OverrideNone
	}

	switch claim.ClaimStatus {
	case models.ClaimStatusSent, models.ClaimStatusHeld:
	case models.ClaimStatusReceived:
		if !allowReceivedPrimary || claim.IsSecondary() {
			return 0, OverrideNone
		}
	default:
		return 0, OverrideNone
	}

	nameScore := s.NameScore(ownerFN, ownerLN, critFN, critLN)
	if nameScore < s.cfg.NameGateScore {
		swapped := s.NameScore(ownerFN, ownerLN, critLN, critFN)
		if swapped < s.cfg.NameGateScore {
			return 0, OverrideNone
		}
		nameScore = swapped
	}

	eobCodes := eobProcCodes(criteria)
	claimCodes := make([]string, 0, len(procs))
	for _, p := range procs {
		if c := procedures.NormalizeCode(p.CodeSent); c != "" {
			claimCodes = append(claimCodes, c)
		}
	}

	var pct float64
	switch {
	case len(eobCodes) == 0 && len(claimCodes) == 0:
		pct = 1.0
	case len(eobCodes) == 0 || len(claimCodes) == 0:
		pct = 0
	default:
		pct, _ = procedures.MatchPercentage(eobCodes, claimCodes)
	}

	override := OverrideNone
	if pct <= s.cfg.ProcedureFloor {
		switch {
		case s.feeOverride(nameScore, procs, criteria):
			override = OverrideFee
		case s.countOverride(nameScore, procs, criteria):
			override = OverrideCount
		default:
			return 0, OverrideNone
		}
	}

	return datePoints + statusPoints + nameScore + procPoints, override
}

// NameScore scores a candidate's name against the criteria name, 0 to 30.
// The first name must match through the nickname table or the fuzzy
// pattern, or the whole score is zero. The last name contributes through a
// ladder of full match, per-part match, then character similarity.
func (s *Scorer) NameScore(claimFN, claimLN, critFN, critLN string) int {
	critFN = strings.ToLower(strings.TrimSpace(critFN))
	critLN = strings.ToLower(strings.TrimSpace(critLN))
	if critFN == "" {
		return 0
	}

	claimFN = strings.ToLower(strings.TrimSpace(claimFN))
	claimLN = strings.ToLower(strings.TrimSpace(claimLN))
	if claimFN == "" {
		return 0
	}

	fnScore := 0
	if s.nicks.Related(critFN, claimFN) {
		fnScore = 15
	} else if s.matcher.MatchName(s.matcher.PatternWithNicknames(critFN), claimFN) {
		fnScore = 15
	} else {
		return 0
	}

	lnScore := 0
	if critLN != "" {
		if claimLN != "" {
			if s.matcher.MatchName(s.matcher.PatternForQuery(critLN), claimLN) {
				lnScore = 15
			} else {
				parts := splitNameParts(compoundSplitRE, critLN)
				if len(parts) > 1 {
					for _, part := range parts {
						if s.matcher.MatchName(s.matcher.PatternForQuery(part), claimLN) {
							lnScore = 15
							break
						}
					}
				}
				if lnScore == 0 {
					lnScore = names.Compare(critLN, claimLN).Score
				}
			}
		}
	} else if fnScore == 15 {
		lnScore = 15
	}

	return fnScore + lnScore
}

// feeOverride admits an alternate-benefit candidate: the carrier repriced
// the visit under different codes, but the billed fee amounts still line
// up one for one with the submitted amounts on the remittance.
func (s *Scorer) feeOverride(nameScore int, procs []models.ClaimProcedure, criteria *models.SearchCriteria) bool {
	if nameScore < s.cfg.FeeOverrideNameScore {
		return false
	}
	if len(procs) == 0 || len(criteria.PaymentInfo.Procedures) == 0 {
		return false
	}

	var claimFees, eobFees []decimal.Decimal
	for _, p := range procs {
		if p.FeeBilled.IsPositive() {
			claimFees = append(claimFees, p.FeeBilled)
		}
	}
	for _, p := range criteria.PaymentInfo.Procedures {
		if p.SubmittedAmt.IsPositive() {
			eobFees = append(eobFees, p.SubmittedAmt)
		}
	}
	if len(claimFees) == 0 || len(eobFees) == 0 || len(claimFees) != len(eobFees) {
		return false
	}

	sortDecimals(claimFees)
	sortDecimals(eobFees)

	matches := 0
	for i := range claimFees {
		if s.feesClose(claimFees[i], eobFees[i]) {
			matches++
		}
	}
	return float64(matches)/float64(len(claimFees)) >= s.cfg.FeeMatchShare
}

// countOverride admits a candidate whose procedure line count equals the
// remittance's, on the strength of the date and name agreement alone.
func (s *Scorer) countOverride(nameScore int, procs []models.ClaimProcedure, criteria *models.SearchCriteria) bool {
	if nameScore < s.cfg.NameGateScore {
		return false
	}
	return len(procs) == len(criteria.PaymentInfo.Procedures)
}

func (s *Scorer) feesClose(a, b decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	if diff.LessThanOrEqual(s.cfg.FeeTolerance) {
		return true
	}
	max := a
	if b.GreaterThan(a) {
		max = b
	}
	if !max.IsPositive() {
		return true
	}
	ratio, _ := diff.Div(max).Float64()
	return ratio <= s.cfg.FeeRatioTolerance
}

func eobProcCodes(criteria *models.SearchCriteria) []string {
	var codes []string
	for _, p := range criteria.PaymentInfo.Procedures {
		if p.ProcCode != "" {
			codes = append(codes, procedures.NormalizeCode(p.ProcCode))
		}
	}
	return codes
}

func splitNameParts(re *regexp.Regexp, s string) []string {
	raw := re.Split(s, -1)
	out := raw[:0]
	for _, p := range raw {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sortDecimals(ds []decimal.Decimal) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].LessThan(ds[j]) })
}
