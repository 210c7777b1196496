package matching

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/savegress/remitmatch/internal/procedures"
	"github.com/savegress/remitmatch/pkg/models"
)

// Matcher finds the practice-management claims an insurance remittance
// belongs to. Cached claims are tried first, then a scored remote search,
// then a supplemental-payment fallback.
type Matcher struct {
	source   ClaimSource
	carriers CarrierResolver
	scorer   *Scorer
	cfg      *Config
	now      func() time.Time
}

// Options controls which search stages run.
type Options struct {
	// SkipRemote disables every remote lookup, restricting the search to
	// cached claims.
	SkipRemote bool

	// SkipSupplemental disables only the supplemental fallback stage.
	SkipSupplemental bool
}

func New(source ClaimSource, carriers CarrierResolver, cfg *Config) *Matcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Matcher{
		source:   source,
		carriers: carriers,
		scorer:   NewScorer(cfg),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Match runs the full search. Cached matches win outright; otherwise the
// remote search runs, and if that also comes up empty the supplemental
// fallback looks for already-received claims the remittance tops up.
//
// Remote lookup failures are logged and treated as empty results so that a
// flaky practice-management API degrades the search instead of failing it.
func (m *Matcher) Match(ctx context.Context, criteria *models.SearchCriteria, cached []models.Claim, opts Options) ([]models.ClaimMatch, error) {
	if _, err := time.Parse(dateLayout, criteria.DateOfService); err != nil {
		return nil, ErrInvalidDate
	}

	if matches := m.MatchCached(criteria, cached); len(matches) > 0 {
		return matches, nil
	}

	if opts.SkipRemote {
		return nil, nil
	}

	if matches := m.matchRemote(ctx, criteria); len(matches) > 0 {
		return matches, nil
	}

	if opts.SkipSupplemental {
		return nil, nil
	}
	return m.matchSupplemental(ctx, criteria), nil
}

type candidate struct {
	claim    models.Claim
	procs    []models.ClaimProcedure
	score    int
	override Override
}

// matchRemote collects candidates by patient and by subscriber, scores
// each once, and keeps those at or above the minimum score.
func (m *Matcher) matchRemote(ctx context.Context, criteria *models.SearchCriteria) []models.ClaimMatch {
	var cands []candidate
	processed := make(map[int64]bool)

	pfn := strings.TrimSpace(criteria.PatientFirstName)
	pln := strings.TrimSpace(criteria.PatientLastName)
	if pfn != "" && pln != "" {
		cands = m.collectPatientCandidates(ctx, criteria, pln, pfn, cands, processed)
	}

	sfn := strings.TrimSpace(criteria.SubscriberFirstName)
	sln := strings.TrimSpace(criteria.SubscriberLastName)
	if sfn != "" && sln != "" {
		cands = m.collectSubscriberCandidates(ctx, criteria, sln, sfn, cands, processed)
	}

	var matches []models.ClaimMatch
	for _, c := range cands {
		if c.score < m.cfg.MinScore {
			continue
		}
		source := models.SourceAPIStrict
		switch c.override {
		case OverrideFee:
			source = models.SourceAPIAlternateBenefit
		case OverrideCount:
			source = models.SourceAPICountMatch
		}

		score := c.score
		mm := claimToMatch(&c.claim, c.procs, &score, source)
		mm.HasSecondaryPlan = m.hasSecondaryPlan(ctx, &c.claim)
		if mm.CarrierName == "" && m.carriers != nil {
			mm.CarrierName = m.carriers.CarrierName(ctx, &c.claim)
		}
		matches = append(matches, mm)
	}

	sortByScore(matches)
	return prioritize(matches)
}

func (m *Matcher) collectPatientCandidates(
	ctx context.Context,
	criteria *models.SearchCriteria,
	lastName, firstName string,
	cands []candidate,
	processed map[int64]bool,
) []candidate {
	patient, err := m.resolvePatient(ctx, lastName, firstName)
	if err != nil {
		log.Printf("remote match: patient resolution failed for %q %q: %v", firstName, lastName, err)
		return cands
	}
	if patient == nil {
		return cands
	}

	claims, err := m.source.ClaimsByPatient(ctx, patient.PatNum)
	if err != nil {
		log.Printf("remote match: claims lookup failed for patient %d: %v", patient.PatNum, err)
		return cands
	}

	for i := range claims {
		claim := claims[i]
		if claim.ClaimNum == 0 || processed[claim.ClaimNum] {
			continue
		}
		if !m.prefilter(&claim, criteria) {
			continue
		}
		cand, ok := m.scoreCandidate(ctx, criteria, claim, patient.FirstName, patient.LastName)
		if ok {
			cands = append(cands, cand)
			processed[claim.ClaimNum] = true
		}
	}
	return cands
}

func (m *Matcher) collectSubscriberCandidates(
	ctx context.Context,
	criteria *models.SearchCriteria,
	lastName, firstName string,
	cands []candidate,
	processed map[int64]bool,
) []candidate {
	subscriber, err := m.resolvePatient(ctx, lastName, firstName)
	if err != nil {
		log.Printf("remote match: subscriber resolution failed for %q %q: %v", firstName, lastName, err)
		return cands
	}
	if subscriber == nil {
		return cands
	}

	subs, err := m.source.SubscriptionsBySubscriber(ctx, subscriber.PatNum)
	if err != nil {
		log.Printf("remote match: inssub lookup failed for subscriber %d: %v", subscriber.PatNum, err)
		return cands
	}
	active := activeSubscription(subs, m.now())
	if active == nil {
		return cands
	}

	claims, err := m.source.ClaimsBySubscription(ctx, active.InsSubNum)
	if err != nil {
		log.Printf("remote match: claims lookup failed for inssub %d: %v", active.InsSubNum, err)
		return cands
	}

	for i := range claims {
		claim := claims[i]
		if claim.ClaimNum == 0 || processed[claim.ClaimNum] {
			continue
		}
		if !m.prefilter(&claim, criteria) {
			continue
		}
		if claim.PatNum <= 0 {
			continue
		}

		// The claim may belong to a dependent, so score against the
		// owning patient's name rather than the subscriber's.
		owner, err := m.source.Patient(ctx, claim.PatNum)
		if err != nil || owner == nil {
			log.Printf("remote match: owner lookup failed for patient %d of claim %d: %v", claim.PatNum, claim.ClaimNum, err)
			continue
		}

		cand, ok := m.scoreCandidate(ctx, criteria, claim, owner.FirstName, owner.LastName)
		if ok {
			cands = append(cands, cand)
			processed[claim.ClaimNum] = true
		}
	}
	return cands
}

// prefilter rejects a remote candidate cheaply before its procedures are
// fetched.
func (m *Matcher) prefilter(claim *models.Claim, criteria *models.SearchCriteria) bool {
	if claim.ClaimStatus != models.ClaimStatusSent && claim.ClaimStatus != models.ClaimStatusHeld {
		return false
	}
	claimDate, err := time.Parse(dateLayout, claim.DateService)
	if err != nil {
		return false
	}
	targetDate, err := time.Parse(dateLayout, criteria.DateOfService)
	if err != nil {
		return false
	}
	return claimDate.Equal(targetDate)
}

func (m *Matcher) scoreCandidate(ctx context.Context, criteria *models.SearchCriteria, claim models.Claim, ownerFN, ownerLN string) (candidate, bool) {
	procs, err := m.source.ProceduresByClaim(ctx, claim.ClaimNum)
	if err != nil {
		log.Printf("remote match: procedure lookup failed for claim %d: %v", claim.ClaimNum, err)
		procs = nil
	}

	score, override := m.scorer.Score(
		&claim, procs, criteria,
		ownerFN, ownerLN,
		criteria.PatientFirstName, criteria.PatientLastName,
		false,
	)
	if score == 0 {
		return candidate{}, false
	}
	return candidate{claim: claim, procs: procs, score: score, override: override}, true
}

// matchSupplemental looks for claims the practice already sent or received
// whose procedures overlap the remittance. These are supplemental payments
// on a closed claim, so they carry no score and only the overlapping
// procedures.
func (m *Matcher) matchSupplemental(ctx context.Context, criteria *models.SearchCriteria) []models.ClaimMatch {
	firstName := firstToken(criteria.PatientFirstName)
	lastName := strings.TrimSpace(criteria.PatientLastName)
	if firstName == "" || lastName == "" {
		return nil
	}

	patient, err := m.resolvePatient(ctx, lastName, firstName)
	if err != nil || patient == nil {
		if err != nil {
			log.Printf("supplemental match: patient resolution failed for %q %q: %v", firstName, lastName, err)
		}
		return nil
	}

	claims, err := m.source.ClaimsByPatient(ctx, patient.PatNum)
	if err != nil {
		log.Printf("supplemental match: claims lookup failed for patient %d: %v", patient.PatNum, err)
		return nil
	}

	eobCodes := procedures.NormalizeSet(eobProcCodes(criteria))

	var matches []models.ClaimMatch
	for i := range claims {
		claim := claims[i]
		if claim.ClaimStatus != models.ClaimStatusReceived && claim.ClaimStatus != models.ClaimStatusSent {
			continue
		}
		claimDate, err := time.Parse(dateLayout, claim.DateService)
		if err != nil {
			continue
		}
		targetDate, _ := time.Parse(dateLayout, criteria.DateOfService)
		if !claimDate.Equal(targetDate) {
			continue
		}

		procs, err := m.source.ProceduresByClaim(ctx, claim.ClaimNum)
		if err != nil || len(procs) == 0 {
			continue
		}

		var overlapping []models.ClaimProcedure
		for _, p := range procs {
			code := procedures.NormalizeCode(p.CodeSent)
			if code == "" {
				continue
			}
			if _, ok := eobCodes[code]; ok {
				overlapping = append(overlapping, p)
			}
		}
		if len(overlapping) == 0 {
			continue
		}

		claim.PatNum = patient.PatNum
		mm := claimToMatch(&claim, overlapping, nil, models.SourceAPISupplemental)
		mm.IsSupplemental = true
		mm.HasSecondaryPlan = claim.InsSubNum2 > 0 || claim.PlanNum2 > 0
		if mm.CarrierName == "" && m.carriers != nil {
			mm.CarrierName = m.carriers.CarrierName(ctx, &claim)
		}
		matches = append(matches, mm)
	}
	return matches
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
