package service

import (
	"fmt"
	"sort"

	"github.com/dayoonc/finbook/internal/domain"
)

// DefaultAmountTolerance is the maximum absolute-amount difference, in minor
// units, under which two legs may still be considered the same transfer.
const DefaultAmountTolerance = 2

// PairedCandidate is one canonical transfer produced from two uploaded legs.
type PairedCandidate struct {
	Candidate   *domain.Candidate
	AutoMatched bool
}

// Pairer combines two same-bucket candidates (an outgoing and an incoming
// leg) into one canonical transfer record. The direction-decision ordering
// is load-bearing: it keeps pairing deterministic and symmetric regardless
// of input order.
type Pairer struct {
	Tolerance int64
}

func NewPairer() *Pairer {
	return &Pairer{Tolerance: DefaultAmountTolerance}
}

// decidePairDirection picks the outgoing and incoming legs of a pair.
// Priority: amount signs, explicit flow hints (one-sided hints count),
// structural hint (one leg's counter equals the other's account), counter
// presence, then lexical comparison of normalized account keys.
func decidePairDirection(a, b *domain.Candidate) (out, in *domain.Candidate) {
	switch {
	case a.Amount < 0 && b.Amount > 0:
		return a, b
	case b.Amount < 0 && a.Amount > 0:
		return b, a
	}

	switch {
	case a.Flow == domain.FlowOut && b.Flow != domain.FlowOut:
		return a, b
	case b.Flow == domain.FlowOut && a.Flow != domain.FlowOut:
		return b, a
	case a.Flow == domain.FlowIn && b.Flow != domain.FlowIn:
		return b, a
	case b.Flow == domain.FlowIn && a.Flow != domain.FlowIn:
		return a, b
	}

	aCtr, bCtr := a.CounterRef(), b.CounterRef()
	aAcc, bAcc := a.AccountRef(), b.AccountRef()
	switch {
	case aCtr != "" && aCtr == bAcc:
		return a, b
	case bCtr != "" && bCtr == aAcc:
		return b, a
	}

	switch {
	case aCtr != "" && bCtr == "":
		return a, b
	case bCtr != "" && aCtr == "":
		return b, a
	}

	if bAcc < aAcc {
		return b, a
	}
	return a, b
}

// buildPair collapses an outgoing and incoming leg into the canonical
// record. The outgoing leg dominates: its amount (stored negative), memo and
// category, with incoming-leg fallbacks. The counter identity is the first
// of in.account, in.counter, out.counter that differs from the outgoing
// leg's account; with no distinguishable counter identity the pair is
// abandoned and both legs go back to the leftovers.
func buildPair(out, in *domain.Candidate) (*domain.Candidate, error) {
	magnitude := out.Amount
	if magnitude == 0 {
		magnitude = in.Amount
	}
	if magnitude < 0 {
		magnitude = -magnitude
	}

	c := *out
	c.Kind = domain.TxnTransfer
	c.Amount = -magnitude
	c.Flow = ""

	outAcc := out.AccountRef()
	switch {
	case in.AccountRef() != "" && in.AccountRef() != outAcc:
		c.CounterAccountID = in.AccountID
		c.CounterAccountName = in.AccountName
	case in.CounterRef() != "" && in.CounterRef() != outAcc:
		c.CounterAccountID = in.CounterAccountID
		c.CounterAccountName = in.CounterAccountName
	case out.CounterRef() != "" && out.CounterRef() != outAcc:
		// keep the outgoing leg's own counter hint
	default:
		return nil, fmt.Errorf("no distinguishable counter identity: %w", ErrValidation)
	}

	if c.Memo == "" {
		c.Memo = in.Memo
	}
	if c.Payee == "" {
		c.Payee = in.Payee
	}
	if c.CategoryID == nil {
		c.CategoryID = in.CategoryID
	}
	if c.ExternalKey == "" {
		c.ExternalKey = in.ExternalKey
	}
	if c.ImportSource == "" {
		c.ImportSource = in.ImportSource
	}
	if c.TimeOfDay == nil {
		c.TimeOfDay = in.TimeOfDay
	}
	c.BalanceNeutral = out.BalanceNeutral || in.BalanceNeutral
	c.ExcludeFromReports = out.ExcludeFromReports || in.ExcludeFromReports
	return &c, nil
}

// PairTransfers pairs candidates sharing one batch bucket using exact
// amounts. It returns the combined records plus the unpaired leftovers.
func (p *Pairer) PairTransfers(cands []*domain.Candidate) ([]PairedCandidate, []*domain.Candidate) {
	if len(cands) < 2 {
		return nil, cands
	}

	if len(cands) == 2 {
		out, in := decidePairDirection(cands[0], cands[1])
		combined, err := buildPair(out, in)
		if err != nil {
			return nil, cands
		}
		return []PairedCandidate{{Candidate: combined, AutoMatched: true}}, nil
	}

	var outs, ins, unknown []*domain.Candidate
	for _, c := range cands {
		switch c.Flow {
		case domain.FlowOut:
			outs = append(outs, c)
		case domain.FlowIn:
			ins = append(ins, c)
		default:
			unknown = append(unknown, c)
		}
	}
	for _, c := range unknown {
		switch {
		case c.CounterRef() != "" && c.AccountRef() == "":
			ins = append(ins, c)
		case c.AccountRef() != "" && c.CounterRef() == "":
			outs = append(outs, c)
		case len(outs) <= len(ins):
			outs = append(outs, c)
		default:
			ins = append(ins, c)
		}
	}

	var pairs []PairedCandidate
	var leftovers []*domain.Candidate
	taken := make(map[*domain.Candidate]bool)

	for _, out := range outs {
		in := pickIncoming(out, ins, taken)
		if in == nil {
			leftovers = append(leftovers, out)
			continue
		}
		combined, err := buildPair(out, in)
		if err != nil {
			leftovers = append(leftovers, out, in)
			taken[in] = true
			continue
		}
		taken[in] = true
		pairs = append(pairs, PairedCandidate{Candidate: combined, AutoMatched: true})
	}
	for _, in := range ins {
		if !taken[in] {
			leftovers = append(leftovers, in)
		}
	}

	// Nothing paired but the bucket still holds legs: force-pair the
	// leftovers two at a time so an all-unknown upload of real transfers
	// does not produce standalone rows.
	if len(pairs) == 0 {
		for len(leftovers) >= 2 {
			out, in := decidePairDirection(leftovers[0], leftovers[1])
			combined, err := buildPair(out, in)
			if err != nil {
				break
			}
			pairs = append(pairs, PairedCandidate{Candidate: combined, AutoMatched: true})
			leftovers = leftovers[2:]
		}
	}
	return pairs, leftovers
}

// pickIncoming selects the incoming leg for out by, in order: exact
// counter-hint match, exact reverse counter-hint match, any counter-hint
// cross match, first available.
func pickIncoming(out *domain.Candidate, ins []*domain.Candidate, taken map[*domain.Candidate]bool) *domain.Candidate {
	var exact, reverse, cross, first *domain.Candidate
	for _, in := range ins {
		if taken[in] {
			continue
		}
		switch {
		case out.CounterRef() != "" && out.CounterRef() == in.AccountRef():
			if exact == nil {
				exact = in
			}
		case in.CounterRef() != "" && in.CounterRef() == out.AccountRef():
			if reverse == nil {
				reverse = in
			}
		case out.CounterRef() != "" && in.CounterRef() != "":
			if cross == nil {
				cross = in
			}
		}
		if first == nil {
			first = in
		}
	}
	switch {
	case exact != nil:
		return exact
	case reverse != nil:
		return reverse
	case cross != nil:
		return cross
	default:
		return first
	}
}

// PairTransfersWithTolerance pairs candidates whose absolute amounts differ
// by at most the configured tolerance. Candidates are walked in ascending
// absolute-amount order, so the outcome does not depend on input order; each
// remaining candidate is scored (+1 opposite sign, +1 opposite flow hint)
// and the best scoring partner wins. Any partner within tolerance may pair;
// the score only breaks ties.
func (p *Pairer) PairTransfersWithTolerance(cands []*domain.Candidate) ([]PairedCandidate, []*domain.Candidate) {
	tol := p.Tolerance
	if tol <= 0 {
		tol = DefaultAmountTolerance
	}
	if len(cands) < 2 {
		return nil, cands
	}

	sorted := make([]*domain.Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return absAmount(sorted[i].Amount) < absAmount(sorted[j].Amount)
	})

	used := make([]bool, len(sorted))
	var pairs []PairedCandidate
	var leftovers []*domain.Candidate

	for i, a := range sorted {
		if used[i] {
			continue
		}
		best, bestScore := -1, -1
		for j := range sorted {
			if j == i || used[j] {
				continue
			}
			b := sorted[j]
			diff := absAmount(a.Amount) - absAmount(b.Amount)
			if diff < 0 {
				diff = -diff
			}
			if diff > tol {
				continue
			}
			score := 0
			if (a.Amount < 0 && b.Amount > 0) || (a.Amount > 0 && b.Amount < 0) {
				score++
			}
			if (a.Flow == domain.FlowOut && b.Flow == domain.FlowIn) ||
				(a.Flow == domain.FlowIn && b.Flow == domain.FlowOut) {
				score++
			}
			if score > bestScore {
				best, bestScore = j, score
			}
		}
		if best < 0 {
			leftovers = append(leftovers, a)
			continue
		}
		used[i], used[best] = true, true
		out, in := decidePairDirection(a, sorted[best])
		combined, err := buildPair(out, in)
		if err != nil {
			leftovers = append(leftovers, a, sorted[best])
			continue
		}
		pairs = append(pairs, PairedCandidate{Candidate: combined, AutoMatched: true})
	}
	return pairs, leftovers
}

func absAmount(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
