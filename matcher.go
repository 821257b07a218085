package fts

// ═══════════════════════════════════════════════════════════════════════
// MINIMAL-INTERVAL MATCHER (Greedy Block)
// ═══════════════════════════════════════════════════════════════════════
// Grounded on the teacher's search.go phrase-walking style (NextPhrase /
// findPhraseEnd hop Next/Previous across a single posting list); here the
// walk is across n independent Position Group Iterators, one per query
// term, with cumulative slop tracking and a restart-on-exceed rule.
// ═══════════════════════════════════════════════════════════════════════

// Interval is one minimal-interval match: the positions of the first and
// last query term and the accumulated slop between them.
type Interval struct {
	Start uint32
	End   uint32
	Slop  int
}

// MatchMinimalInterval runs the Greedy Block algorithm over terms, per
// spec.md §4.8. For n == 1 it trivially succeeds with slop 0 iff terms[0]
// has any position.
func MatchMinimalInterval(terms []*PositionGroupIterator, maxSlop int) (Interval, bool) {
	n := len(terms)
	if n == 0 {
		return Interval{}, false
	}
	if n == 1 {
		v, ok := terms[0].Current()
		if !ok {
			return Interval{}, false
		}
		return Interval{Start: v, End: v, Slop: 0}, true
	}

	pos0, ok := terms[0].Next()
	if !ok {
		return Interval{}, false
	}

	var best Interval
	haveBest := false

	for {
		positions := make([]uint32, n)
		positions[0] = pos0

		slop := 0
		restart := false
		exhausted := false

		for i := 1; i < n; i++ {
			v, ok := terms[i].AdvancePast(positions[i-1])
			if !ok {
				exhausted = true
				break
			}
			positions[i] = v
			slop += int(v) - int(positions[i-1]) - 1
			if slop > maxSlop {
				restart = true
				break
			}
		}

		if exhausted {
			break
		}

		if !restart {
			candidate := Interval{Start: positions[0], End: positions[n-1], Slop: slop}
			if !haveBest || candidate.Slop < best.Slop ||
				(candidate.Slop == best.Slop && candidate.Start < best.Start) {
				best = candidate
				haveBest = true
			}
		}

		next, ok := terms[0].Next()
		if !ok {
			break
		}
		pos0 = next
	}

	return best, haveBest
}
