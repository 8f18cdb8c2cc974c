package geohash

import (
	"fmt"
	"sort"
)

// siblings per parent cell
const fanout = len(Alphabet)

// Compress shrinks a covering set by replacing sibling groups with their
// parent cell until nothing changes. Codes already covered by a shorter code
// are dropped first. A group of k siblings is merged once k >= 32*accuracy:
// accuracy 1 only merges complete groups and preserves the covered area
// exactly; smaller values merge sparser groups and enlarge it.
//
// Iteration stops once a pass merges no group. With accuracy at or below
// 1/32 a single code already forms a mergeable group, so everything collapses
// to the empty (whole world) code. The result lists codes in non-decreasing
// length, which makes Compress idempotent for a fixed accuracy.
func Compress(codes []string, accuracy float64) ([]string, error) {
	if !(accuracy > 0 && accuracy <= 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidAccuracy, accuracy)
	}
	for _, code := range codes {
		if err := Validate(code); err != nil {
			return nil, err
		}
	}

	threshold := float64(fanout) * accuracy
	current := codes
	for {
		merged, changed := mergeGroups(dedup(current), threshold)
		if !changed {
			return merged, nil
		}
		current = merged
	}
}

// dedup keeps, in order of increasing length, the codes not covered by an
// already kept code.
func dedup(codes []string) []string {
	sorted := make([]string, len(codes))
	copy(sorted, codes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) < len(sorted[j])
	})

	seen := make(map[string]struct{}, len(sorted))
	kept := make([]string, 0, len(sorted))
	for _, code := range sorted {
		if covered(code, seen) {
			continue
		}
		seen[code] = struct{}{}
		kept = append(kept, code)
	}
	return kept
}

func covered(code string, kept map[string]struct{}) bool {
	for i := 0; i <= len(code); i++ {
		if _, ok := kept[code[:i]]; ok {
			return true
		}
	}
	return false
}

// mergeGroups buckets codes by parent, keeping first-appearance order, and
// collapses every bucket that reaches threshold.
func mergeGroups(codes []string, threshold float64) ([]string, bool) {
	var order []string
	groups := make(map[string][]string)
	for _, code := range codes {
		p := parent(code)
		if _, ok := groups[p]; !ok {
			order = append(order, p)
		}
		groups[p] = append(groups[p], code)
	}

	out := make([]string, 0, len(codes))
	changed := false
	for _, p := range order {
		members := groups[p]
		if len(members) == 1 && members[0] == p {
			// the whole-world code has nothing above it
			out = append(out, p)
			continue
		}
		if float64(len(members)) >= threshold {
			out = append(out, p)
			changed = true
		} else {
			out = append(out, members...)
		}
	}
	return out, changed
}
