package fantasy

import "github.com/cameron-eth/firstballotETL/internal/provider"

type groupKey struct {
	category provider.Category
	provider.GroupKey
}

type accumulator struct {
	sum   float64
	count int
}

// ApplySeasonAverages sets FantasyPPG on every record to the mean
// FantasyPoints of its (category, player, season, season_type) group and
// returns the number of groups.
//
// The mean is computed once per group and then broadcast, so the caller must
// pass every known record of each affected player season. A partial set
// yields a partial average.
func ApplySeasonAverages(recs []provider.Record) int {
	groups := make(map[groupKey]*accumulator)
	for _, r := range recs {
		k := groupKey{r.Category, r.Group()}
		acc, ok := groups[k]
		if !ok {
			acc = &accumulator{}
			groups[k] = acc
		}
		acc.sum += r.FantasyPoints
		acc.count++
	}

	means := make(map[groupKey]float64, len(groups))
	for k, acc := range groups {
		means[k] = Round2(acc.sum / float64(acc.count))
	}

	for i := range recs {
		recs[i].FantasyPPG = means[groupKey{recs[i].Category, recs[i].Group()}]
	}
	return len(groups)
}
