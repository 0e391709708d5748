// Package fantasy scores performance records and derives per-player season
// averages. Everything here is pure: no I/O, no clocks, no shared state.
package fantasy

import "github.com/cameron-eth/firstballotETL/internal/provider"

// Scoring weights. Receiving is full PPR.
const (
	PassYardPoints     = 0.1
	PassTDPoints       = 6.0
	InterceptionPoints = -2.0

	RushYardPoints = 0.1
	RushTDPoints   = 6.0

	ReceptionPoints = 1.0
	RecYardPoints   = 0.1
	RecTDPoints     = 6.0
)

// Score returns the fantasy points for one record, rounded to two decimals.
// Absent counters count as zero; an unknown category scores zero.
func Score(r provider.Record) float64 {
	var pts float64
	switch r.Category {
	case provider.Passing:
		pts = PassYardPoints*r.Stat("pass_yards") +
			PassTDPoints*r.Stat("pass_touchdowns") +
			InterceptionPoints*r.Stat("interceptions")
	case provider.Rushing:
		pts = RushYardPoints*r.Stat("rush_yards") +
			RushTDPoints*r.Stat("rush_touchdowns")
	case provider.Receiving:
		pts = ReceptionPoints*r.Stat("receptions") +
			RecYardPoints*r.Stat("yards") +
			RecTDPoints*r.Stat("rec_touchdowns")
	}
	return Round2(pts)
}

// Efficiency returns the per-unit fantasy columns for a scored record.
// A zero or absent denominator is treated as one.
func Efficiency(r provider.Record) map[string]float64 {
	per := func(denom string) float64 {
		d := r.Stat(denom)
		if d == 0 {
			d = 1
		}
		return Round2(r.FantasyPoints / d)
	}

	switch r.Category {
	case provider.Passing:
		return map[string]float64{"fantasy_points_per_attempt": per("attempts")}
	case provider.Rushing:
		return map[string]float64{"fantasy_points_per_rush": per("rush_attempts")}
	case provider.Receiving:
		return map[string]float64{
			"fantasy_points_per_reception": per("receptions"),
			"fantasy_points_per_target":    per("targets"),
		}
	}
	return map[string]float64{}
}

// ScoreAll sets FantasyPoints and Efficiency on every record in place. Each
// record is scored independently of the others.
func ScoreAll(recs []provider.Record) {
	for i := range recs {
		recs[i].FantasyPoints = Score(recs[i])
		recs[i].Efficiency = Efficiency(recs[i])
	}
}
