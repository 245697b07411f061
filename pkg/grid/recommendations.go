package grid

import (
	"fmt"

	"github.com/raterudder/gridbalancer/pkg/types"
)

const (
	lowStorageSOC      = 20.0
	highStorageSOC     = 90.0
	exportStorageSOC   = 80.0
	lowRenewableShare  = 30.0
	highRenewableShare = 50.0
)

// Recommendations derives operator advice for a cycle. The balance-state
// messages always come first, followed by storage advisories, the renewable
// share advisory and finally the curtailment notice.
func Recommendations(balance types.GridBalance, socPercent, renewablePercent, curtailedMW, unservedMW float64) []string {
	var recs []string

	switch balance {
	case types.GridBalanceDeficit:
		if unservedMW > 0 {
			recs = append(recs, fmt.Sprintf("URGENT: %.2f MW of demand is unserved, activate demand response and emergency reserves", unservedMW))
		} else {
			recs = append(recs, "URGENT: supply is below demand, activate demand response and emergency reserves")
		}
		if socPercent < lowStorageSOC {
			recs = append(recs, "URGENT: storage is nearly depleted and cannot cover further shortfalls")
		}
	case types.GridBalanceTight:
		recs = append(recs, "Supply margin is tight, prepare spinning reserves")
	case types.GridBalanceSurplus:
		recs = append(recs, "Generation exceeds demand, consider reducing conventional output")
		if socPercent > exportStorageSOC {
			recs = append(recs, "Storage is nearly full, export surplus energy to neighboring grids")
		}
	case types.GridBalanceBalanced:
		if renewablePercent > highRenewableShare {
			recs = append(recs, "Grid is balanced with a high renewable share, maintain the current dispatch")
		} else {
			recs = append(recs, "Supply meets demand")
		}
	}

	switch {
	case socPercent < lowStorageSOC:
		recs = append(recs, fmt.Sprintf("Storage is low (%.1f%%), prioritize charging when surplus is available", socPercent))
	case socPercent > highStorageSOC:
		recs = append(recs, fmt.Sprintf("Storage is high (%.1f%%), discharge during the next peak", socPercent))
	}

	if renewablePercent < lowRenewableShare {
		recs = append(recs, fmt.Sprintf("Renewable share is low (%.1f%%), schedule flexible loads for high solar or wind periods", renewablePercent))
	}

	if curtailedMW > 0 {
		recs = append(recs, fmt.Sprintf("%.2f MW of renewable output was curtailed, consider additional storage or export capacity", curtailedMW))
	}

	return recs
}
