package metrics

import (
	"github.com/crashlab-data/pulse.report/internal/channel"
	"github.com/crashlab-data/pulse.report/internal/classify"
)

// Resolve picks the authoritative channel for a role. Primary-rank channels
// win; Redundant is the fallback when no valid Primary exists; unranked
// channels are used only when nothing ranked is available. Two valid
// channels of the winning rank cannot be told apart and surface as
// *AmbiguousChannelError rather than a silent pick.
func Resolve(snap *Snapshot, role, metricName string) (*Channel, error) {
	var primary, redundant, unranked []*Channel
	for i := range snap.Channels {
		ch := &snap.Channels[i]
		if !ch.Valid || !classify.HasRole(ch.Roles, role) {
			continue
		}
		switch ch.Rank {
		case channel.RankPrimary:
			primary = append(primary, ch)
		case channel.RankRedundant:
			redundant = append(redundant, ch)
		default:
			unranked = append(unranked, ch)
		}
	}

	for _, tier := range [][]*Channel{primary, redundant, unranked} {
		switch len(tier) {
		case 0:
			continue
		case 1:
			return tier[0], nil
		default:
			codes := make([]string, len(tier))
			for i, ch := range tier {
				codes[i] = ch.Code
			}
			return nil, &AmbiguousChannelError{
				TestID: snap.TestID,
				Metric: metricName,
				Role:   role,
				Codes:  codes,
			}
		}
	}

	return nil, &MissingChannelError{TestID: snap.TestID, Metric: metricName, Role: role}
}
