package reward

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pvzzle/taptracker/internal/chain"
	"github.com/pvzzle/taptracker/internal/codehash"
)

// Tap is a reward message enriched with its sender's contract code hash.
type Tap struct {
	chain.Message
	SrcCodeHash codehash.Hash
	IsPopit     bool
}

// Report is the aggregated reward history of one account.
type Report struct {
	Address     string
	Balance     decimal.Decimal
	TapsCount   int
	TotalReward decimal.Decimal
	Taps        []Tap
}

// Aggregate merges messages with their senders' code hashes, orders the taps
// newest first and sums the rewards. Messages sharing a timestamp keep their
// input order. A sender missing from hashes is treated as having no hash.
func Aggregate(address string, balance decimal.Decimal, msgs []chain.Message, hashes map[string]codehash.Hash, knownHash string) Report {
	taps := make([]Tap, 0, len(msgs))
	total := decimal.Zero

	for _, m := range msgs {
		h, ok := hashes[m.Src]
		if !ok {
			h = codehash.None()
		}
		taps = append(taps, Tap{
			Message:     m,
			SrcCodeHash: h,
			IsPopit:     h.Matches(knownHash),
		})
		total = total.Add(m.Reward)
	}

	sort.SliceStable(taps, func(i, j int) bool {
		return taps[i].CreatedAt > taps[j].CreatedAt
	})

	return Report{
		Address:     address,
		Balance:     balance,
		TapsCount:   len(taps),
		TotalReward: total,
		Taps:        taps,
	}
}

// PopitTaps counts taps sent by the known contract.
func (r Report) PopitTaps() int {
	n := 0
	for _, t := range r.Taps {
		if t.IsPopit {
			n++
		}
	}
	return n
}
