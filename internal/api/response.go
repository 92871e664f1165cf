package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/pvzzle/taptracker/internal/codehash"
	"github.com/pvzzle/taptracker/internal/reward"
)

type tapResponse struct {
	ID          string        `json:"id"`
	Src         string        `json:"src"`
	Reward      json.Number   `json:"reward"`
	Timestamp   int64         `json:"timestamp"`
	Body        string        `json:"body"`
	SrcCodeHash codehash.Hash `json:"src_code_hash"`
	IsPopit     bool          `json:"is_popit"`
}

type rewardResponse struct {
	Address     string        `json:"address"`
	Balance     json.Number   `json:"balance"`
	TapsCount   int           `json:"tapsCount"`
	TotalReward json.Number   `json:"totalReward"`
	Taps        []tapResponse `json:"taps"`
}

type healthResponse struct {
	Status           string `json:"status"`
	CachedCodeHashes int    `json:"cached_code_hashes"`
}

// number renders an exact decimal as a JSON number literal.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func newRewardResponse(r reward.Report) rewardResponse {
	taps := make([]tapResponse, 0, len(r.Taps))
	for _, t := range r.Taps {
		taps = append(taps, tapResponse{
			ID:          t.ID,
			Src:         t.Src,
			Reward:      number(t.Reward),
			Timestamp:   t.CreatedAt,
			Body:        t.Body,
			SrcCodeHash: t.SrcCodeHash,
			IsPopit:     t.IsPopit,
		})
	}
	return rewardResponse{
		Address:     r.Address,
		Balance:     number(r.Balance),
		TapsCount:   r.TapsCount,
		TotalReward: number(r.TotalReward),
		Taps:        taps,
	}
}
