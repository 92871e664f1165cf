package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pvzzle/taptracker/internal/chain"
	"github.com/pvzzle/taptracker/internal/codehash"
	"github.com/pvzzle/taptracker/internal/logger"
	"github.com/pvzzle/taptracker/internal/reward"
)

type BalanceFetcher interface {
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
}

type MessageFetcher interface {
	FetchAll(ctx context.Context, address string) ([]chain.Message, error)
}

type CodeHashResolver interface {
	Resolve(ctx context.Context, addresses []string) (map[string]codehash.Hash, error)
}

// Snapshot is the account state read alongside the message history.
type Snapshot struct {
	Address string
	Balance decimal.Decimal
}

// Service builds reward reports for authorised requests.
type Service struct {
	balances  BalanceFetcher
	messages  MessageFetcher
	hashes    CodeHashResolver
	knownHash string
	log       *slog.Logger
}

func NewService(balances BalanceFetcher, messages MessageFetcher, hashes CodeHashResolver, knownHash string, log *slog.Logger) *Service {
	return &Service{
		balances:  balances,
		messages:  messages,
		hashes:    hashes,
		knownHash: knownHash,
		log:       logger.Component(log, "tracker"),
	}
}

// Report fetches the balance and the message history concurrently, resolves
// the distinct senders' code hashes and aggregates the result. Any step
// failing fails the report.
func (s *Service) Report(ctx context.Context, address string) (reward.Report, error) {
	start := time.Now()

	var (
		snap Snapshot
		msgs []chain.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bal, err := s.balances.Balance(gctx, address)
		if err != nil {
			return err
		}
		snap = Snapshot{Address: address, Balance: bal}
		return nil
	})
	g.Go(func() error {
		var err error
		msgs, err = s.messages.FetchAll(gctx, address)
		return err
	})
	if err := g.Wait(); err != nil {
		return reward.Report{}, fmt.Errorf("account %s: %w", address, err)
	}

	senders := chain.Senders(msgs)
	hashes, err := s.hashes.Resolve(ctx, senders)
	if err != nil {
		return reward.Report{}, fmt.Errorf("resolve code hashes: %w", err)
	}

	rep := reward.Aggregate(snap.Address, snap.Balance, msgs, hashes, s.knownHash)
	s.log.Info("report built",
		"address", address,
		"taps", rep.TapsCount,
		"popit_taps", rep.PopitTaps(),
		"senders", len(senders),
		"took", time.Since(start),
	)
	return rep, nil
}
