package app

import (
	"context"
	"fmt"
	"time"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/pvzzle/taptracker/internal/api"
	"github.com/pvzzle/taptracker/internal/chain"
	"github.com/pvzzle/taptracker/internal/codehash"
	"github.com/pvzzle/taptracker/internal/graphql"
	"github.com/pvzzle/taptracker/internal/logger"
	"github.com/pvzzle/taptracker/internal/tg"
	"github.com/pvzzle/taptracker/internal/tracker"
)

const shutdownTimeout = 15 * time.Second

func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	logger.Init(logger.Options{Level: logger.ParseLevel(cfg.LogLevel)})
	log := logger.L()

	gql := graphql.NewClient(graphql.Config{
		Endpoint: cfg.GraphQLURL,
		Timeout:  cfg.GraphQLTimeout,
		RPS:      cfg.GraphQLRPS,
		Burst:    cfg.GraphQLBurst,
	}, log)

	indexer := chain.NewIndexer(gql, chain.Policy{
		PageSize:      cfg.PageSize,
		MaxMessages:   cfg.MaxMessages,
		MaxIterations: cfg.MaxIterations,
	}, log)

	hashes := codehash.NewMemoryStore()
	resolver := codehash.NewResolver(gql, hashes, codehash.ResolverConfig{BatchSize: cfg.CodeHashBatch}, log)

	b, err := tgbot.New(cfg.TelegramToken,
		tgbot.WithWorkers(4),
		tgbot.WithSkipGetMe(),
	)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}

	srv := api.New(api.Config{
		Addr:           cfg.HTTPAddr,
		InviteLink:     cfg.GoldInvite,
		AllowOrigins:   cfg.AllowOrigins,
		RequestTimeout: cfg.RequestTimeout,
	}, api.Deps{
		Auth:    tg.NewInitDataVerifier(cfg.TelegramToken, cfg.InitDataMaxAge),
		Members: tg.NewMembershipOracle(b, cfg.GoldChannelID),
		Reports: tracker.NewService(indexer, indexer, resolver, cfg.PopitCodeHash, log),
		Cache:   hashes,
	}, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.BotPolling {
		botSvc := tg.NewService(b, cfg.WebAppURL, cfg.GoldInvite, log)
		g.Go(func() error {
			botSvc.Run(gctx)
			return nil
		})
	}

	log.Info("started",
		"http_addr", cfg.HTTPAddr,
		"graphql", cfg.GraphQLURL,
		"bot_polling", cfg.BotPolling,
		"page_size", indexer.Policy().PageSize,
		"max_messages", indexer.Policy().MaxMessages,
	)
	return g.Wait()
}
