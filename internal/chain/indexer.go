package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/pvzzle/taptracker/internal/logger"
	"github.com/pvzzle/taptracker/internal/metrics"
)

// Message is one inbound reward-bearing message (a tap) before enrichment.
type Message struct {
	ID        string
	Src       string
	Reward    decimal.Decimal
	CreatedAt int64
	Body      string
}

// Cursor is an opaque upstream page token. The zero value means "start".
type Cursor string

// Policy bounds a pagination run. Unbounded accounts must not hang a request.
type Policy struct {
	PageSize      int
	MaxMessages   int
	MaxIterations int
}

func DefaultPolicy() Policy {
	return Policy{PageSize: 50, MaxMessages: 2000, MaxIterations: 20}
}

func (p Policy) normalize() Policy {
	def := DefaultPolicy()
	if p.PageSize <= 0 {
		p.PageSize = def.PageSize
	}
	if p.MaxMessages <= 0 {
		p.MaxMessages = def.MaxMessages
	}
	if p.MaxIterations <= 0 {
		p.MaxIterations = def.MaxIterations
	}
	return p
}

// Querier is the subset of the GraphQL client the indexer needs.
type Querier interface {
	Execute(ctx context.Context, query string, variables map[string]any, out any) error
}

// Indexer reads account balances and inbound messages from the GraphQL indexer.
type Indexer struct {
	gql    Querier
	policy Policy
	log    *slog.Logger
}

func NewIndexer(gql Querier, policy Policy, log *slog.Logger) *Indexer {
	return &Indexer{
		gql:    gql,
		policy: policy.normalize(),
		log:    logger.Component(log, "chain"),
	}
}

func (ix *Indexer) Policy() Policy { return ix.policy }

// Balance returns the account's RewardCurrency balance. A missing account or
// currency entry is a zero balance, not an error.
func (ix *Indexer) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	var data balanceData
	if err := ix.gql.Execute(ctx, balanceQuery, map[string]any{"address": address}, &data); err != nil {
		return decimal.Zero, fmt.Errorf("fetch balance: %w", err)
	}

	raw, ok := rewardValue(data.values())
	if !ok {
		return decimal.Zero, nil
	}
	bal, err := DecodeNano(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode balance: %w", err)
	}
	return bal, nil
}

// FetchAll pages through the account's inbound messages and keeps the ones
// carrying a RewardCurrency value. It stops when the upstream reports no
// next page, MaxMessages is reached or MaxIterations pages were requested,
// whichever comes first. Any page failure fails the whole run.
func (ix *Indexer) FetchAll(ctx context.Context, address string) ([]Message, error) {
	var (
		cursor     Cursor
		out        []Message
		iterations int
	)

	for {
		page, err := ix.fetchPage(ctx, address, cursor)
		iterations++
		if err != nil {
			return nil, fmt.Errorf("fetch messages page %d: %w", iterations, err)
		}

		hasMore := false
		if page != nil {
			for _, edge := range page.Edges {
				msg, ok, err := toMessage(edge.Node)
				if err != nil {
					return nil, fmt.Errorf("messages page %d: %w", iterations, err)
				}
				if ok {
					out = append(out, msg)
				}
			}
			if pi := page.PageInfo; pi != nil && pi.EndCursor != nil && *pi.EndCursor != "" {
				cursor = Cursor(*pi.EndCursor)
				hasMore = pi.HasNextPage
			}
		}

		if !hasMore || len(out) >= ix.policy.MaxMessages || iterations >= ix.policy.MaxIterations {
			break
		}
	}

	if len(out) > ix.policy.MaxMessages {
		out = out[:ix.policy.MaxMessages]
	}

	metrics.PaginationIterations.Observe(float64(iterations))
	ix.log.Debug("messages paginated", "address", address, "iterations", iterations, "messages", len(out))
	return out, nil
}

func (ix *Indexer) fetchPage(ctx context.Context, address string, cursor Cursor) (*messagesPage, error) {
	vars := map[string]any{
		"address": address,
		"first":   ix.policy.PageSize,
		"after":   nil,
	}
	if cursor != "" {
		vars["after"] = string(cursor)
	}

	var data messagesData
	if err := ix.gql.Execute(ctx, messagesQuery, vars, &data); err != nil {
		return nil, err
	}
	return data.page(), nil
}

func toMessage(node *messageNode) (Message, bool, error) {
	if node == nil {
		return Message{}, false, nil
	}
	raw, ok := rewardValue(node.ValueOther)
	if !ok {
		return Message{}, false, nil
	}

	reward, err := DecodeNano(raw)
	if err != nil {
		return Message{}, false, fmt.Errorf("message %s: %w", node.ID, err)
	}
	createdAt, err := unixTime(node.CreatedAt)
	if err != nil {
		return Message{}, false, fmt.Errorf("message %s created_at: %w", node.ID, err)
	}

	var body string
	if node.Body != nil {
		body = *node.Body
	}

	return Message{
		ID:        node.ID,
		Src:       node.Src,
		Reward:    reward,
		CreatedAt: createdAt,
		Body:      body,
	}, true, nil
}

func unixTime(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// Senders returns the distinct non-empty sender addresses in first-seen order.
func Senders(msgs []Message) []string {
	return lo.Uniq(lo.Compact(lo.Map(msgs, func(m Message, _ int) string {
		return m.Src
	})))
}
