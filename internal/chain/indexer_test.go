package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvzzle/taptracker/internal/logger"
)

type scriptedIndexer struct {
	pages   []string // messages data per call; the last one repeats
	balance string
	err     error

	calls  int
	afters []any
}

func (s *scriptedIndexer) Execute(ctx context.Context, query string, variables map[string]any, out any) error {
	if s.err != nil {
		return s.err
	}
	if strings.Contains(query, "balance_other") {
		return json.Unmarshal([]byte(s.balance), out)
	}

	s.afters = append(s.afters, variables["after"])
	idx := min(s.calls, len(s.pages)-1)
	s.calls++
	return json.Unmarshal([]byte(s.pages[idx]), out)
}

func node(id, src, hexValue string, createdAt int64) string {
	valueOther := "[]"
	if hexValue != "" {
		valueOther = fmt.Sprintf(`[{"currency":2,"value":"0x1"},{"currency":1,"value":%q}]`, hexValue)
	}
	return fmt.Sprintf(`{"node":{"id":%q,"created_at":%d,"src":%q,"value_other":%s,"body":"te6cc"}}`,
		id, createdAt, src, valueOther)
}

func page(endCursor string, hasNext bool, nodes ...string) string {
	return fmt.Sprintf(`{"blockchain":{"account":{"messages":{"edges":[%s],"pageInfo":{"endCursor":%q,"hasNextPage":%t}}}}}`,
		strings.Join(nodes, ","), endCursor, hasNext)
}

func rewardPage(endCursor string, hasNext bool, n int) string {
	nodes := make([]string, n)
	for i := range nodes {
		nodes[i] = node(fmt.Sprintf("%s-%d", endCursor, i), "0:src", "0x3b9aca00", int64(i))
	}
	return page(endCursor, hasNext, nodes...)
}

func TestDecodeNano(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "0x3B9ACA00", want: "1"},
		{in: "0x77359400", want: "2"},
		{in: "3b9aca00", want: "1"},
		{in: "0x0000000000000001", want: "0.000000001"},
		{in: "0x0", want: "0"},
		{in: "0x5f5e100", want: "0.1"},
	}
	for _, tt := range tests {
		got, err := DecodeNano(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "%s: got %s want %s", tt.in, got, tt.want)
	}

	for _, bad := range []string{"", "0xzz", "0x1" + strings.Repeat("0", 64)} {
		_, err := DecodeNano(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}
}

func TestDecodeNanoIsExactDivision(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(7))
	billion := decimal.New(1, 9)
	for i := 0; i < 200; i++ {
		n := new(big.Int).Rand(r, new(big.Int).Lsh(big.NewInt(1), 200))
		got, err := DecodeNano(fmt.Sprintf("0x%x", n))
		require.NoError(t, err)
		assert.True(t, got.Mul(billion).Equal(decimal.NewFromBigInt(n, 0)), "n=%s", n)
	}
}

func TestFetchAllKeepsOnlyRewardMessages(t *testing.T) {
	t.Parallel()

	fake := &scriptedIndexer{pages: []string{
		page("c1", false,
			node("m1", "0:a", "0x3B9ACA00", 100),
			node("m2", "0:b", "0x77359400", 200),
			node("m3", "0:c", "", 300),
		),
	}}
	ix := NewIndexer(fake, DefaultPolicy(), logger.Discard())

	msgs, err := ix.FetchAll(context.Background(), "0:acc")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "0:a", msgs[0].Src)
	assert.Equal(t, int64(100), msgs[0].CreatedAt)
	assert.Equal(t, "te6cc", msgs[0].Body)
	assert.True(t, msgs[0].Reward.Equal(decimal.NewFromInt(1)))
	assert.True(t, msgs[1].Reward.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 1, fake.calls)
}

func TestFetchAllStopsAtMaxIterations(t *testing.T) {
	t.Parallel()

	fake := &scriptedIndexer{pages: []string{page("again", true, node("x", "0:a", "", 1))}}
	ix := NewIndexer(fake, Policy{PageSize: 50, MaxMessages: 2000, MaxIterations: 5}, logger.Discard())

	msgs, err := ix.FetchAll(context.Background(), "0:acc")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, 5, fake.calls, "upstream always claims a next page")
}

func TestFetchAllStopsAtMaxMessages(t *testing.T) {
	t.Parallel()

	fake := &scriptedIndexer{pages: []string{
		rewardPage("p1", true, 50),
		rewardPage("p2", true, 50),
		rewardPage("p3", true, 50),
		rewardPage("p4", true, 50),
	}}
	ix := NewIndexer(fake, Policy{PageSize: 50, MaxMessages: 120, MaxIterations: 20}, logger.Discard())

	msgs, err := ix.FetchAll(context.Background(), "0:acc")
	require.NoError(t, err)
	assert.Len(t, msgs, 120)
	assert.Equal(t, 3, fake.calls)
}

func TestFetchAllAdvancesCursorOverEmptyPages(t *testing.T) {
	t.Parallel()

	fake := &scriptedIndexer{pages: []string{
		page("c1", true, node("n1", "0:a", "", 1)),
		page("c2", true),
		page("c3", false, node("r1", "0:a", "0x3b9aca00", 3)),
	}}
	ix := NewIndexer(fake, DefaultPolicy(), logger.Discard())

	msgs, err := ix.FetchAll(context.Background(), "0:acc")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []any{nil, "c1", "c2"}, fake.afters)
}

func TestFetchAllTreatsMissingPageInfoAsTerminal(t *testing.T) {
	t.Parallel()

	for name, data := range map[string]string{
		"no account":   `{"blockchain":{"account":null}}`,
		"no page info": `{"blockchain":{"account":{"messages":{"edges":[],"pageInfo":null}}}}`,
		"no cursor":    `{"blockchain":{"account":{"messages":{"edges":[],"pageInfo":{"endCursor":null,"hasNextPage":true}}}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			fake := &scriptedIndexer{pages: []string{data}}
			ix := NewIndexer(fake, DefaultPolicy(), logger.Discard())

			msgs, err := ix.FetchAll(context.Background(), "0:acc")
			require.NoError(t, err)
			assert.Empty(t, msgs)
			assert.Equal(t, 1, fake.calls)
		})
	}
}

func TestFetchAllFailsOnUpstreamError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	ix := NewIndexer(&scriptedIndexer{err: boom}, DefaultPolicy(), logger.Discard())

	msgs, err := ix.FetchAll(context.Background(), "0:acc")
	require.ErrorIs(t, err, boom)
	assert.Nil(t, msgs)
}

func TestBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want decimal.Decimal
	}{
		{
			name: "reward currency present",
			data: `{"blockchain":{"account":{"info":{"balance_other":[{"currency":"2","value":"0xff"},{"currency":"1","value":"0x12a05f200"}]}}}}`,
			want: decimal.NewFromInt(5),
		},
		{
			name: "no reward currency",
			data: `{"blockchain":{"account":{"info":{"balance_other":[{"currency":2,"value":"0xff"}]}}}}`,
			want: decimal.Zero,
		},
		{
			name: "no balance_other",
			data: `{"blockchain":{"account":{"info":{"balance_other":null}}}}`,
			want: decimal.Zero,
		},
		{
			name: "no account",
			data: `{"blockchain":{"account":null}}`,
			want: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := NewIndexer(&scriptedIndexer{balance: tt.data}, DefaultPolicy(), logger.Discard())
			got, err := ix.Balance(context.Background(), "0:acc")
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}

func TestSenders(t *testing.T) {
	t.Parallel()

	got := Senders([]Message{{Src: "b"}, {Src: "a"}, {Src: "b"}, {Src: ""}, {Src: "c"}})
	assert.Equal(t, []string{"b", "a", "c"}, got)
}

func TestPolicyNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultPolicy(), Policy{}.normalize())
	assert.Equal(t, Policy{PageSize: 10, MaxMessages: 2000, MaxIterations: 3}, Policy{PageSize: 10, MaxIterations: 3}.normalize())
}
