package tg

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ChatMemberGetter is the part of the Bot API client the oracle needs.
type ChatMemberGetter interface {
	GetChatMember(ctx context.Context, params *tgbot.GetChatMemberParams) (*models.ChatMember, error)
}

// MembershipOracle reports whether a user belongs to the GOLD channel.
type MembershipOracle struct {
	api     ChatMemberGetter
	channel any
}

// NewMembershipOracle accepts a numeric chat id ("-100...") or a public
// channel username ("@gold").
func NewMembershipOracle(api ChatMemberGetter, channelID string) *MembershipOracle {
	return &MembershipOracle{api: api, channel: chatID(channelID)}
}

func chatID(s string) any {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id
	}
	return s
}

// IsMember is true for members, administrators and the creator. Left, kicked
// and restricted users are not members. Lookup failures are returned as errors.
func (o *MembershipOracle) IsMember(ctx context.Context, userID int64) (bool, error) {
	m, err := o.api.GetChatMember(ctx, &tgbot.GetChatMemberParams{
		ChatID: o.channel,
		UserID: userID,
	})
	if err != nil {
		return false, fmt.Errorf("get chat member %d: %w", userID, err)
	}
	if m == nil {
		return false, nil
	}

	switch m.Type {
	case models.ChatMemberTypeMember, models.ChatMemberTypeAdministrator, models.ChatMemberTypeOwner:
		return true, nil
	default:
		return false, nil
	}
}
