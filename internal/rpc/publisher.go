package rpc

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/LeJamon/goMarketd/internal/core/events"
)

// MarketEventMessage is the wire shape of one committed market event on
// the marketplace stream. Fields that do not apply to the event kind
// are omitted, matching the event stream's own convention.
type MarketEventMessage struct {
	Type    string `json:"type"` // always "marketEvent"
	Event   string `json:"event"`
	Seq     uint64 `json:"seq"`
	Time    int64  `json:"time"` // unix seconds
	TokenID uint64 `json:"token_id,omitempty"`
	Seller  string `json:"seller,omitempty"`
	Buyer   string `json:"buyer,omitempty"`
	Price   uint64 `json:"price,omitempty"`
	NewFee  uint64 `json:"new_fee,omitempty"`
}

// NewMarketEventMessage renders a committed event for subscribers.
func NewMarketEventMessage(ev events.Event) *MarketEventMessage {
	return &MarketEventMessage{
		Type:    "marketEvent",
		Event:   string(ev.Type),
		Seq:     ev.Seq,
		Time:    ev.Time.Unix(),
		TokenID: uint64(ev.TokenID),
		Seller:  ev.Seller.String(),
		Buyer:   ev.Buyer.String(),
		Price:   uint64(ev.Price),
		NewFee:  uint64(ev.NewFee),
	}
}

// ServerStatusMessage is the wire shape of a server stream message.
type ServerStatusMessage struct {
	Type   string `json:"type"` // always "serverStatus"
	Status string `json:"status"`
	Time   int64  `json:"time"`
}

// affectedAccounts lists the accounts an event touches, for delivery to
// account subscribers.
func affectedAccounts(ev events.Event) []string {
	var accounts []string
	if !ev.Seller.IsZero() {
		accounts = append(accounts, ev.Seller.String())
	}
	if !ev.Buyer.IsZero() {
		accounts = append(accounts, ev.Buyer.String())
	}
	return accounts
}

// Publisher fans committed events out to WebSocket subscribers. The
// engine calls Publish once per event, in commit order, so subscribers
// observe the same order the ledger recorded.
type Publisher struct {
	manager *SubscriptionManager
	log     *zap.Logger
}

// NewPublisher creates a Publisher over the subscription manager.
func NewPublisher(manager *SubscriptionManager, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		manager: manager,
		log:     log,
	}
}

// Publish implements events.Publisher.
func (p *Publisher) Publish(ev events.Event) {
	if p.manager == nil {
		return
	}

	data, err := json.Marshal(NewMarketEventMessage(ev))
	if err != nil {
		p.log.Error("failed to marshal market event", zap.Error(err))
		return
	}

	p.manager.BroadcastEvent(data, affectedAccounts(ev))
}

// PublishServerStatus broadcasts a status change on the server stream.
func (p *Publisher) PublishServerStatus(status string) {
	if p.manager == nil {
		return
	}

	msg := ServerStatusMessage{
		Type:   "serverStatus",
		Status: status,
		Time:   time.Now().Unix(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Error("failed to marshal server status", zap.Error(err))
		return
	}

	p.manager.BroadcastToStream(SubServer, data)
}

// SubscriberCount returns the number of subscribers on a stream.
func (p *Publisher) SubscriberCount(st SubscriptionType) int {
	if p.manager == nil {
		return 0
	}
	return p.manager.SubscriberCount(st)
}

var _ events.Publisher = (*Publisher)(nil)
