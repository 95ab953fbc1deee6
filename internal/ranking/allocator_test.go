package ranking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/trendlist/trendlist/internal/catalog"
	"github.com/trendlist/trendlist/internal/models"
	"github.com/trendlist/trendlist/internal/models/events"
	"github.com/trendlist/trendlist/internal/storage/memory"
)

func seedItems(t *testing.T, names ...string) (*memory.Store, []models.Item) {
	t.Helper()
	store := memory.New()

	items := make([]models.Item, 0, len(names))
	for _, name := range names {
		item, err := store.CreateItem(context.Background(), models.Item{Name: name, Keyword: "hots"})
		if err != nil {
			t.Fatalf("create item %s: %v", name, err)
		}
		items = append(items, item)
	}
	return store, items
}

func occupantAt(t *testing.T, store *memory.Store, rank int) models.Bid {
	t.Helper()
	bid, ok, err := store.FindBidByRank(context.Background(), rank)
	if err != nil {
		t.Fatalf("find bid at rank %d: %v", rank, err)
	}
	if !ok {
		t.Fatalf("no bid at rank %d", rank)
	}
	return bid
}

func TestAllocator_FirstBuy(t *testing.T) {
	store, items := seedItems(t, "one", "two", "three")
	allocator := NewAllocator(store, nil, zerolog.Nop())

	if err := allocator.Buy(context.Background(), items[0].ID, decimal.NewFromInt(8), 1); err != nil {
		t.Fatalf("buy: %v", err)
	}

	bid := occupantAt(t, store, 1)
	if bid.ItemID != items[0].ID {
		t.Fatalf("occupant = %s, want %s", bid.ItemID, items[0].ID)
	}
	if !bid.Amount.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("amount = %s, want 8", bid.Amount)
	}

	item, _, err := store.FindItem(context.Background(), items[0].ID)
	if err != nil {
		t.Fatalf("find item: %v", err)
	}
	if item.AssignedRank != 1 {
		t.Fatalf("assigned rank = %d, want 1", item.AssignedRank)
	}
}

func TestAllocator_Displacement(t *testing.T) {
	store, items := seedItems(t, "holder", "challenger", "bystander")
	allocator := NewAllocator(store, nil, zerolog.Nop())

	if err := allocator.Buy(context.Background(), items[0].ID, decimal.NewFromInt(8), 1); err != nil {
		t.Fatalf("seed occupant: %v", err)
	}
	if err := allocator.Buy(context.Background(), items[1].ID, decimal.NewFromInt(10), 1); err != nil {
		t.Fatalf("displacing buy: %v", err)
	}

	bid := occupantAt(t, store, 1)
	if bid.ItemID != items[1].ID {
		t.Fatalf("occupant = %s, want challenger %s", bid.ItemID, items[1].ID)
	}
	if !bid.Amount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("amount = %s, want 10", bid.Amount)
	}

	loser, _, err := store.FindItem(context.Background(), items[0].ID)
	if err != nil {
		t.Fatalf("find displaced item: %v", err)
	}
	if loser.AssignedRank != 0 {
		t.Fatalf("displaced item still assigned rank %d", loser.AssignedRank)
	}
	winner, _, err := store.FindItem(context.Background(), items[1].ID)
	if err != nil {
		t.Fatalf("find winner: %v", err)
	}
	if winner.AssignedRank != 1 {
		t.Fatalf("winner assigned rank = %d, want 1", winner.AssignedRank)
	}
}

func TestAllocator_EqualBidDoesNotDisplace(t *testing.T) {
	store, items := seedItems(t, "holder", "challenger")
	allocator := NewAllocator(store, nil, zerolog.Nop())

	if err := allocator.Buy(context.Background(), items[0].ID, decimal.NewFromInt(8), 1); err != nil {
		t.Fatalf("seed occupant: %v", err)
	}

	err := allocator.Buy(context.Background(), items[1].ID, decimal.NewFromInt(8), 1)
	if !errors.Is(err, catalog.ErrInsufficientAmount) {
		t.Fatalf("buy error = %v, want %v", err, catalog.ErrInsufficientAmount)
	}

	bid := occupantAt(t, store, 1)
	if bid.ItemID != items[0].ID || !bid.Amount.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("occupant changed by rejected bid: %+v", bid)
	}
}

func TestAllocator_RebidOnlyReprices(t *testing.T) {
	store, items := seedItems(t, "holder", "other")
	allocator := NewAllocator(store, nil, zerolog.Nop())

	if err := allocator.Buy(context.Background(), items[0].ID, decimal.NewFromInt(8), 1); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	if err := allocator.Buy(context.Background(), items[1].ID, decimal.NewFromInt(3), 2); err != nil {
		t.Fatalf("unrelated buy: %v", err)
	}
	first := occupantAt(t, store, 1)

	if err := allocator.Buy(context.Background(), items[0].ID, decimal.NewFromInt(10), 1); err != nil {
		t.Fatalf("re-bid: %v", err)
	}

	bid := occupantAt(t, store, 1)
	if bid.ID != first.ID {
		t.Fatalf("re-bid replaced the bid instead of repricing it")
	}
	if bid.ItemID != items[0].ID || !bid.Amount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected occupant after re-bid: %+v", bid)
	}

	other := occupantAt(t, store, 2)
	if other.ItemID != items[1].ID || !other.Amount.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unrelated rank touched by re-bid: %+v", other)
	}
}

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *capturePublisher) Publish(topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func TestAllocator_PublishesRankPurchased(t *testing.T) {
	store, items := seedItems(t, "holder", "challenger")
	pub := &capturePublisher{}
	allocator := NewAllocator(store, pub, zerolog.Nop())

	if err := allocator.Buy(context.Background(), items[0].ID, decimal.NewFromInt(8), 1); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	if err := allocator.Buy(context.Background(), items[1].ID, decimal.NewFromInt(10), 1); err != nil {
		t.Fatalf("displacing buy: %v", err)
	}

	if len(pub.topics) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.topics))
	}
	if pub.topics[1] != TopicRankPurchased {
		t.Fatalf("topic = %s, want %s", pub.topics[1], TopicRankPurchased)
	}
	ev, ok := pub.events[1].(events.RankPurchased)
	if !ok {
		t.Fatalf("unexpected event type %T", pub.events[1])
	}
	if ev.ItemID != items[1].ID || ev.Rank != 1 || ev.DisplacedItemID != items[0].ID {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestAllocator_Rejections(t *testing.T) {
	store, items := seedItems(t, "one", "two", "three")
	allocator := NewAllocator(store, nil, zerolog.Nop())

	cases := []struct {
		name   string
		itemID string
		amount decimal.Decimal
		rank   int
		want   error
	}{
		{"unknown item", "missing", decimal.NewFromInt(5), 1, catalog.ErrItemNotFound},
		{"rank above catalog size", items[0].ID, decimal.NewFromInt(5), 20, catalog.ErrRankOutOfRange},
		{"rank zero", items[0].ID, decimal.NewFromInt(5), 0, catalog.ErrRankOutOfRange},
		{"zero amount", items[0].ID, decimal.Zero, 1, catalog.ErrInvalidAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := allocator.Buy(context.Background(), tc.itemID, tc.amount, tc.rank)
			if !errors.Is(err, tc.want) {
				t.Fatalf("buy error = %v, want %v", err, tc.want)
			}
		})
	}

	for rank := 1; rank <= len(items); rank++ {
		if _, ok, _ := store.FindBidByRank(context.Background(), rank); ok {
			t.Fatalf("rejected buys left a bid at rank %d", rank)
		}
	}
}

func TestAllocator_RacingBuysSameRank(t *testing.T) {
	store, items := seedItems(t, "one", "two", "three")
	allocator := NewAllocator(store, nil, zerolog.Nop())

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, id := range []string{items[1].ID, items[2].ID} {
		wg.Add(1)
		go func(itemID string) {
			defer wg.Done()
			errs <- allocator.Buy(context.Background(), itemID, decimal.NewFromInt(5), 1)
		}(id)
	}
	wg.Wait()
	close(errs)

	var ok, rejected int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, catalog.ErrInsufficientAmount):
			rejected++
		default:
			t.Fatalf("unexpected buy error: %v", err)
		}
	}
	if ok != 1 || rejected != 1 {
		t.Fatalf("racing equal bids: %d won, %d rejected; want exactly one of each", ok, rejected)
	}

	bid := occupantAt(t, store, 1)
	if !bid.Amount.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("occupant amount = %s, want 5", bid.Amount)
	}
}
