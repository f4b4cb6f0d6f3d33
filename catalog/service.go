package catalog

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/cellarcache"
	"github.com/unkn0wn-root/cellarcache/optimistic"
	"github.com/unkn0wn-root/cellarcache/revalidate"
)

// meKey is the identifier of per-user singletons (profile, favorites).
const meKey = "me"

type Options struct {
	// Coordinator tunes the pending-comment coordinator.
	Coordinator optimistic.Options
	// RevalidateTimeout bounds background refreshes. 0 => revalidate.DefaultTimeout.
	RevalidateTimeout time.Duration
	// OnUnauthorized is called when a mutation fails with ErrUnauthorized,
	// after rollback.
	OnUnauthorized func()
	Now            func() time.Time // nil => time.Now
}

// Service is the catalog client: cached, revalidating reads and optimistic
// mutations over API. Safe for concurrent use.
type Service struct {
	api   API
	cache *cellarcache.Cache
	log   cellarcache.Logger
	opts  Options
	now   func() time.Time

	cardsT     *cellarcache.Typed[[]Card]
	cardT      *cellarcache.Typed[Card]
	favoritesT *cellarcache.Typed[[]Card]
	commentsT  *cellarcache.Typed[[]Comment]
	userT      *cellarcache.Typed[User]

	cards     *revalidate.Controller[[]Card]
	card      *revalidate.Controller[Card]
	favorites *revalidate.Controller[[]Card]
	comments  *revalidate.Controller[[]Comment]
	profile   *revalidate.Controller[User]

	list    *optimistic.List[Card]
	pending *optimistic.Coordinator

	mu       sync.Mutex // orders page adoption
	listKey  string     // cache key of the page currently in list
	pageSeq  uint64
	commentM sync.Mutex
}

func New(api API, cache *cellarcache.Cache, opts Options) (*Service, error) {
	if api == nil {
		return nil, errors.New("catalog: nil API")
	}
	if cache == nil {
		return nil, errors.New("catalog: nil cache")
	}
	s := &Service{
		api:   api,
		cache: cache,
		log:   cache.Logger(),
		opts:  opts,
		now:   opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Coordinator.Logger == nil {
		opts.Coordinator.Logger = s.log
	}

	s.cardsT = cellarcache.NewTyped[[]Card](cache, cellarcache.CategoryCards, 0)
	s.cardT = cellarcache.NewTyped[Card](cache, cellarcache.CategoryCard, 0)
	s.favoritesT = cellarcache.NewTyped[[]Card](cache, cellarcache.CategoryFavorites, 0)
	s.commentsT = cellarcache.NewTyped[[]Comment](cache, cellarcache.CategoryComments, 0)
	s.userT = cellarcache.NewTyped[User](cache, cellarcache.CategoryUser, 0)

	s.cards = revalidate.New(cache, revalidate.Options[[]Card]{
		TTL:           s.cardsT.TTL(),
		Timeout:       opts.RevalidateTimeout,
		OnRevalidated: s.pageRevalidated,
	})
	s.card = revalidate.New(cache, revalidate.Options[Card]{TTL: s.cardT.TTL(), Timeout: opts.RevalidateTimeout})
	s.favorites = revalidate.New(cache, revalidate.Options[[]Card]{TTL: s.favoritesT.TTL(), Timeout: opts.RevalidateTimeout})
	s.comments = revalidate.New(cache, revalidate.Options[[]Comment]{TTL: s.commentsT.TTL(), Timeout: opts.RevalidateTimeout})
	s.profile = revalidate.New(cache, revalidate.Options[User]{TTL: s.userT.TTL(), Timeout: opts.RevalidateTimeout})

	s.list = optimistic.NewList(func(c Card) string { return c.ID.Canonical() }, nil)
	s.pending = optimistic.NewCoordinator(opts.Coordinator)
	return s, nil
}

// List is the card page last loaded by Cards, with speculative changes
// applied. Subscribe with List().OnChange; the callback must not call back
// into the Service.
func (s *Service) List() *optimistic.List[Card] { return s.list }

// Pending exposes the coordinator tracking unconfirmed comments.
func (s *Service) Pending() *optimistic.Coordinator { return s.pending }

// Cards returns one page. The page becomes the current List unless
// speculative changes are still unsettled.
func (s *Service) Cards(ctx context.Context, q ListQuery) (cellarcache.Result[[]Card], error) {
	key := s.cardsT.Key(q)
	s.mu.Lock()
	s.listKey = key
	seq := s.pageSeq
	s.mu.Unlock()

	res, err := s.cards.Get(ctx, key, func(ctx context.Context) ([]Card, error) {
		return s.api.ListCards(ctx, q)
	})
	if err != nil {
		return res, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// a background refresh of this page may already have landed
	if s.pageSeq == seq && s.listKey == key {
		s.adoptPageLocked(res.Data)
	}
	return res, nil
}

func (s *Service) Card(ctx context.Context, id ID) (cellarcache.Result[Card], error) {
	return s.card.Get(ctx, s.cardT.Key(id), func(ctx context.Context) (Card, error) {
		return s.api.GetCard(ctx, id)
	})
}

func (s *Service) Favorites(ctx context.Context) (cellarcache.Result[[]Card], error) {
	return s.favorites.Get(ctx, s.favoritesT.Key(meKey), s.api.Favorites)
}

func (s *Service) Comments(ctx context.Context, cardID ID) (cellarcache.Result[[]Comment], error) {
	return s.comments.Get(ctx, s.commentsT.Key(cardID), func(ctx context.Context) ([]Comment, error) {
		return s.api.Comments(ctx, cardID)
	})
}

func (s *Service) Profile(ctx context.Context) (cellarcache.Result[User], error) {
	return s.profile.Get(ctx, s.userT.Key(meKey), s.api.Profile)
}

// Rate sets the card's rating locally, then on the server. On success the
// card lists and the card's detail are dropped from the cache.
func (s *Service) Rate(ctx context.Context, id ID, rating float64) error {
	cid := id.Canonical()
	s.list.UpdateOptimistic(cid, func(c Card) Card {
		c.Rating = rating
		return c
	})
	var confirmed Card
	err := s.list.Mutate(ctx, cid, func(ctx context.Context) error {
		var err error
		confirmed, err = s.api.Rate(ctx, id, rating)
		return err
	}, func() {
		s.cardsT.Clear(ctx)
		s.cardT.Remove(ctx, id)
	})
	if err != nil {
		return s.mutationResult("rate", cid, err)
	}
	// the server may have recomputed the aggregate rating
	if confirmed.ID.Equal(id) {
		s.list.Replace(confirmed)
	}
	return nil
}

// ToggleFavorite flips the card's favorite flag locally, then on the server.
// On success the favorites and card lists and the card's detail are dropped.
// It returns the server's favorite state.
func (s *Service) ToggleFavorite(ctx context.Context, id ID) (bool, error) {
	cid := id.Canonical()
	s.list.UpdateOptimistic(cid, func(c Card) Card {
		c.Favorite = !c.Favorite
		return c
	})
	var fav bool
	err := s.list.Mutate(ctx, cid, func(ctx context.Context) error {
		var err error
		fav, err = s.api.ToggleFavorite(ctx, id)
		return err
	}, func() {
		s.favoritesT.Clear(ctx)
		s.cardsT.Clear(ctx)
		s.cardT.Remove(ctx, id)
	})
	if err != nil {
		return false, s.mutationResult("toggle_favorite", cid, err)
	}
	// the server is authoritative when it disagrees with the local flip
	if c, ok := s.list.Get(cid); ok && c.Favorite != fav {
		c.Favorite = fav
		s.list.Replace(c)
	}
	return fav, nil
}

// Delete removes the card locally, then on the server. On success the card
// and favorites lists and the card's detail are dropped.
func (s *Service) Delete(ctx context.Context, id ID) error {
	cid := id.Canonical()
	s.list.RemoveOptimistic(cid)
	err := s.list.Mutate(ctx, cid, func(ctx context.Context) error {
		return s.api.DeleteCard(ctx, id)
	}, func() {
		s.cardsT.Clear(ctx)
		s.favoritesT.Clear(ctx)
		s.cardT.Remove(ctx, id)
	})
	return s.mutationResult("delete", cid, err)
}

// AddComment shows a pending comment in the card's cached comments at once
// and posts it. On failure the cached comments are restored.
func (s *Service) AddComment(ctx context.Context, cardID ID, body string) (Comment, error) {
	tmpID := "tmp-" + uuid.NewString()
	mid := optimistic.MutationID(cardID.Canonical(), tmpID)
	tmp := Comment{
		ID:        NewID(tmpID),
		CardID:    cardID,
		Body:      body,
		CreatedAt: s.now(),
		Pending:   true,
	}

	// cached lists keep their age so a stale list still revalidates
	s.commentM.Lock()
	prev := s.commentsT.Get(ctx, cardID)
	withTmp := append([]Comment{tmp}, prev.Data...)
	if !prev.FromCache || !s.commentsT.Update(ctx, cardID, withTmp) {
		s.commentsT.Set(ctx, cardID, withTmp)
	}
	s.commentM.Unlock()

	s.pending.Add(mid, func() {
		s.commentM.Lock()
		defer s.commentM.Unlock()
		cur := s.commentsT.Get(ctx, cardID)
		kept := slices.DeleteFunc(cur.Data, func(c Comment) bool { return c.ID.Equal(tmp.ID) })
		if !prev.FromCache && len(kept) == 0 {
			s.commentsT.Remove(ctx, cardID)
			return
		}
		s.commentsT.Update(ctx, cardID, kept)
	})

	c, err := s.api.AddComment(ctx, cardID, body)
	if err != nil {
		s.pending.Rollback(mid)
		return Comment{}, s.mutationResult("add_comment", mid, &optimistic.MutationError{ID: mid, Err: err})
	}
	s.pending.Remove(mid)
	s.commentsT.Remove(ctx, cardID)
	return c, nil
}

// Close waits for background refreshes and stops the coordinator. Pending
// speculative changes are left as they are.
func (s *Service) Close(_ context.Context) error {
	s.cards.Close()
	s.card.Close()
	s.favorites.Close()
	s.comments.Close()
	s.profile.Close()
	s.pending.Close()
	return nil
}

func (s *Service) adoptPageLocked(cards []Card) {
	if len(s.list.Pending()) > 0 {
		s.log.Debug("catalog: page refresh deferred while mutations are unsettled", nil)
		return
	}
	s.list.Reset(cards)
}

func (s *Service) pageRevalidated(key string, cards []Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == s.listKey {
		s.pageSeq++
		s.adoptPageLocked(cards)
	}
}

func (s *Service) mutationResult(op, id string, err error) error {
	if err == nil {
		return nil
	}
	s.log.Warn("catalog: mutation rolled back", cellarcache.Fields{"op": op, "id": id, "err": err})
	if errors.Is(err, ErrUnauthorized) && s.opts.OnUnauthorized != nil {
		s.opts.OnUnauthorized()
	}
	return err
}
