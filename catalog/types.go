package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrUnauthorized is returned by an API whose session is no longer valid.
// Callers are expected to send the user back through sign-in.
var ErrUnauthorized = errors.New("catalog: unauthorized")

// Card is one wine entry.
type Card struct {
	ID          ID      `json:"id"`
	Name        string  `json:"name"`
	Winery      string  `json:"winery,omitempty"`
	Vintage     int     `json:"vintage,omitempty"`
	Region      string  `json:"region,omitempty"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"ratingCount,omitempty"`
	Favorite    bool    `json:"isFavorite"`
}

type Comment struct {
	ID        ID        `json:"id"`
	CardID    ID        `json:"cardId"`
	Author    string    `json:"author,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	Pending   bool      `json:"pending,omitempty"` // not yet confirmed by the server
}

type User struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ListQuery selects one page of cards. Equal queries share one cache slot.
type ListQuery struct {
	Page    int               `json:"page"`
	Limit   int               `json:"limit,omitempty"`
	Search  string            `json:"search,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
}

// API is the remote catalog. Implementations wrap the HTTP transport; this
// package only depends on the request/response contract.
type API interface {
	ListCards(ctx context.Context, q ListQuery) ([]Card, error)
	GetCard(ctx context.Context, id ID) (Card, error)
	Favorites(ctx context.Context) ([]Card, error)
	Comments(ctx context.Context, cardID ID) ([]Comment, error)
	Profile(ctx context.Context) (User, error)

	Rate(ctx context.Context, id ID, rating float64) (Card, error)
	// ToggleFavorite returns the favorite state after the toggle.
	ToggleFavorite(ctx context.Context, id ID) (bool, error)
	DeleteCard(ctx context.Context, id ID) error
	AddComment(ctx context.Context, cardID ID, body string) (Comment, error)
}
