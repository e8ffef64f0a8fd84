package backend

import (
	"context"

	"labelmail/models"
	"labelmail/threading"
)

// AccountSearcher binds a client to one bearer token so it can serve the
// thread resolver.
type AccountSearcher struct {
	Client *Client
	Token  string
}

func (s AccountSearcher) Search(ctx context.Context, accountID, query, folder string, limit int) ([]models.Email, error) {
	return s.Client.Search(ctx, s.Token, accountID, query, folder, limit)
}

// Searcher returns the resolver capability for token.
func (c *Client) Searcher(token string) threading.Searcher {
	return AccountSearcher{Client: c, Token: token}
}
