package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const openLibraryBase = "https://openlibrary.org"

// RemoteMetadata is what an OpenLibrary lookup can add to a locally
// imported book.
type RemoteMetadata struct {
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`
	FirstYear int    `json:"first_publish_year,omitempty"`
	CoverURL  string `json:"cover_url,omitempty"`
}

// OpenLibrary looks up book metadata by title/author search. A breaker
// stops hammering the service while it is down.
type OpenLibrary struct {
	client  *Client
	breaker *Breaker
	baseURL string
}

// NewOpenLibrary creates an OpenLibrary lookup over the shared client.
func NewOpenLibrary(client *Client) *OpenLibrary {
	return &OpenLibrary{
		client:  client,
		breaker: NewBreaker(0, 0),
		baseURL: openLibraryBase,
	}
}

type searchResponse struct {
	Docs []struct {
		Title      string   `json:"title"`
		AuthorName []string `json:"author_name"`
		FirstYear  int      `json:"first_publish_year"`
		CoverID    int64    `json:"cover_i"`
	} `json:"docs"`
}

// Search returns the best match for a title/author pair, or nil when
// nothing matched.
func (o *OpenLibrary) Search(ctx context.Context, title, author string) (*RemoteMetadata, error) {
	q := url.Values{}
	q.Set("title", title)
	if author != "" {
		q.Set("author", author)
	}
	q.Set("limit", "1")

	endpoint := fmt.Sprintf("%s/search.json?%s", o.baseURL, q.Encode())
	result, err := Do(o.breaker, func() (searchResponse, error) {
		var resp searchResponse
		err := o.client.GetJSON(o.client.R().SetContext(ctx), endpoint, &resp)
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	if len(result.Docs) == 0 {
		return nil, nil
	}

	doc := result.Docs[0]
	meta := &RemoteMetadata{
		Title:     doc.Title,
		Author:    strings.Join(doc.AuthorName, ", "),
		FirstYear: doc.FirstYear,
	}
	if doc.CoverID > 0 {
		meta.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", doc.CoverID)
	}
	return meta, nil
}

// DownloadCover fetches a remote cover image.
func (o *OpenLibrary) DownloadCover(ctx context.Context, coverURL string) ([]byte, error) {
	return Do(o.breaker, func() ([]byte, error) {
		resp, err := o.client.R().SetContext(ctx).Get(coverURL)
		if err != nil {
			return nil, fmt.Errorf("download cover: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("download cover: status %d", resp.StatusCode())
		}
		return resp.Body(), nil
	})
}
