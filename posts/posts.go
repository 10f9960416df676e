// Package posts fetches post records from a JSON endpoint and prints a
// summary of the first one.
//
// Each call makes exactly one GET request. There is no retry, no client
// timeout and no caching; cancellation comes only from the caller's context.
package posts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/liamcoop/typetour/internal/logger"
)

// DefaultURL is the public placeholder endpoint
const DefaultURL = "https://jsonplaceholder.typicode.com/posts"

// AdminUserID is the author shown as "Administrator"
const AdminUserID = 1

// Post is one record of the endpoint's JSON array.
// Fields missing from the JSON are left at their zero value.
type Post struct {
	UserID int    `json:"userId"`
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Author returns "Administrator" for AdminUserID, else the numeric ID
func (p Post) Author() string {
	if p.UserID == AdminUserID {
		return "Administrator"
	}
	return strconv.Itoa(p.UserID)
}

// Lines returns the four summary lines for p
func (p Post) Lines() []string {
	return []string{
		fmt.Sprintf("Post #%d", p.ID),
		"Author: " + p.Author(),
		"Title: " + p.Title,
		"Body: " + p.Body,
	}
}

// Client fetches posts from one endpoint
type Client struct {
	url        string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient returns a client for url, or DefaultURL when url is empty
func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:        url,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client reads from
func (c *Client) URL() string {
	return c.url
}

// FetchPosts issues a single GET and decodes the body as a list of posts
func (c *Client) FetchPosts(ctx context.Context) ([]Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &NetworkError{URL: c.url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	logger.Debug("fetching posts", "url", c.url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.WarnFetchFailure(c.url, err)
		return nil, &NetworkError{URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		netErr := &NetworkError{URL: c.url, StatusCode: resp.StatusCode}
		logger.WarnFetchFailure(c.url, netErr)
		return nil, netErr
	}

	posts, err := decodePosts(resp.Body)
	if err != nil {
		logger.WarnFetchFailure(c.url, err)
		return nil, &DecodeError{URL: c.url, Err: err}
	}

	logger.Debug("fetched posts", "url", c.url, "count", len(posts))
	return posts, nil
}

// decodePosts strips a leading byte order mark before decoding
func decodePosts(r io.Reader) ([]Post, error) {
	body := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	dec := json.NewDecoder(body)
	var posts []Post
	if err := dec.Decode(&posts); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after posts array")
	}
	return posts, nil
}

// FirstPost fetches the posts and returns the first one
func (c *Client) FirstPost(ctx context.Context) (Post, error) {
	posts, err := c.FetchPosts(ctx)
	if err != nil {
		return Post{}, err
	}
	if len(posts) == 0 {
		return Post{}, fmt.Errorf("fetch %s: %w", c.url, ErrEmptyResult)
	}
	return posts[0], nil
}

// ShowPost writes the summary lines of the first post to w
func (c *Client) ShowPost(ctx context.Context, w io.Writer) error {
	post, err := c.FirstPost(ctx)
	if err != nil {
		return err
	}
	for _, line := range post.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// FetchPosts fetches url with http.DefaultClient
func FetchPosts(ctx context.Context, url string) ([]Post, error) {
	return NewClient(url).FetchPosts(ctx)
}

// ShowPost prints the first post of url to w with http.DefaultClient
func ShowPost(ctx context.Context, url string, w io.Writer) error {
	return NewClient(url).ShowPost(ctx, w)
}
