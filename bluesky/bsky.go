package bluesky

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/labstack/gommon/log"
)

const DefaultPDSHost = "https://bsky.social"

type Credentials struct {
	Identifier string
	Password   string
}

type Client struct {
	xrpc *xrpc.Client
}

func ClientFromCredentials(ctx context.Context, host string, creds *Credentials) (*Client, error) {
	auth, err := atproto.ServerCreateSession(ctx, &xrpc.Client{Host: host}, &atproto.ServerCreateSession_Input{
		Identifier: creds.Identifier,
		Password:   creds.Password,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	xrpcClient := &xrpc.Client{
		Host: host,
		Auth: &xrpc.AuthInfo{
			AccessJwt:  auth.AccessJwt,
			RefreshJwt: auth.RefreshJwt,
			Handle:     auth.Handle,
			Did:        auth.Did,
		},
		Client: http.DefaultClient,
	}

	return &Client{xrpc: xrpcClient}, nil
}

// SetAcceptLanguage forwards the viewer's language preference to the
// feed generator on subsequent requests. An empty value leaves the
// headers untouched.
func (c *Client) SetAcceptLanguage(languages string) {
	if languages == "" {
		return
	}
	if c.xrpc.Headers == nil {
		c.xrpc.Headers = map[string]string{}
	}
	c.xrpc.Headers["Accept-Language"] = languages
}

// GetFeed requests one page of posts from the feed generator behind the
// given at:// uri.
func (c *Client) GetFeed(ctx context.Context, feedURI string, limit int64) (*bsky.FeedGetFeed_Output, error) {
	feed, err := bsky.FeedGetFeed(ctx, c.xrpc, "", feedURI, limit)
	if err != nil {
		// Display the entire http response error so we can see what went wrong
		log.Errorf("failed to get feed %s: %s", feedURI, err)
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return feed, nil
}
