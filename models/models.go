package models

// BlueskyAuthor identifies the account behind a Bluesky post
type BlueskyAuthor struct {
	Did         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// FacetSpan is a byte range of post text carrying a link, mention or tag
type FacetSpan struct {
	Type      string `json:"type"`
	ByteStart int64  `json:"byteStart"`
	ByteEnd   int64  `json:"byteEnd"`
	Value     string `json:"value,omitempty"`
}

// EmbedCard is the external link preview attached to a post, if any
type EmbedCard struct {
	Uri         string `json:"uri"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumb       string `json:"thumb,omitempty"`
}

type BlueskyPost struct {
	Uri       string        `json:"uri"`
	Cid       string        `json:"cid"`
	Author    BlueskyAuthor `json:"author"`
	Text      string        `json:"text"`
	Markdown  string        `json:"markdown"`
	Facets    []FacetSpan   `json:"facets"`
	Languages []string      `json:"languages,omitempty"`
	CreatedAt string        `json:"createdAt"`
	IndexedAt string        `json:"indexedAt"`
	Embed     *EmbedCard    `json:"embed,omitempty"`
}

// NostrPost keeps the relay event fields as delivered, with the npub
// encoding of the author key added for profile links
type NostrPost struct {
	Id        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	Npub      string     `json:"npub,omitempty"`
	Content   string     `json:"content"`
	CreatedAt int64      `json:"created_at"`
	Tags      [][]string `json:"tags"`
}

type MastodonAccount struct {
	Username    string `json:"username"`
	Acct        string `json:"acct"`
	DisplayName string `json:"displayName,omitempty"`
}

type MastodonPost struct {
	Id        string          `json:"id"`
	Content   string          `json:"content"`
	Account   MastodonAccount `json:"account"`
	CreatedAt string          `json:"createdAt"`
	Url       string          `json:"url"`
}

// FeedResponse groups the three source lists for one tab. The lists are
// independent; an empty list never says anything about the other two.
type FeedResponse struct {
	Bluesky  []BlueskyPost  `json:"bluesky"`
	Nostr    []NostrPost    `json:"nostr"`
	Mastodon []MastodonPost `json:"mastodon"`
}

// TabInfo describes one configured tab for API consumers
type TabInfo struct {
	Index       int    `json:"index"`
	DisplayName string `json:"displayName"`
}
