package fetcher

import (
	"net/url"
)

// Credentials authenticate requests to the tile service. They are passed by value down a resolve; deriving a
// session never touches the caller's copy.
type Credentials struct {
	APIKey  string
	Session string
}

// WithSessionFrom returns a copy carrying the session parameter found in uri, or c unchanged when uri has
// none.
func (c Credentials) WithSessionFrom(uri string) Credentials {
	u, err := url.Parse(uri)
	if err != nil {
		return c
	}
	if session := u.Query().Get("session"); session != "" {
		c.Session = session
	}
	return c
}

// String keeps the key out of logs.
func (c Credentials) String() string {
	key := "<none>"
	if c.APIKey != "" {
		key = "<redacted>"
	}
	return "key=" + key + " session=" + c.Session
}

// ResolveReference resolves a content URI against the URI of the document that referenced it. Absolute
// paths and absolute URLs are returned unchanged.
func ResolveReference(parentURI string, ref string) string {
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() || parentURI == "" {
		return ref
	}
	base, err := url.Parse(parentURI)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}
