package cookiestore

import (
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/securecookie"
	"github.com/jrsteele09/go-console-session/credentials"
	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
)

var _ credentials.Store = (*CookieStore)(nil)

type cookieValue struct {
	Value     string `json:"v"`
	ExpiresAt int64  `json:"e,omitempty"`
}

// NewCodec builds the securecookie codec shared by every request.
// The block key is optional; when set, values are encrypted as well as signed.
func NewCodec(hashKey, blockKey []byte) *securecookie.SecureCookie {
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	// Expiry is carried inside the value, per key
	codec.MaxAge(0)
	return codec
}

// CookieStore is a credentials.Store bound to one request/response pair.
// Reads see writes made earlier on the same response.
type CookieStore struct {
	codec   *securecookie.SecureCookie
	req     *http.Request
	w       http.ResponseWriter
	clock   clock.Clock
	path    string
	domain  string
	secure  bool
	pending map[string]*cookieValue
	mu      sync.Mutex
}

type Option func(*CookieStore)

func WithClock(c clock.Clock) Option {
	return func(s *CookieStore) { s.clock = c }
}

func WithDomain(domain string) Option {
	return func(s *CookieStore) { s.domain = domain }
}

func WithPath(path string) Option {
	return func(s *CookieStore) { s.path = path }
}

// WithInsecure drops the Secure attribute, for plain http on localhost only
func WithInsecure() Option {
	return func(s *CookieStore) { s.secure = false }
}

func New(codec *securecookie.SecureCookie, r *http.Request, w http.ResponseWriter, opts ...Option) *CookieStore {
	s := &CookieStore{
		codec:   codec,
		req:     r,
		w:       w,
		clock:   clock.New(),
		path:    "/",
		secure:  true,
		pending: make(map[string]*cookieValue),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CookieStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cv, written := s.pending[key]
	if !written {
		c, err := s.req.Cookie(key)
		if err != nil {
			return "", apperrors.ErrNotFound
		}
		cv = &cookieValue{}
		if err := s.codec.Decode(key, c.Value, cv); err != nil {
			// Tampered or signed with another key
			return "", apperrors.ErrNotFound
		}
	}
	if cv == nil {
		return "", apperrors.ErrNotFound
	}
	if cv.ExpiresAt != 0 && s.clock.Now().Unix() >= cv.ExpiresAt {
		return "", apperrors.ErrNotFound
	}
	return cv.Value, nil
}

func (s *CookieStore) Set(key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cv := &cookieValue{Value: value}
	cookie := s.baseCookie(key)
	if ttl > 0 {
		expires := s.clock.Now().Add(ttl)
		cv.ExpiresAt = expires.Unix()
		cookie.Expires = expires.UTC()
		cookie.MaxAge = int(ttl.Seconds())
	}

	encoded, err := s.codec.Encode(key, cv)
	if err != nil {
		return apperrors.Wrapf(err, "[cookiestore] encode %s", key)
	}
	cookie.Value = encoded
	http.SetCookie(s.w, cookie)
	s.pending[key] = cv
	return nil
}

func (s *CookieStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		cookie := s.baseCookie(key)
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		http.SetCookie(s.w, cookie)
		s.pending[key] = nil
	}
	return nil
}

func (s *CookieStore) baseCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Path:     s.path,
		Domain:   s.domain,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
