package utils

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

var (
	ErrMissingParams = errors.New("missing_params")
	ErrInvalidParams = errors.New("invalid_params")
	ErrBadSignature  = errors.New("bad_signature")
	ErrLinkExpired   = errors.New("expired")
)

// LinkPayload is the signed part of a QR link. Field order and tags define the
// canonical form; changing either invalidates every printed code.
type LinkPayload struct {
	TableNumber string `json:"table_number"`
	TS          int64  `json:"ts"`
}

// Canonical returns the exact bytes that are signed: compact JSON with
// table_number before ts and no HTML escaping.
func (p LinkPayload) Canonical() []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a struct of a string and an int64 cannot fail.
	_ = enc.Encode(p)
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// Expiry returns ts as a time.
func (p LinkPayload) Expiry() time.Time {
	return time.Unix(p.TS, 0)
}

// SignedLink is what goes into a QR code.
type SignedLink struct {
	Payload   LinkPayload
	Signature string
	URL       string
}

// LinkSigner signs and verifies table links with HMAC-SHA256.
type LinkSigner struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
	path    string
	now     func() time.Time
}

// NewLinkSigner builds a signer. baseURL is the frontend origin, path the
// frontend route that receives ?table=&ts=&sig=. A nil now uses time.Now.
func NewLinkSigner(secret string, ttl time.Duration, baseURL, path string, now func() time.Time) *LinkSigner {
	if now == nil {
		now = time.Now
	}
	return &LinkSigner{
		secret:  []byte(secret),
		ttl:     ttl,
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    path,
		now:     now,
	}
}

// Sign returns the lowercase hex HMAC of the canonical payload.
func (s *LinkSigner) Sign(p LinkPayload) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(p.Canonical())
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is the signature of p. It never panics on
// malformed input.
func (s *LinkSigner) Verify(p LinkPayload, sig string) bool {
	expected := s.Sign(p)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// Check verifies the signature and then the expiry. A valid signature does not
// excuse an expired ts.
func (s *LinkSigner) Check(p LinkPayload, sig string) error {
	if !s.Verify(p, sig) {
		return ErrBadSignature
	}
	if p.TS < s.now().Unix() {
		return ErrLinkExpired
	}
	return nil
}

// IssueLink signs a link for tableNumber valid for the signer's TTL.
func (s *LinkSigner) IssueLink(tableNumber string) (SignedLink, error) {
	p := LinkPayload{
		TableNumber: tableNumber,
		TS:          s.now().Add(s.ttl).Unix(),
	}
	sig := s.Sign(p)

	u, err := url.Parse(s.baseURL + s.path)
	if err != nil {
		return SignedLink{}, fmt.Errorf("build link url: %w", err)
	}
	q := u.Query()
	q.Set("table", p.TableNumber)
	q.Set("ts", strconv.FormatInt(p.TS, 10))
	q.Set("sig", sig)
	u.RawQuery = q.Encode()

	return SignedLink{Payload: p, Signature: sig, URL: u.String()}, nil
}

// ParseLinkQuery turns the raw query values of a scanned link into a payload.
// Table numbers the canonical form cannot reproduce byte for byte (invalid
// UTF-8, U+2028, U+2029) are rejected along with control characters.
func ParseLinkQuery(table, ts, sig string) (LinkPayload, string, error) {
	if table == "" || ts == "" || sig == "" {
		return LinkPayload{}, "", ErrMissingParams
	}
	if !utf8.ValidString(table) {
		return LinkPayload{}, "", ErrInvalidParams
	}
	for _, r := range table {
		if unicode.IsControl(r) || r == '\u2028' || r == '\u2029' {
			return LinkPayload{}, "", ErrInvalidParams
		}
	}
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return LinkPayload{}, "", ErrInvalidParams
	}
	return LinkPayload{TableNumber: table, TS: n}, sig, nil
}
