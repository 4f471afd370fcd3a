package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestSigner(now time.Time) *LinkSigner {
	return NewLinkSigner("test-secret", 24*time.Hour, "http://localhost:5173/", "/order", fixedClock(now))
}

func TestCanonicalMatchesIssuedFormat(t *testing.T) {
	p := LinkPayload{TableNumber: "12", TS: 1700000000}
	assert.Equal(t, `{"table_number":"12","ts":1700000000}`, string(p.Canonical()))

	// Table numbers are not HTML-escaped.
	p = LinkPayload{TableNumber: "A<1>&", TS: 5}
	assert.Equal(t, `{"table_number":"A<1>&","ts":5}`, string(p.Canonical()))
}

func TestSignIsHMACOfCanonical(t *testing.T) {
	s := newTestSigner(time.Unix(1000, 0))
	p := LinkPayload{TableNumber: "7", TS: 2000}

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte(`{"table_number":"7","ts":2000}`))
	want := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, s.Sign(p))
	assert.Equal(t, s.Sign(p), s.Sign(p), "signature must be deterministic")
}

func TestIssueLinkThenVerify(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := newTestSigner(now)

	for _, table := range []string{"1", "12", "A-3", "patio_20"} {
		link, err := s.IssueLink(table)
		require.NoError(t, err)

		assert.Equal(t, now.Add(24*time.Hour).Unix(), link.Payload.TS)
		assert.True(t, s.Verify(link.Payload, link.Signature))
		assert.NoError(t, s.Check(link.Payload, link.Signature))

		u, err := url.Parse(link.URL)
		require.NoError(t, err)
		assert.Equal(t, "localhost:5173", u.Host)
		assert.Equal(t, "/order", u.Path)

		p, sig, err := ParseLinkQuery(u.Query().Get("table"), u.Query().Get("ts"), u.Query().Get("sig"))
		require.NoError(t, err)
		assert.Equal(t, link.Payload, p)
		assert.NoError(t, s.Check(p, sig))
	}
}

func TestVerifyRejectsForgeries(t *testing.T) {
	s := newTestSigner(time.Unix(1000, 0))
	p := LinkPayload{TableNumber: "12", TS: 5000}
	sig := s.Sign(p)

	other := NewLinkSigner("other-secret", time.Hour, "http://x", "/order", nil)

	cases := map[string]struct {
		payload LinkPayload
		sig     string
	}{
		"tampered table":  {LinkPayload{TableNumber: "13", TS: 5000}, sig},
		"tampered ts":     {LinkPayload{TableNumber: "12", TS: 5001}, sig},
		"wrong key":       {p, other.Sign(p)},
		"corrupted first": {p, "X" + sig[1:]},
		"truncated":       {p, sig[:len(sig)-2]},
		"empty":           {p, ""},
		"not hex at all":  {p, "definitely-not-a-signature"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, s.Verify(tc.payload, tc.sig))
			assert.ErrorIs(t, s.Check(tc.payload, tc.sig), ErrBadSignature)
		})
	}
}

func TestCheckExpiredEvenWithValidSignature(t *testing.T) {
	now := time.Unix(10_000, 0)
	s := newTestSigner(now)

	past := LinkPayload{TableNumber: "12", TS: now.Unix() - 1}
	sig := s.Sign(past)
	assert.True(t, s.Verify(past, sig))
	assert.ErrorIs(t, s.Check(past, sig), ErrLinkExpired)

	// ts equal to now is still accepted.
	edge := LinkPayload{TableNumber: "12", TS: now.Unix()}
	assert.NoError(t, s.Check(edge, s.Sign(edge)))
}

func TestCheckBadSignatureWinsOverExpiry(t *testing.T) {
	s := newTestSigner(time.Unix(10_000, 0))
	past := LinkPayload{TableNumber: "12", TS: 1}
	assert.ErrorIs(t, s.Check(past, "00"), ErrBadSignature)
}

func TestCanonicalKeepsNonASCII(t *testing.T) {
	p := LinkPayload{TableNumber: "Mesa-ñ<1>&", TS: 7}
	assert.Equal(t, `{"table_number":"Mesa-ñ<1>&","ts":7}`, string(p.Canonical()))
}

func TestParseLinkQuery(t *testing.T) {
	_, _, err := ParseLinkQuery("", "1", "a")
	assert.ErrorIs(t, err, ErrMissingParams)
	_, _, err = ParseLinkQuery("12", "", "a")
	assert.ErrorIs(t, err, ErrMissingParams)
	_, _, err = ParseLinkQuery("12", "1", "")
	assert.ErrorIs(t, err, ErrMissingParams)

	_, _, err = ParseLinkQuery("12", "soon", "abc")
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, _, err = ParseLinkQuery("12", "1.5", "abc")
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, _, err = ParseLinkQuery("1\n2", "1", "abc")
	assert.ErrorIs(t, err, ErrInvalidParams)

	// Go's encoder would rewrite these, so they could never match a
	// signature computed over the raw characters.
	for _, table := range []string{"A\xff", "A\u2028", "A\u2029"} {
		_, _, err = ParseLinkQuery(table, "1", "abc")
		assert.ErrorIs(t, err, ErrInvalidParams, "%q", table)
	}

	p, sig, err := ParseLinkQuery("12", strconv.Itoa(99), "abc")
	require.NoError(t, err)
	assert.Equal(t, LinkPayload{TableNumber: "12", TS: 99}, p)
	assert.Equal(t, "abc", sig)
}
