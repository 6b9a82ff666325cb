package security

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"blog_api/internal/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	for _, pw := range []string{"pw1", "securePassword123!", "ünïcødé", strings.Repeat("x", 64)} {
		hash, err := h.Hash(pw)
		require.NoError(t, err)
		assert.NotEqual(t, pw, hash)
		assert.True(t, h.Check(pw, hash), "password %q should verify", pw)
		assert.False(t, h.Check(pw+"!", hash))
	}
}

func TestPasswordHasher_SaltsEachHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Check("same", a))
	assert.True(t, h.Check("same", b))
}

func TestPasswordHasher_Edges(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	_, err := h.Hash("")
	assert.Error(t, err)
	assert.False(t, h.Check("pw", "not-a-bcrypt-hash"))

	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(1).cost)
	assert.Equal(t, bcrypt.MaxCost, NewPasswordHasher(99).cost)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestTokenService(clock *fakeClock) *TokenService {
	return NewTokenService([]byte("super-secret"), time.Hour, WithClock(clock.Now))
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	s := newTestTokenService(clock)

	tok, err := s.Issue("a@x.com", time.Minute)
	require.NoError(t, err)

	sub, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sub)

	clock.t = clock.t.Add(59 * time.Second)
	_, err = s.Verify(tok)
	assert.NoError(t, err)

	clock.t = clock.t.Add(2 * time.Second)
	_, err = s.Verify(tok)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestTokenService_DefaultTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := newTestTokenService(clock)
	assert.Equal(t, time.Hour, s.TTL())
	assert.Equal(t, DefaultTokenTTL, NewTokenService([]byte("k"), 0).TTL())

	tok, err := s.Issue("a@x.com", 0)
	require.NoError(t, err)

	clock.t = clock.t.Add(DefaultTokenTTL - time.Second)
	_, err = s.Verify(tok)
	assert.NoError(t, err)

	clock.t = clock.t.Add(2 * time.Second)
	_, err = s.Verify(tok)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func flipBit(t *testing.T, segment string, i int) string {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	require.NoError(t, err)
	raw[i%len(raw)] ^= 0x01
	return base64.RawURLEncoding.EncodeToString(raw)
}

func TestTokenService_TamperedBitIsInvalidSignature(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestTokenService(clock)

	tok, err := s.Issue("a@x.com", time.Hour)
	require.NoError(t, err)
	parts := strings.Split(tok, ".")

	for seg := 0; seg < 3; seg++ {
		for i := 0; i < 8; i++ {
			tampered := append([]string(nil), parts...)
			tampered[seg] = flipBit(t, parts[seg], i)

			_, err := s.Verify(strings.Join(tampered, "."))
			assert.ErrorIs(t, err, common.ErrTokenInvalidSignature, "segment %d byte %d", seg, i)
		}
	}
}

func TestTokenService_RejectsEveryRawBitFlip(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestTokenService(clock)

	tok, err := s.Issue("a@x.com", time.Hour)
	require.NoError(t, err)

	for pos := 0; pos < len(tok); pos++ {
		for bit := 0; bit < 8; bit++ {
			raw := []byte(tok)
			raw[pos] ^= 1 << bit
			mutated := string(raw)
			if mutated == tok {
				continue
			}

			sub, err := s.Verify(mutated)
			require.Error(t, err, "pos %d bit %d accepted with sub %q", pos, bit, sub)
		}
	}
}

func TestTokenService_NonCanonicalSignatureTail(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestTokenService(clock)

	tok, err := s.Issue("a@x.com", time.Hour)
	require.NoError(t, err)

	// A 32-byte HMAC encodes to 43 characters; the last one carries two
	// unused low bits. Setting one keeps the decoded bytes identical.
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	raw := []byte(tok)
	last := len(raw) - 1
	idx := strings.IndexByte(alphabet, raw[last])
	require.GreaterOrEqual(t, idx, 0)
	require.Zero(t, idx&0x03)
	raw[last] = alphabet[idx^0x01]

	_, err = s.Verify(string(raw))
	assert.ErrorIs(t, err, common.ErrTokenMalformed)
}

func TestTokenService_WrongKey(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tok, err := NewTokenService([]byte("right"), time.Hour, WithClock(clock.Now)).Issue("u", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenService([]byte("wrong"), time.Hour, WithClock(clock.Now)).Verify(tok)
	assert.ErrorIs(t, err, common.ErrTokenInvalidSignature)
}

func TestTokenService_Malformed(t *testing.T) {
	s := newTestTokenService(&fakeClock{t: time.Now()})

	for _, tok := range []string{"", "not-a-jwt", "a.b", "a.b.c.d", "x.y.***"} {
		_, err := s.Verify(tok)
		assert.ErrorIs(t, err, common.ErrTokenMalformed, "token %q", tok)
	}
}

func TestTokenService_ClaimsProblems(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestTokenService(clock)
	key := []byte("super-secret")

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
	}).SignedString(key)
	require.NoError(t, err)
	_, err = s.Verify(noSubject)
	assert.ErrorIs(t, err, common.ErrTokenMalformed)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "a@x.com",
	}).SignedString(key)
	require.NoError(t, err)
	_, err = s.Verify(noExpiry)
	assert.ErrorIs(t, err, common.ErrTokenMalformed)

	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "a@x.com",
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
	}).SignedString(key)
	require.NoError(t, err)
	_, err = s.Verify(otherAlg)
	assert.ErrorIs(t, err, common.ErrTokenInvalidSignature)
}
