package auth_test

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/marketplace/internal/auth"
	"github.com/frahmantamala/marketplace/internal/principal"
	"github.com/frahmantamala/marketplace/internal/role"
)

const testSecret = "a-very-long-secret-for-signing-tokens!!"

var _ = Describe("TokenCodec", func() {
	var (
		clock *clockwork.FakeClock
		codec *auth.TokenCodec
		p     *principal.Principal
	)

	BeforeEach(func() {
		clock = clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
		codec = auth.NewTokenCodec(testSecret, 24*time.Hour, clock)
		p = &principal.Principal{
			ID:    42,
			Type:  principal.TypeVendorB2C,
			Email: "shop@example.com",
			Role:  &role.Role{ID: 3, Code: "vendorb2c", Name: "Vendor B2C"},
		}
	})

	It("round-trips the principal claims", func() {
		token, _, err := codec.Issue(p)
		Expect(err).NotTo(HaveOccurred())

		claims, err := codec.Verify(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.PrincipalID).To(Equal(int64(42)))
		Expect(claims.Type).To(Equal(principal.TypeVendorB2C))
		Expect(claims.Email).To(Equal("shop@example.com"))
		Expect(claims.Role).To(Equal(auth.RoleSnapshot{Code: "vendorb2c", Name: "Vendor B2C"}))
	})

	It("defaults the lifetime to thirty days", func() {
		c := auth.NewTokenCodec(testSecret, 0, clock)
		Expect(c.TTL()).To(Equal(720 * time.Hour))
	})

	It("rejects an expired token", func() {
		token, _, err := codec.Issue(p)
		Expect(err).NotTo(HaveOccurred())

		clock.Advance(24*time.Hour + time.Second)
		_, err = codec.Verify(token)
		Expect(err).To(MatchError(auth.ErrTokenExpired))
	})

	It("rejects a token signed with another secret", func() {
		other := auth.NewTokenCodec("another-secret-that-is-long-enough!!!!", time.Hour, clock)
		token, _, err := other.Issue(p)
		Expect(err).NotTo(HaveOccurred())

		_, err = codec.Verify(token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("rejects a token without expiry", func() {
		claims := auth.Claims{PrincipalID: 1, Type: principal.TypeUser}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		Expect(err).NotTo(HaveOccurred())

		_, err = codec.Verify(token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("rejects other algorithms", func() {
		claims := auth.Claims{
			PrincipalID:      1,
			Type:             principal.TypeUser,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour))},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		Expect(err).NotTo(HaveOccurred())

		_, err = codec.Verify(token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("rejects an unknown principal type", func() {
		claims := auth.Claims{
			PrincipalID:      1,
			Type:             principal.Type("admin"),
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour))},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		Expect(err).NotTo(HaveOccurred())

		_, err = codec.Verify(token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("rejects garbage", func() {
		_, err := codec.Verify("not.a.jwt")
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("refuses to issue without a role", func() {
		p.Role = nil
		_, _, err := codec.Issue(p)
		Expect(err).To(HaveOccurred())
	})
})
