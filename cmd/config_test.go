package cmd

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/marketplace/internal"
)

const testConfig = `
database:
  source: postgres://localhost/marketplace
security:
  jwt_secret: 0123456789abcdef0123456789abcdef
  bcrypt_cost: 4
access:
  cache_policy: ttl
  cache_ttl: 2m
`

func setenv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(os.Unsetenv, key)
}

var _ = Describe("loadConfig", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "config.yml"), []byte(testConfig), 0o600)).To(Succeed())
	})

	It("reads the file and fills defaults", func() {
		cfg, err := loadConfig(dir)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Access.CacheTTL).To(Equal(2 * time.Minute))
		Expect(cfg.Access.CacheBackend).To(Equal(internal.CacheBackendMemory))
		Expect(cfg.Server.Port).To(Equal(8080))
		Expect(cfg.Security.TokenExpiry).To(Equal(720 * time.Hour))
	})

	It("lets ENV_ variables override file values", func() {
		setenv("ENV_ACCESS_CACHE_POLICY", "invalidate")

		cfg, err := loadConfig(dir)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Access.CachePolicy).To(Equal(internal.CachePolicyInvalidate))
	})

	It("rejects a short signing secret", func() {
		setenv("ENV_SECURITY_JWT_SECRET", "short")

		_, err := loadConfig(dir)

		Expect(err).To(MatchError(ContainSubstring("jwt_secret")))
	})

	It("reads only APP_ variables in production", func() {
		setenv("APP_ENV", "production")
		setenv("APP_DATABASE_SOURCE", "postgres://db/prod")
		setenv("APP_SECURITY_JWT_SECRET", "fedcba9876543210fedcba9876543210")
		setenv("APP_ACCESS_CACHE_BACKEND", "redis")
		setenv("APP_REDIS_ADDR", "redis:6379")

		cfg, err := loadConfig(GinkgoT().TempDir())

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Database.Source).To(Equal("postgres://db/prod"))
		Expect(cfg.Access.CacheBackend).To(Equal(internal.CacheBackendRedis))
		Expect(cfg.Redis.Addr).To(Equal("redis:6379"))
	})

	It("requires a redis address for the redis backend", func() {
		setenv("APP_ENV", "production")
		setenv("APP_DATABASE_SOURCE", "postgres://db/prod")
		setenv("APP_SECURITY_JWT_SECRET", "fedcba9876543210fedcba9876543210")
		setenv("APP_ACCESS_CACHE_BACKEND", "redis")

		_, err := loadConfig(GinkgoT().TempDir())

		Expect(err).To(MatchError(ContainSubstring("redis")))
	})
})
