package access_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/marketplace/internal/access"
	"github.com/frahmantamala/marketplace/internal/module"
)

var _ = Describe("MemoryStore", func() {
	var (
		ctx   context.Context
		clock *clockwork.FakeClock
		store *access.MemoryStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = clockwork.NewFakeClock()
		var err error
		store, err = access.NewMemoryStore(2, clock)
		Expect(err).NotTo(HaveOccurred())
	})

	It("serves an entry until its ttl elapses", func() {
		Expect(store.Set(ctx, "Orders", &module.Module{ID: 1, Name: "Orders"}, time.Minute)).To(Succeed())

		clock.Advance(59 * time.Second)
		m, ok, err := store.Get(ctx, "Orders")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(m.ID).To(Equal(int64(1)))

		clock.Advance(time.Second)
		_, ok, err = store.Get(ctx, "Orders")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
		Expect(store.Len()).To(Equal(0))
	})

	It("evicts the least recently used entry when full", func() {
		Expect(store.Set(ctx, "A", &module.Module{Name: "A"}, time.Minute)).To(Succeed())
		Expect(store.Set(ctx, "B", &module.Module{Name: "B"}, time.Minute)).To(Succeed())
		_, _, _ = store.Get(ctx, "A")
		Expect(store.Set(ctx, "C", &module.Module{Name: "C"}, time.Minute)).To(Succeed())

		_, ok, _ := store.Get(ctx, "B")
		Expect(ok).To(BeFalse())
		_, ok, _ = store.Get(ctx, "A")
		Expect(ok).To(BeTrue())
	})

	It("deletes named entries", func() {
		Expect(store.Set(ctx, "A", &module.Module{Name: "A"}, time.Minute)).To(Succeed())
		Expect(store.Delete(ctx, "A", "missing")).To(Succeed())
		_, ok, _ := store.Get(ctx, "A")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("RedisStore", func() {
	var (
		ctx    context.Context
		mr     *miniredis.Miniredis
		client *redis.Client
		store  *access.RedisStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		store = access.NewRedisStore(client)
	})

	AfterEach(func() {
		_ = client.Close()
		mr.Close()
	})

	It("round-trips a module with its submodules", func() {
		m := &module.Module{
			ID:       3,
			Name:     "Freelancers",
			IsActive: true,
			SubModules: []module.SubModule{
				{ID: 1, Name: "Contracts", IsActive: true},
			},
		}
		Expect(store.Set(ctx, "Freelancers", m, time.Minute)).To(Succeed())

		got, ok, err := store.Get(ctx, "Freelancers")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(got.ID).To(Equal(int64(3)))
		Expect(got.ActiveSubModule("Contracts")).NotTo(BeNil())
	})

	It("lets the server expire entries", func() {
		Expect(store.Set(ctx, "Orders", &module.Module{Name: "Orders"}, time.Minute)).To(Succeed())
		Expect(mr.TTL("access:module:Orders")).To(Equal(time.Minute))

		mr.FastForward(time.Minute + time.Second)
		_, ok, err := store.Get(ctx, "Orders")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("treats a corrupt payload as a miss and drops it", func() {
		Expect(mr.Set("access:module:Broken", "{not json")).To(Succeed())

		_, ok, err := store.Get(ctx, "Broken")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
		Expect(mr.Exists("access:module:Broken")).To(BeFalse())
	})

	It("reports an unreachable server as an error", func() {
		mr.Close()
		_, _, err := store.Get(ctx, "Orders")
		Expect(err).To(HaveOccurred())
	})

	It("deletes named entries", func() {
		Expect(store.Set(ctx, "A", &module.Module{Name: "A"}, time.Minute)).To(Succeed())
		Expect(store.Delete(ctx, "A", "B")).To(Succeed())
		Expect(mr.Exists("access:module:A")).To(BeFalse())
	})
})
