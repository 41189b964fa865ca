package access_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/frahmantamala/marketplace/internal/access"
	moduleDatamodel "github.com/frahmantamala/marketplace/internal/core/datamodel/module"
	"github.com/frahmantamala/marketplace/internal/core/events"
	"github.com/frahmantamala/marketplace/internal/module"
)

var _ = Describe("ModuleDirectory", func() {
	var (
		ctx       context.Context
		clock     *clockwork.FakeClock
		source    *MockModuleSource
		metrics   *access.Metrics
		directory *access.ModuleDirectory
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = clockwork.NewFakeClock()
		source = NewMockModuleSource()
		source.put(&moduleDatamodel.Module{ID: 1, Name: "Orders", IsActive: true})
		metrics = access.NewMetrics(prometheus.NewRegistry())

		store, err := access.NewMemoryStore(16, clock)
		Expect(err).NotTo(HaveOccurred())
		directory, err = access.NewModuleDirectory(source, access.DirectoryOptions{
			TTL:     5 * time.Minute,
			Store:   store,
			Metrics: metrics,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("reads the source once per ttl window", func() {
		for i := 0; i < 3; i++ {
			m, err := directory.GetModule(ctx, "Orders")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.ID).To(Equal(int64(1)))
		}
		Expect(source.Calls()).To(Equal(1))
		Expect(testutil.ToFloat64(metrics.DirectoryLookups.WithLabelValues("hit"))).To(Equal(2.0))
	})

	It("never caches a miss", func() {
		// Given
		_, err := directory.GetModule(ctx, "Vendors")
		Expect(err).To(MatchError(module.ErrModuleNotFound))

		// When
		source.put(&moduleDatamodel.Module{ID: 2, Name: "Vendors", IsActive: true})

		// Then
		m, err := directory.GetModule(ctx, "Vendors")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.ID).To(Equal(int64(2)))
		Expect(source.Calls()).To(Equal(2))
	})

	It("passes infrastructure errors through without caching", func() {
		source.err = errors.New("connection refused")
		_, err := directory.GetModule(ctx, "Orders")
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, module.ErrModuleNotFound)).To(BeFalse())

		source.err = nil
		_, err = directory.GetModule(ctx, "Orders")
		Expect(err).NotTo(HaveOccurred())
	})

	Context("with the ttl policy", func() {
		It("keeps serving a deactivated module until the entry expires", func() {
			// Given
			_, err := directory.GetModule(ctx, "Orders")
			Expect(err).NotTo(HaveOccurred())

			// When
			source.put(&moduleDatamodel.Module{ID: 1, Name: "Orders", IsActive: false})

			// Then
			clock.Advance(4 * time.Minute)
			_, err = directory.GetModule(ctx, "Orders")
			Expect(err).NotTo(HaveOccurred())

			clock.Advance(time.Minute)
			_, err = directory.GetModule(ctx, "Orders")
			Expect(err).To(MatchError(module.ErrModuleNotFound))
		})
	})

	Context("with the invalidate policy", func() {
		It("drops the entry as soon as a module change is published", func() {
			// Given
			bus := events.NewEventBus(nil)
			directory.SubscribeTo(bus)
			_, err := directory.GetModule(ctx, "Orders")
			Expect(err).NotTo(HaveOccurred())

			// When
			source.remove("Orders")
			source.put(&moduleDatamodel.Module{ID: 1, Name: "Sales", IsActive: true})
			Expect(bus.PublishSync(ctx, events.NewModuleChangedEvent(1, "Orders", "Sales"))).To(Succeed())

			// Then
			_, err = directory.GetModule(ctx, "Orders")
			Expect(err).To(MatchError(module.ErrModuleNotFound))
			m, err := directory.GetModule(ctx, "Sales")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Name).To(Equal("Sales"))
		})
	})

	It("does not cache a read that overlapped a module change", func() {
		// Given
		bus := events.NewEventBus(nil)
		directory.SubscribeTo(bus)
		source.stall = make(chan struct{})
		source.stalled = make(chan struct{}, 1)

		done := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			_, err := directory.GetModule(ctx, "Orders")
			done <- err
		}()
		Eventually(source.stalled).Should(Receive())

		// When
		source.put(&moduleDatamodel.Module{ID: 1, Name: "Orders", IsActive: false})
		Expect(bus.PublishSync(ctx, events.NewModuleChangedEvent(1, "Orders"))).To(Succeed())
		close(source.stall)
		Eventually(done).Should(Receive(BeNil()))

		// Then
		_, err := directory.GetModule(ctx, "Orders")
		Expect(err).To(MatchError(module.ErrModuleNotFound))
	})

	It("collapses concurrent misses into one source read", func() {
		source.gate = make(chan struct{})

		var wg sync.WaitGroup
		results := make([]error, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = directory.GetModule(ctx, "Orders")
			}(i)
		}

		time.Sleep(20 * time.Millisecond)
		close(source.gate)
		wg.Wait()

		for _, err := range results {
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(source.Calls()).To(Equal(1))
	})

	It("stops waiting when the caller gives up", func() {
		source.gate = make(chan struct{})
		defer close(source.gate)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := directory.GetModule(cctx, "Orders")
		Expect(err).To(MatchError(context.Canceled))
	})
})
