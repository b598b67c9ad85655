package invoice

import (
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeClock is a settable TimeSource.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ = Describe("MemoryStore", func() {
	var (
		clock *fakeClock
		store *MemoryStore
	)

	BeforeEach(func() {
		clock = newFakeClock()
		store = NewMemoryStore(MemoryStoreConfig{
			TTL:      10 * time.Minute,
			Capacity: 3,
			Clock:    clock,
		})
	})

	AfterEach(func() {
		store.Close()
	})

	Describe("Put and Get", func() {
		It("should round-trip a record", func() {
			record := &Record{InvoiceID: "abc", VendorName: strPtr("Acme Corp")}
			Expect(store.Put(record)).To(Succeed())

			got, err := store.Get("abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.VendorName).To(HaveValue(Equal("Acme Corp")))
		})

		It("should reject a record without an id", func() {
			Expect(store.Put(&Record{})).NotTo(Succeed())
		})

		It("should return ErrNotFound for an unknown id", func() {
			_, err := store.Get("missing")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should replace an existing record in place", func() {
			Expect(store.Put(&Record{InvoiceID: "abc", RawText: "old"})).To(Succeed())
			Expect(store.Put(&Record{InvoiceID: "abc", RawText: "new"})).To(Succeed())

			got, err := store.Get("abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.RawText).To(Equal("new"))
			Expect(store.Len()).To(Equal(1))
		})
	})

	Describe("TTL eviction", func() {
		It("should expire records past their ttl on access", func() {
			Expect(store.Put(&Record{InvoiceID: "abc"})).To(Succeed())
			clock.Advance(11 * time.Minute)

			_, err := store.Get("abc")
			Expect(err).To(MatchError(ErrNotFound))
			Expect(store.Len()).To(BeZero())
		})

		It("should keep records within their ttl", func() {
			Expect(store.Put(&Record{InvoiceID: "abc"})).To(Succeed())
			clock.Advance(9 * time.Minute)

			_, err := store.Get("abc")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should not refresh the ttl on read", func() {
			Expect(store.Put(&Record{InvoiceID: "abc"})).To(Succeed())
			clock.Advance(6 * time.Minute)
			_, err := store.Get("abc")
			Expect(err).NotTo(HaveOccurred())

			clock.Advance(6 * time.Minute)
			_, err = store.Get("abc")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should remove expired records during a sweep", func() {
			Expect(store.Put(&Record{InvoiceID: "abc"})).To(Succeed())
			Expect(store.Put(&Record{InvoiceID: "def"})).To(Succeed())
			clock.Advance(11 * time.Minute)

			store.sweep()
			Expect(store.Len()).To(BeZero())
		})
	})

	Describe("LRU capacity eviction", func() {
		BeforeEach(func() {
			for _, id := range []string{"a", "b", "c"} {
				Expect(store.Put(&Record{InvoiceID: id})).To(Succeed())
			}
		})

		It("should evict the least recently used record when over capacity", func() {
			Expect(store.Put(&Record{InvoiceID: "d"})).To(Succeed())

			Expect(store.Len()).To(Equal(3))
			_, err := store.Get("a")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should treat a read as a use", func() {
			_, err := store.Get("a")
			Expect(err).NotTo(HaveOccurred())

			Expect(store.Put(&Record{InvoiceID: "d"})).To(Succeed())

			_, err = store.Get("a")
			Expect(err).NotTo(HaveOccurred())
			_, err = store.Get("b")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("concurrent access", func() {
		It("should survive parallel puts and gets", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(n int) {
					defer GinkgoRecover()
					defer wg.Done()
					id := fmt.Sprintf("inv-%d", n%5)
					Expect(store.Put(&Record{InvoiceID: id})).To(Succeed())
					store.Get(id)
				}(i)
			}
			wg.Wait()

			Expect(store.Len()).To(BeNumerically("<=", 3))
		})
	})
})
