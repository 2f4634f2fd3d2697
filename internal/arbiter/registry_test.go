package arbiter

import (
	"github.com/san-kum/dynsolve/internal/body"
	"github.com/san-kum/dynsolve/internal/pool"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingReleaser struct {
	released map[*Arbiter]int
}

func (c *countingReleaser) Release(a *Arbiter) {
	c.released[a]++
	a.Reset()
}

func withContacts(a, b *body.Body, n int) *Arbiter {
	arb := New().Init(a, b)
	for i := 0; i < n; i++ {
		arb.AddContact(Contact{})
	}
	return arb
}

var _ = Describe("Registry", func() {
	var (
		reg     *Registry
		bodyA   *body.Body
		bodyB   *body.Body
		arbs    []*Arbiter
		arbPool *pool.Pool[*Arbiter]
	)

	BeforeEach(func() {
		reg = NewRegistry()
		bodyA = body.New(1, 1)
		bodyB = body.New(1, 1)
		arbPool = pool.New(New, (*Arbiter).Reset)
		arbs = []*Arbiter{
			withContacts(bodyA, bodyB, 1),
			withContacts(bodyA, bodyB, 0),
			withContacts(bodyA, bodyB, 2),
			withContacts(bodyA, bodyB, 0),
			withContacts(bodyA, bodyB, 3),
		}
		for _, a := range arbs {
			reg.Add(a)
		}
	})

	Describe("Add", func() {
		It("ignores an arbiter that is already registered", func() {
			Expect(reg.Add(arbs[0])).To(BeFalse())
			Expect(reg.Len()).To(Equal(5))
		})

		It("ignores nil", func() {
			Expect(reg.Add(nil)).To(BeFalse())
		})
	})

	Describe("ForEachSafe", func() {
		It("visits elements appended during the pass", func() {
			small := NewRegistry()
			for i := 0; i < 3; i++ {
				small.Add(New())
			}

			visited := 0
			small.ForEachSafe(func(a *Arbiter) {
				visited++
				if visited <= 3 {
					small.Add(New())
				}
			})

			Expect(visited).To(BeNumerically(">=", 4))
			Expect(visited).To(Equal(6))
			Expect(small.Len()).To(Equal(6))
		})

		It("visits in insertion order", func() {
			var seen []*Arbiter
			reg.ForEachSafe(func(a *Arbiter) { seen = append(seen, a) })
			Expect(seen).To(Equal(arbs))
		})
	})

	Describe("RemoveAndReleaseZeroContact", func() {
		It("removes zero-contact arbiters and releases each to the pool", func() {
			removed := reg.RemoveAndReleaseZeroContact(arbPool)

			Expect(removed).To(Equal(2))
			Expect(reg.Len()).To(Equal(3))
			Expect(reg.Items()).To(Equal([]*Arbiter{arbs[0], arbs[2], arbs[4]}))
			Expect(arbPool.Available()).To(Equal(2))
		})

		It("releases each removed arbiter exactly once", func() {
			rel := &countingReleaser{released: map[*Arbiter]int{}}
			reg.RemoveAndReleaseZeroContact(rel)

			Expect(rel.released).To(HaveLen(2))
			Expect(rel.released[arbs[1]]).To(Equal(1))
			Expect(rel.released[arbs[3]]).To(Equal(1))
		})

		It("hands released arbiters back fully reset", func() {
			reg.RemoveAndReleaseZeroContact(arbPool)

			a := arbPool.Acquire()
			Expect(a.BodyA()).To(BeNil())
			Expect(a.BodyB()).To(BeNil())
			Expect(a.ContactCount()).To(BeZero())
		})

		It("is a no-op when every arbiter has contacts", func() {
			reg.RemoveAndReleaseZeroContact(arbPool)
			Expect(reg.RemoveAndReleaseZeroContact(arbPool)).To(BeZero())
			Expect(reg.Len()).To(Equal(3))
			Expect(arbPool.Available()).To(Equal(2))
		})
	})

	Describe("RemoveAndReleaseDisposedBody", func() {
		It("removes arbiters referencing a disposed body", func() {
			other := body.New(1, 1)
			survivor := withContacts(bodyB, other, 1)
			reg.Add(survivor)

			bodyA.Dispose()
			removed := reg.RemoveAndReleaseDisposedBody(arbPool)

			Expect(removed).To(Equal(5))
			Expect(reg.Items()).To(Equal([]*Arbiter{survivor}))
			Expect(arbPool.Available()).To(Equal(5))
		})
	})

	Describe("RemoveAllMatching", func() {
		It("resets matched arbiters without pooling them", func() {
			removed := reg.RemoveAllMatching(func(a *Arbiter) bool {
				return a.ContactCount() >= 2
			})

			Expect(removed).To(Equal(2))
			Expect(reg.Items()).To(Equal([]*Arbiter{arbs[0], arbs[1], arbs[3]}))
			Expect(arbs[2].BodyA()).To(BeNil())
			Expect(arbs[4].ContactCount()).To(BeZero())
			Expect(arbPool.Available()).To(BeZero())
		})

		It("allows a removed arbiter to be registered again", func() {
			reg.RemoveAllMatching(func(a *Arbiter) bool { return a == arbs[0] })
			Expect(reg.Add(arbs[0])).To(BeTrue())
			Expect(reg.At(reg.Len() - 1)).To(BeIdenticalTo(arbs[0]))
		})
	})

	Describe("Clear", func() {
		It("releases everything", func() {
			Expect(reg.Clear(arbPool)).To(Equal(5))
			Expect(reg.Len()).To(BeZero())
			Expect(arbPool.Available()).To(Equal(5))
		})
	})
})

var _ = Describe("Arbiter", func() {
	It("reports a disposed body on either side", func() {
		a, b := body.New(1, 1), body.New(1, 1)
		arb := New().Init(a, b)
		Expect(arb.ContainsDisposedBody()).To(BeFalse())

		b.Dispose()
		Expect(arb.ContainsDisposedBody()).To(BeTrue())
		Expect(arb.Involves(a)).To(BeTrue())
	})
})
