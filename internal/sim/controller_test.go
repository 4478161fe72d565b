package sim

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/integrators"
)

var _ = Describe("controller", func() {
	var ctl controller

	BeforeEach(func() {
		ctl = controller{}
	})

	It("grows by the maximum factor on an exact step", func() {
		Expect(ctl.factor(0)).To(Equal(facMax))
	})

	It("shrinks after a failed step", func() {
		f := ctl.factor(10)
		Expect(f).To(BeNumerically("<", 1))
		Expect(f).To(BeNumerically(">=", facMin))
	})

	It("never shrinks after a passed step", func() {
		for _, e := range []float64{1, 0.9, 0.5, 1e-3} {
			f := ctl.factor(e)
			Expect(f).To(BeNumerically(">=", 1))
			Expect(f).To(BeNumerically("<=", facMax))
		}
	})

	It("only remembers ratios of passed steps", func() {
		ctl.factor(0.5)
		prev := ctl.prevRatio
		ctl.factor(4)
		Expect(ctl.prevRatio).To(Equal(prev))
	})
})

var _ = Describe("errorRatio", func() {
	It("is zero for identical solutions", func() {
		a := filled(2, 3, 1.5)
		Expect(errorRatio(a, a.Clone(), 1e-6, 1e-6)).To(BeZero())
	})

	It("scales the difference by the mixed tolerance", func() {
		full := filled(1, 1, 1.0)
		half := filled(1, 1, 1.1)
		// |0.1| / (0.1 + 0·max) = 1.
		Expect(errorRatio(full, half, 0.1, 0)).To(BeNumerically("~", 1, 1e-12))
	})

	It("takes the worst block", func() {
		full := append(filled(1, 1, 0), filled(1, 1, 0)...)
		half := append(filled(1, 1, 0), filled(1, 1, 3)...)
		Expect(errorRatio(full, half, 1, 0)).To(BeNumerically("~", 3, 1e-12))
	})

	It("treats NaN as an unbounded error", func() {
		Expect(errorRatio(filled(1, 1, 0), filled(1, 1, math.NaN()), 1, 1)).To(Equal(math.Inf(1)))
	})
})

var _ = Describe("Simulator", func() {
	Context("with a step floor equal to the initial step", func() {
		It("force-accepts every step", func() {
			bm := tree(GinkgoT(), 1, 2, 1, 12)
			st, err := integrators.NewMilstein(linear(0.5, 1), bm, 0)
			Expect(err).NotTo(HaveOccurred())

			s := New(st, adaptive(0.05, 0.05, 1e-14, 1e-14))
			result, err := s.Run(context.Background(), filled(2, 1, 1), []float64{0, 0.5, 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Stats.Rejected).To(BeZero())
			Expect(result.Stats.Forced).To(Equal(result.Stats.Steps))
			Expect(result.Diagnostics).To(HaveLen(1))
			Expect(result.Diagnostics[0].Kind).To(Equal(dynamo.ToleranceUnmet))
		})

		It("rejects nothing when some steps pass", func() {
			bm := tree(GinkgoT(), 1, 2, 1, 12)
			st, err := integrators.NewMilstein(linear(0.5, 1), bm, 0)
			Expect(err).NotTo(HaveOccurred())

			s := New(st, adaptive(0.05, 0.05, 1e-2, 1e-2))
			result, err := s.Run(context.Background(), filled(2, 1, 1), []float64{0, 0.5, 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Stats.Rejected).To(BeZero())
			Expect(result.Stats.MaxStep).To(BeNumerically("<=", 0.05*(1+1e-9)))
		})
	})

	Context("with pre-integration diagnostics", func() {
		It("reports them in every result", func() {
			bm := tree(GinkgoT(), 1, 1, 1, 2)
			st, err := integrators.NewEuler(linear(0.5, 1), bm)
			Expect(err).NotTo(HaveOccurred())

			s := New(st, fixed(0.1))
			s.AddDiagnostic(dynamo.Diagnostic{Kind: dynamo.LowOrderAdaptive, Message: "test"})
			for i := 0; i < 2; i++ {
				result, err := s.Run(context.Background(), filled(1, 1, 1), []float64{0, 1})
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Diagnostics).To(HaveLen(1))
			}
		})
	})
})
