package evaluation_test

import (
	"github.com/codebuildervaibhav/speaker-transcript/internal/evaluation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Timeline metrics", func() {
	It("scores identical timelines as perfect", func() {
		ref := evaluation.Annotation{{Start: 0, End: 10, Label: "a"}}
		hyp := evaluation.Annotation{{Start: 0, End: 10, Label: "x"}}
		Expect(evaluation.DER(ref, hyp)).To(BeNumerically("~", 0, 1e-9))
		Expect(evaluation.JER(ref, hyp)).To(BeNumerically("~", 0, 1e-9))
	})

	It("is invariant to hypothesis label names", func() {
		ref := evaluation.Annotation{{Start: 0, End: 4, Label: "a"}, {Start: 4, End: 10, Label: "b"}}
		hyp := evaluation.Annotation{{Start: 0, End: 4, Label: "y"}, {Start: 4, End: 10, Label: "x"}}
		Expect(evaluation.DER(ref, hyp)).To(BeNumerically("~", 0, 1e-9))
		Expect(evaluation.JER(ref, hyp)).To(BeNumerically("~", 0, 1e-9))
	})

	It("counts missed speech, except in the no-miss variant", func() {
		ref := evaluation.Annotation{{Start: 0, End: 10, Label: "a"}}
		hyp := evaluation.Annotation{{Start: 0, End: 8, Label: "x"}}
		c := evaluation.Diarization(ref, hyp)
		Expect(c.Total).To(BeNumerically("~", 10, 1e-9))
		Expect(c.Miss).To(BeNumerically("~", 2, 1e-9))
		Expect(evaluation.DER(ref, hyp)).To(BeNumerically("~", 0.2, 1e-9))
		Expect(evaluation.DERNoMiss(ref, hyp)).To(BeNumerically("~", 0, 1e-9))
		Expect(evaluation.JER(ref, hyp)).To(BeNumerically("~", 0.2, 1e-9))
	})

	It("counts false alarms", func() {
		ref := evaluation.Annotation{{Start: 0, End: 5, Label: "a"}}
		hyp := evaluation.Annotation{{Start: 0, End: 10, Label: "x"}}
		c := evaluation.Diarization(ref, hyp)
		Expect(c.FalseAlarm).To(BeNumerically("~", 5, 1e-9))
		Expect(evaluation.DER(ref, hyp)).To(BeNumerically("~", 1, 1e-9))
		Expect(evaluation.DERNoMiss(ref, hyp)).To(BeNumerically("~", 1, 1e-9))
	})

	It("counts confusion when two speakers are merged", func() {
		ref := evaluation.Annotation{{Start: 0, End: 5, Label: "a"}, {Start: 5, End: 10, Label: "b"}}
		hyp := evaluation.Annotation{{Start: 0, End: 10, Label: "x"}}
		c := evaluation.Diarization(ref, hyp)
		Expect(c.Confusion).To(BeNumerically("~", 5, 1e-9))
		Expect(evaluation.DER(ref, hyp)).To(BeNumerically("~", 0.5, 1e-9))
		// one speaker maps with Jaccard 0.5, the other is unmapped
		Expect(evaluation.JER(ref, hyp)).To(BeNumerically("~", 0.75, 1e-9))
	})

	It("finds the optimal mapping with more reference speakers than hypothesis speakers", func() {
		ref := evaluation.Annotation{
			{Start: 0, End: 3, Label: "a"},
			{Start: 3, End: 6, Label: "b"},
			{Start: 6, End: 10, Label: "c"},
		}
		hyp := evaluation.Annotation{{Start: 0, End: 6, Label: "x"}, {Start: 6, End: 10, Label: "y"}}
		Expect(evaluation.DER(ref, hyp)).To(BeNumerically("~", 0.3, 1e-9))
	})

	It("maps speakers by total shared time across all their turns", func() {
		// a shares 10s with y and 1s with x, so only [5, 6] is confused
		ref := evaluation.Annotation{
			{Start: 0, End: 5, Label: "a"},
			{Start: 5, End: 6, Label: "a"},
			{Start: 6, End: 11, Label: "b"},
			{Start: 11, End: 16, Label: "a"},
		}
		hyp := evaluation.Annotation{
			{Start: 0, End: 5, Label: "y"},
			{Start: 5, End: 11, Label: "x"},
			{Start: 11, End: 16, Label: "y"},
		}
		c := evaluation.Diarization(ref, hyp)
		Expect(c.Confusion).To(BeNumerically("~", 1, 1e-9))
	})

	Context("with an empty reference", func() {
		It("scores 0 against an empty hypothesis", func() {
			Expect(evaluation.DER(nil, nil)).To(Equal(0.0))
			Expect(evaluation.JER(nil, nil)).To(Equal(0.0))
		})

		It("scores 1 against any hypothesis speech", func() {
			hyp := evaluation.Annotation{{Start: 0, End: 1, Label: "x"}}
			Expect(evaluation.DER(nil, hyp)).To(Equal(1.0))
			Expect(evaluation.JER(nil, hyp)).To(Equal(1.0))
		})
	})
})
