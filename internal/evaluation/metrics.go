package evaluation

// DERWeights scales the three error components of the diarization error rate.
type DERWeights struct {
	Miss       float64
	FalseAlarm float64
	Confusion  float64
}

var (
	// StandardWeights counts every error component once.
	StandardWeights = DERWeights{Miss: 1, FalseAlarm: 1, Confusion: 1}
	// NoMissWeights ignores reference speech the hypothesis left unlabelled.
	NoMissWeights = DERWeights{Miss: 0, FalseAlarm: 1, Confusion: 1}
)

// Components holds the durations (in seconds) behind a diarization error rate.
type Components struct {
	Total      float64
	Miss       float64
	FalseAlarm float64
	Confusion  float64
}

// Rate combines the components into an error rate. With no reference
// speech the rate is 0 when nothing was counted against the hypothesis and
// 1 otherwise.
func (c Components) Rate(w DERWeights) float64 {
	errs := w.Miss*c.Miss + w.FalseAlarm*c.FalseAlarm + w.Confusion*c.Confusion
	if c.Total == 0 {
		if errs == 0 {
			return 0
		}
		return 1
	}
	return errs / c.Total
}

// Diarization computes the error components under the one-to-one speaker
// mapping that maximises matched time.
func Diarization(ref, hyp Annotation) Components {
	refLabels, hypLabels := ref.Labels(), hyp.Labels()
	refIdx, hypIdx := index(refLabels), index(hypLabels)
	regs := regions(ref, hyp, refIdx, hypIdx)

	cooc := matrix(len(refLabels), len(hypLabels))
	for _, r := range regs {
		for _, i := range r.ref {
			for _, j := range r.hyp {
				cooc[i][j] += r.duration
			}
		}
	}
	mapping := assign(cooc)

	var c Components
	for _, r := range regs {
		nref, nhyp := len(r.ref), len(r.hyp)
		matched := 0
		for _, i := range r.ref {
			if mapping[i] >= 0 && containsInt(r.hyp, mapping[i]) {
				matched++
			}
		}
		c.Total += r.duration * float64(nref)
		c.Miss += r.duration * float64(max(0, nref-nhyp))
		c.FalseAlarm += r.duration * float64(max(0, nhyp-nref))
		c.Confusion += r.duration * float64(min(nref, nhyp)-matched)
	}
	return c
}

// DER is the diarization error rate with every component weighted once.
func DER(ref, hyp Annotation) float64 {
	return Diarization(ref, hyp).Rate(StandardWeights)
}

// DERNoMiss is the diarization error rate with missed speech ignored.
func DERNoMiss(ref, hyp Annotation) float64 {
	return Diarization(ref, hyp).Rate(NoMissWeights)
}

// JER is the Jaccard error rate: the mean over reference speakers of
// 1 - |ref ∩ hyp| / |ref ∪ hyp| under the mapping that maximises the total
// Jaccard index. Reference speakers left unmapped score 1.
func JER(ref, hyp Annotation) float64 {
	refLabels, hypLabels := ref.Labels(), hyp.Labels()
	if len(refLabels) == 0 {
		if len(hypLabels) == 0 {
			return 0
		}
		return 1
	}
	refIdx, hypIdx := index(refLabels), index(hypLabels)
	regs := regions(ref, hyp, refIdx, hypIdx)

	refDur := make([]float64, len(refLabels))
	hypDur := make([]float64, len(hypLabels))
	inter := matrix(len(refLabels), len(hypLabels))
	for _, r := range regs {
		for _, i := range r.ref {
			refDur[i] += r.duration
			for _, j := range r.hyp {
				inter[i][j] += r.duration
			}
		}
		for _, j := range r.hyp {
			hypDur[j] += r.duration
		}
	}

	jaccard := matrix(len(refLabels), len(hypLabels))
	for i := range jaccard {
		for j := range jaccard[i] {
			if union := refDur[i] + hypDur[j] - inter[i][j]; union > 0 {
				jaccard[i][j] = inter[i][j] / union
			}
		}
	}
	mapping := assign(jaccard)

	var sum float64
	for i, j := range mapping {
		score := 0.0
		if j >= 0 {
			score = jaccard[i][j]
		}
		sum += 1 - score
	}
	return sum / float64(len(refLabels))
}

func matrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
