package services

import (
	"drivetime-accessibility/internal/domain"
	"math"
	"sort"
)

// AggregateBuckets sums population per drive-time bucket.
//
// Every bucket is present, in display order, even when empty. Units without a
// valid time count toward BucketUnknown, so the bucket populations always add
// up to the input population and percentages are taken over that total.
func AggregateBuckets(results []domain.Accessibility) []domain.BucketSummary {
	out := make([]domain.BucketSummary, len(domain.Buckets))
	for i, b := range domain.Buckets {
		out[i] = domain.BucketSummary{Bucket: b, Label: b.String()}
	}

	total := 0
	for _, r := range results {
		b := domain.Classify(r)
		out[b].Population += r.Population
		out[b].Units++
		total += r.Population
	}

	if total == 0 {
		return out
	}
	for i := range out {
		out[i].Share = float64(out[i].Population) / float64(total)
		out[i].Percent = int(math.Floor(out[i].Share*100 + 0.5))
	}
	return out
}

// WaffleCells apportions cells among the buckets in proportion to their
// population using the largest-remainder method, so the counts always sum to
// cells when there is any population at all.
func WaffleCells(summaries []domain.BucketSummary, cells int) []int {
	out := make([]int, len(summaries))
	total := 0
	for _, s := range summaries {
		total += s.Population
	}
	if total == 0 || cells <= 0 {
		return out
	}

	type remainder struct {
		idx  int
		frac float64
	}
	rems := make([]remainder, len(summaries))
	assigned := 0
	for i, s := range summaries {
		exact := float64(s.Population) * float64(cells) / float64(total)
		out[i] = int(math.Floor(exact))
		assigned += out[i]
		rems[i] = remainder{idx: i, frac: exact - float64(out[i])}
	}

	sort.SliceStable(rems, func(a, b int) bool { return rems[a].frac > rems[b].frac })
	for k := 0; assigned < cells; k++ {
		out[rems[k%len(rems)].idx]++
		assigned++
	}
	return out
}
