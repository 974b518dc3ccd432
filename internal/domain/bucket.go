package domain

import "math"

// Bucket is a labeled drive-time range. The set is closed: every float64
// classifies into exactly one bucket, BucketUnknown included.
type Bucket int

const (
	BucketUnder5 Bucket = iota
	Bucket5To10
	Bucket10To15
	Bucket15To20
	BucketOver20
	BucketUnknown
)

// Buckets lists every bucket in display order.
var Buckets = []Bucket{BucketUnder5, Bucket5To10, Bucket10To15, Bucket15To20, BucketOver20, BucketUnknown}

// Upper bounds (inclusive, minutes) of the finite buckets, aligned with Buckets.
var bucketUpperBounds = []float64{5, 10, 15, 20}

func (b Bucket) String() string {
	switch b {
	case BucketUnder5:
		return "<5min"
	case Bucket5To10:
		return "5-10min"
	case Bucket10To15:
		return "10-15min"
	case Bucket15To20:
		return "15-20min"
	case BucketOver20:
		return ">20min"
	case BucketUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// ClassifyMinutes maps a travel time onto the half-open intervals
// (-inf,5], (5,10], (10,15], (15,20], (20,+inf).
// NaN, infinities and negative values are BucketUnknown.
func ClassifyMinutes(m float64) Bucket {
	if math.IsNaN(m) || math.IsInf(m, 0) || m < 0 {
		return BucketUnknown
	}
	for i, upper := range bucketUpperBounds {
		if m <= upper {
			return Buckets[i]
		}
	}
	return BucketOver20
}

// Classify buckets an accessibility result; missing values are BucketUnknown.
func Classify(a Accessibility) Bucket {
	if !a.HasTime() {
		return BucketUnknown
	}
	return ClassifyMinutes(a.Minutes)
}

// Aggregated population for one bucket.
type BucketSummary struct {
	Bucket     Bucket
	Label      string
	Population int
	Units      int
	// Percent is the share of total population rounded to the nearest whole percent.
	Percent int
	Share   float64
}
