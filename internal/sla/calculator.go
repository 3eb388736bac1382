package sla

import (
	"fmt"
	"math"
	"sort"
	"time"

	"workitem-system/internal/entities"
)

// Calculator holds the configured aging-bucket boundaries. All methods are
// pure functions over a work item and a caller-supplied clock value.
type Calculator struct {
	boundaries []time.Duration
}

func NewCalculator(boundaries []time.Duration) *Calculator {
	bs := make([]time.Duration, len(boundaries))
	copy(bs, boundaries)
	sort.Slice(bs, func(i, j int) bool { return bs[i] < bs[j] })
	return &Calculator{boundaries: bs}
}

// Age is the time elapsed since the item was created.
func Age(item *entities.WorkItem, now time.Time) time.Duration {
	return now.Sub(item.CreatedAt)
}

// IsOverdue applies to requests only: the SLA due date has passed and the
// item has not reached a terminal status.
func IsOverdue(item *entities.WorkItem, now time.Time) bool {
	if item.Kind != entities.KindRequest {
		return false
	}
	if !item.SLADueDate.Valid {
		return false
	}
	if item.IsTerminal() {
		return false
	}
	return item.SLADueDate.Time.Before(now)
}

// AgingBucket returns a label for the first boundary the item's age falls
// under, e.g. "<8h", "8h-24h", ">120h".
func (c *Calculator) AgingBucket(item *entities.WorkItem, now time.Time) string {
	age := Age(item, now)
	for i, b := range c.boundaries {
		if age < b {
			if i == 0 {
				return fmt.Sprintf("<%s", formatHours(b))
			}
			return fmt.Sprintf("%s-%s", formatHours(c.boundaries[i-1]), formatHours(b))
		}
	}
	if len(c.boundaries) == 0 {
		return "all"
	}
	return fmt.Sprintf(">%s", formatHours(c.boundaries[len(c.boundaries)-1]))
}

// BucketLabels returns every label AgingBucket can produce, in order.
func (c *Calculator) BucketLabels() []string {
	if len(c.boundaries) == 0 {
		return []string{"all"}
	}
	labels := make([]string, 0, len(c.boundaries)+1)
	for i, b := range c.boundaries {
		if i == 0 {
			labels = append(labels, fmt.Sprintf("<%s", formatHours(b)))
			continue
		}
		labels = append(labels, fmt.Sprintf("%s-%s", formatHours(c.boundaries[i-1]), formatHours(b)))
	}
	return append(labels, fmt.Sprintf(">%s", formatHours(c.boundaries[len(c.boundaries)-1])))
}

// ClaimLatencyPercentile computes the nearest-rank percentile (no
// interpolation): the value at rank ceil(p*n) of the ascending-sorted
// samples. p is in (0,1]. Zero samples yield zero.
func ClaimLatencyPercentile(samples []time.Duration, p float64) time.Duration {
	n := len(samples)
	if n == 0 || p <= 0 {
		return 0
	}
	sorted := make([]time.Duration, n)
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := int(math.Ceil(p * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}

// AverageClaimLatency is the mean of assignedAt-createdAt over claimed items
// only; unclaimed items are skipped.
func AverageClaimLatency(items []*entities.WorkItem) time.Duration {
	var sum time.Duration
	var n int
	for _, item := range items {
		if !item.AssignedAt.Valid {
			continue
		}
		sum += item.AssignedAt.Time.Sub(item.CreatedAt)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / time.Duration(n)
}

// ClaimLatencies extracts the latency samples of claimed items.
func ClaimLatencies(items []*entities.WorkItem) []time.Duration {
	out := make([]time.Duration, 0, len(items))
	for _, item := range items {
		if item.AssignedAt.Valid {
			out = append(out, item.AssignedAt.Time.Sub(item.CreatedAt))
		}
	}
	return out
}

func formatHours(d time.Duration) string {
	h := d.Hours()
	if h == math.Trunc(h) {
		return fmt.Sprintf("%dh", int(h))
	}
	return fmt.Sprintf("%.1fh", h)
}
