package vitals

import "vitalguard/internal/models"

const defaultHistorySize = 20

// History bounded per-metric series; the oldest point is evicted first
type History struct {
	capacity int
	series   map[models.Metric][]models.VitalsPoint
}

// NewHistory creates an empty history holding capacity points per metric
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = defaultHistorySize
	}
	h := &History{
		capacity: capacity,
		series:   make(map[models.Metric][]models.VitalsPoint, len(models.Metrics)),
	}
	for _, m := range models.Metrics {
		h.series[m] = make([]models.VitalsPoint, 0, capacity)
	}
	return h
}

// Capacity points kept per metric
func (h *History) Capacity() int {
	return h.capacity
}

// Append adds one point per tracked metric
func (h *History) Append(s models.VitalsSample) {
	for _, m := range models.Metrics {
		p := models.VitalsPoint{Time: s.Timestamp, Value: s.Value(m)}
		pts := h.series[m]
		if len(pts) >= h.capacity {
			copy(pts, pts[1:])
			pts[len(pts)-1] = p
		} else {
			pts = append(pts, p)
		}
		h.series[m] = pts
	}
}

// Series returns a copy of one metric's points, oldest first
func (h *History) Series(m models.Metric) []models.VitalsPoint {
	pts := h.series[m]
	out := make([]models.VitalsPoint, len(pts))
	copy(out, pts)
	return out
}

// Len points currently held for m
func (h *History) Len(m models.Metric) int {
	return len(h.series[m])
}
