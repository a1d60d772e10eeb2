package observers

import (
	"sync"
	"time"

	"github.com/anggasct/crossroads"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// MetricsObserver collects metrics about intersection runs
type MetricsObserver struct {
	crossroads.BaseObserver

	crossingsByLane map[crossroads.Approach]int64
	rejectedByLane  map[crossroads.Approach]int64
	quadrantCounts  map[crossroads.Quadrant]int64
	holdDurations   map[crossroads.Quadrant][]time.Duration
	acquiredAt      map[int]time.Time
	occupancyPeak   map[crossroads.Approach]int
	inside          int
	maxInside       int
	errorCount      int64
	mutex           sync.RWMutex
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		crossingsByLane: make(map[crossroads.Approach]int64),
		rejectedByLane:  make(map[crossroads.Approach]int64),
		quadrantCounts:  make(map[crossroads.Quadrant]int64),
		holdDurations:   make(map[crossroads.Quadrant][]time.Duration),
		acquiredAt:      make(map[int]time.Time),
		occupancyPeak:   make(map[crossroads.Approach]int),
	}
}

// OnCrossing counts a crossing against its entry lane
func (o *MetricsObserver) OnCrossing(rec crossroads.Record) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.crossingsByLane[rec.In]++
}

// OnVehicleQueued tracks the peak occupancy of each lane buffer
func (o *MetricsObserver) OnVehicleQueued(lane crossroads.Approach, v *crossroads.Vehicle, occupancy int) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if occupancy > o.occupancyPeak[lane] {
		o.occupancyPeak[lane] = occupancy
	}
}

// OnQuadrantsAcquired counts quadrant use and starts the hold timer
func (o *MetricsObserver) OnQuadrantsAcquired(v *crossroads.Vehicle, path crossroads.Path) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	for _, q := range path {
		o.quadrantCounts[q]++
	}
	o.acquiredAt[v.ID()] = time.Now()
	o.inside++
	if o.inside > o.maxInside {
		o.maxInside = o.inside
	}
}

// OnQuadrantsReleased records how long each quadrant of path was held
func (o *MetricsObserver) OnQuadrantsReleased(v *crossroads.Vehicle, path crossroads.Path) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if start, ok := o.acquiredAt[v.ID()]; ok {
		held := time.Since(start)
		for _, q := range path {
			o.holdDurations[q] = append(o.holdDurations[q], held)
		}
		delete(o.acquiredAt, v.ID())
	}
	o.inside--
}

// OnVehicleRejected counts a dropped vehicle against its entry lane
func (o *MetricsObserver) OnVehicleRejected(v *crossroads.Vehicle, err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.rejectedByLane[v.In()]++
}

// OnError counts run-fatal errors
func (o *MetricsObserver) OnError(err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.errorCount++
}

// GetCrossings returns crossings per entry lane
func (o *MetricsObserver) GetCrossings() map[crossroads.Approach]int64 {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Assign(o.crossingsByLane)
}

// GetTotalCrossings returns the number of crossings on every lane
func (o *MetricsObserver) GetTotalCrossings() int64 {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Sum(lo.Values(o.crossingsByLane))
}

// GetRejected returns dropped vehicles per entry lane
func (o *MetricsObserver) GetRejected() map[crossroads.Approach]int64 {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Assign(o.rejectedByLane)
}

// GetQuadrantCounts returns how many crossings used each quadrant
func (o *MetricsObserver) GetQuadrantCounts() map[crossroads.Quadrant]int64 {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Assign(o.quadrantCounts)
}

// GetAverageHold returns the mean hold time of a quadrant
func (o *MetricsObserver) GetAverageHold(q crossroads.Quadrant) time.Duration {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	durations := o.holdDurations[q]
	if len(durations) == 0 {
		return 0
	}
	return lo.Sum(durations) / time.Duration(len(durations))
}

// GetMaxHold returns the longest hold time of a quadrant
func (o *MetricsObserver) GetMaxHold(q crossroads.Quadrant) time.Duration {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Max(o.holdDurations[q])
}

// GetHoldPercentile returns the p-th percentile (0-100) hold time of a quadrant
func (o *MetricsObserver) GetHoldPercentile(q crossroads.Quadrant, p float64) time.Duration {
	o.mutex.RLock()
	durations := slices.Clone(o.holdDurations[q])
	o.mutex.RUnlock()

	if len(durations) == 0 {
		return 0
	}
	slices.Sort(durations)
	idx := int(float64(len(durations)-1) * p / 100)
	return durations[lo.Clamp(idx, 0, len(durations)-1)]
}

// GetMaxConcurrent returns the largest number of vehicles inside the intersection at once
func (o *MetricsObserver) GetMaxConcurrent() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.maxInside
}

// GetPeakOccupancy returns the highest buffer occupancy seen on a lane
func (o *MetricsObserver) GetPeakOccupancy(lane crossroads.Approach) int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.occupancyPeak[lane]
}

// GetErrorCount returns the number of run-fatal errors
func (o *MetricsObserver) GetErrorCount() int64 {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.errorCount
}

// Reset clears all metrics
func (o *MetricsObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.crossingsByLane = make(map[crossroads.Approach]int64)
	o.rejectedByLane = make(map[crossroads.Approach]int64)
	o.quadrantCounts = make(map[crossroads.Quadrant]int64)
	o.holdDurations = make(map[crossroads.Quadrant][]time.Duration)
	o.acquiredAt = make(map[int]time.Time)
	o.occupancyPeak = make(map[crossroads.Approach]int)
	o.inside = 0
	o.maxInside = 0
	o.errorCount = 0
}
