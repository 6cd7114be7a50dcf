package utils

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// StepTiming holds timing information for a single step
type StepTiming struct {
	Name      string
	Label     string // e.g. the date being processed
	StartTime time.Time
	Duration  time.Duration
}

// StepAggregate holds aggregate timing information for a step
type StepAggregate struct {
	Count    int
	Total    time.Duration
	Average  time.Duration
	Min      time.Duration
	Max      time.Duration
	StepName string
}

// PerformanceTracker tracks execution times of the fetch, extract and
// write steps of every processed date.
type PerformanceTracker struct {
	steps      []*StepTiming
	aggregates map[string]*StepAggregate
	now        func() time.Time
	mu         sync.Mutex
}

func NewPerformanceTracker() *PerformanceTracker {
	return &PerformanceTracker{
		steps:      make([]*StepTiming, 0),
		aggregates: make(map[string]*StepAggregate),
		now:        time.Now,
	}
}

// StartStep begins timing a step and returns the function that ends it.
func (pt *PerformanceTracker) StartStep(name, label string) func() {
	step := &StepTiming{Name: name, Label: label, StartTime: pt.now()}
	return func() {
		pt.mu.Lock()
		defer pt.mu.Unlock()

		step.Duration = pt.now().Sub(step.StartTime)
		pt.steps = append(pt.steps, step)
		pt.updateAggregates(step)
	}
}

// Track times fn as one run of the named step.
func (pt *PerformanceTracker) Track(name, label string, fn func() error) error {
	end := pt.StartStep(name, label)
	defer end()
	return fn()
}

// Aggregate returns the aggregate for a step name.
func (pt *PerformanceTracker) Aggregate(name string) (StepAggregate, bool) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	agg, ok := pt.aggregates[name]
	if !ok {
		return StepAggregate{}, false
	}
	return *agg, true
}

// GenerateReport creates a formatted report listing every recorded step
func (pt *PerformanceTracker) GenerateReport() string {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("\n=== Performance Report ===\n")
	for _, step := range pt.steps {
		sb.WriteString(fmt.Sprintf("%s [%s]: %v\n", step.Name, step.Label, step.Duration.Round(time.Millisecond)))
	}
	return sb.String()
}

// updateAggregates must be called with mu held.
func (pt *PerformanceTracker) updateAggregates(step *StepTiming) {
	agg, exists := pt.aggregates[step.Name]
	if !exists {
		agg = &StepAggregate{
			StepName: step.Name,
			Min:      step.Duration,
			Max:      step.Duration,
		}
		pt.aggregates[step.Name] = agg
	}

	agg.Count++
	agg.Total += step.Duration
	agg.Average = agg.Total / time.Duration(agg.Count)

	if step.Duration < agg.Min {
		agg.Min = step.Duration
	}
	if step.Duration > agg.Max {
		agg.Max = step.Duration
	}
}

// GenerateAggregateReport generates an aggregate performance report
func (pt *PerformanceTracker) GenerateAggregateReport() string {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("\n=== Aggregate Performance Report ===\n")

	// Sort steps by total time
	var steps []*StepAggregate
	for _, agg := range pt.aggregates {
		steps = append(steps, agg)
	}
	sort.Slice(steps, func(i, j int) bool {
		if steps[i].Total == steps[j].Total {
			return steps[i].StepName < steps[j].StepName
		}
		return steps[i].Total > steps[j].Total
	})

	for _, agg := range steps {
		sb.WriteString(fmt.Sprintf(
			"Step: %s\n"+
				"  Count:   %d\n"+
				"  Total:   %v\n"+
				"  Average: %v\n"+
				"  Min:     %v\n"+
				"  Max:     %v\n",
			agg.StepName,
			agg.Count,
			agg.Total.Round(time.Millisecond),
			agg.Average.Round(time.Millisecond),
			agg.Min.Round(time.Millisecond),
			agg.Max.Round(time.Millisecond),
		))
	}

	return sb.String()
}
