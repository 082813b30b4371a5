package operations

import (
	"sync"
	"time"

	"contactsift/internal/dataprocessing"
	"contactsift/internal/gender"
	"contactsift/pkg/contracts/domain"
)

// OperationStatus is the overall status of a run
type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusFailed    OperationStatus = "failed"
)

// OperationState carries one run's data between steps. Steps run in
// sequence on a single goroutine; the mutex guards readers such as the
// HTTP layer that inspect state after the run.
type OperationState struct {
	mu sync.RWMutex

	ID        string          `json:"id"`
	Status    OperationStatus `json:"status"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	Steps     []*StepState    `json:"steps"`
	Error     error           `json:"-"`

	// Working is the dataset later steps see. Tagging before filtering
	// replaces it with the tagged copy.
	Working *domain.Dataset `json:"-"`
	// Partition is set by the filter step. Until then Remaining is Working.
	Partition dataprocessing.Partition `json:"-"`
	// Filtered reports whether the filter step classified the rows
	Filtered bool `json:"filtered"`
	// Tagged is "all" when every row carries a gender label, "matched" when
	// only the matched subset does and "" when tagging did not run.
	Tagged      string            `json:"tagged,omitempty"`
	Conditions  domain.Conditions `json:"conditions"`
	GenderStats gender.Stats      `json:"gender_stats"`
}

// Tagging scopes recorded in OperationState.Tagged
const (
	TaggedAll     = "all"
	TaggedMatched = "matched"
)

// NewOperationState creates the state for a run over ds
func NewOperationState(id string, ds *domain.Dataset) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Working:   ds,
		Partition: dataprocessing.Partition{
			Matched:     ds.Subset(nil),
			Remaining:   ds,
			MatchedRows: []int{},
		},
		Conditions: domain.Conditions{},
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// AddStep registers a step state in run order
func (p *OperationState) AddStep(s *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps = append(p.Steps, s)
}

// GetStage returns the state of the step with the given ID
func (p *OperationState) GetStage(id string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Report records a condition
func (p *OperationState) Report(c domain.Condition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Conditions.Add(c)
}

// Duration returns the run duration so far
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}
