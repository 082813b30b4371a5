package operations

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"contactsift/internal/infrastructure"
	"contactsift/pkg/contracts/domain"
)

// Manager runs sift operations. It holds no per-run state and is safe for
// concurrent use; every Execute call builds its own steps and resolver.
type Manager struct {
	tracer *OperationTracer
	logger *slog.Logger
}

// NewManager creates a manager. A nil tracer records spans on the global
// tracer provider and no metrics.
func NewManager(tracer *OperationTracer, logger *slog.Logger) *Manager {
	if tracer == nil {
		tracer, _ = NewOperationTracer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		tracer: tracer,
		logger: logger.With(slog.String("component", "operations")),
	}
}

// Execute runs the steps for req in order. Skipped steps add their
// condition to the state and the run continues. A failing step aborts the
// run and the returned state records the failure.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationState, error) {
	if req.Dataset == nil {
		return nil, NewValidationError("operation request has no dataset")
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	ctx = infrastructure.WithRunID(infrastructure.EnsureTraceID(ctx), req.ID)

	steps := BuildSteps(req)
	for _, s := range steps {
		if l, ok := s.(interface{ SetLogger(*slog.Logger) }); ok {
			l.SetLogger(m.logger)
		}
	}

	state := NewOperationState(req.ID, req.Dataset)
	for _, s := range steps {
		state.AddStep(NewStepState(s.ID(), s.Name()))
	}
	if req.Dataset.Empty() {
		state.Report(domain.Condition{
			Severity: domain.SeverityInfo,
			Code:     domain.CondEmptyDataset,
			Message:  "The uploaded sheet has no data rows",
		})
	}

	ctx, span := m.tracer.TraceOperationExecution(ctx, req)
	m.logOperationStart(ctx, req, steps)
	state.Start()

	err := m.executeSequential(ctx, state, steps)
	if err != nil {
		state.Fail(err)
		m.logOperationError(ctx, state.ID, err)
	} else {
		state.Complete()
		m.logOperationComplete(ctx, state)
	}
	m.tracer.RecordOperationCompletion(ctx, span, state)

	return state, err
}

// executeSequential executes steps one by one
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	for _, step := range steps {
		select {
		case <-ctx.Done():
			m.logger.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			return NewCancellationError(step.ID(), ctx.Err())
		default:
		}

		if err := m.executeStage(ctx, state, step); err != nil {
			return err
		}
	}
	return nil
}

// executeStage runs one step and records its outcome
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		stepState = NewStepState(step.ID(), step.Name())
		state.AddStep(stepState)
	}

	stageCtx, span := m.tracer.TraceStageExecution(ctx, state.ID, step.ID())
	m.logStageStart(stageCtx, state.ID, step.ID())
	stepState.Start()

	start := time.Now()
	err := step.Execute(stageCtx, state)
	duration := time.Since(start)

	var skip *SkipError
	switch {
	case err == nil:
		msg := ""
		if s, ok := step.(interface{ Summary(*OperationState) string }); ok {
			msg = s.Summary(state)
		}
		stepState.Complete(msg)
		m.logStageComplete(stageCtx, state.ID, step.ID(), duration)
		m.tracer.RecordStageCompletion(stageCtx, span, step.ID(), StepStatusCompleted, duration, nil)
		return nil

	case errors.As(err, &skip):
		cond := skip.Condition
		stepState.Skip(cond.Message, &cond)
		state.Report(cond)
		m.logStageSkipped(stageCtx, state.ID, step.ID(), skip)
		m.tracer.RecordStageCompletion(stageCtx, span, step.ID(), StepStatusSkipped, duration, err)
		return nil

	default:
		stepState.Fail(err)
		m.logStageError(stageCtx, state.ID, step.ID(), err)
		m.tracer.RecordStageCompletion(stageCtx, span, step.ID(), StepStatusFailed, duration, err)
		if ctx.Err() != nil {
			return NewCancellationError(step.ID(), err)
		}
		return NewExecutionError(step.ID(), err)
	}
}
