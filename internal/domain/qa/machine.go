package qa

import (
	"github.com/anggasct/fluo"
)

// advancePayload is the event data the stage gate evaluates. The unresolved
// critical count is computed case-wide before the event is fired.
type advancePayload struct {
	UnresolvedCritical int
}

// stageDefinition is the forward-only QA workflow: each stage has exactly one
// advance edge to its successor, guarded on the case having no unresolved
// critical issues, and a reject edge to the terminal rejected state.
var stageDefinition = buildStageDefinition()

func buildStageDefinition() fluo.MachineDefinition {
	gate := func(ctx fluo.Context) bool {
		payload, ok := ctx.GetEventData().(advancePayload)
		if !ok {
			return false
		}
		return payload.UnresolvedCritical == 0
	}

	builder := fluo.NewMachine()
	for i, stage := range Stages {
		sb := builder.State(stage)
		if i == 0 {
			sb = sb.Initial()
		}
		if i < len(Stages)-1 {
			sb.To(Stages[i+1]).On("advance").When(gate).
				To(StageRejected).On("reject")
		} else {
			sb.To(StageRejected).On("reject")
		}
	}
	builder.State(StageRejected).Final()
	return builder.Build()
}

// newStageMachine returns a machine instance positioned at the given stage.
func newStageMachine(currentStage string) (fluo.Machine, error) {
	m := stageDefinition.CreateInstance()
	if err := m.Start(); err != nil {
		return nil, err
	}
	if currentStage != Stages[0] {
		if err := m.SetState(currentStage); err != nil {
			return nil, err
		}
	}
	return m, nil
}
