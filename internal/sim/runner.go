package sim

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"prediagnosis/internal/core"
	"prediagnosis/pkg"
)

// Runner plays one full interview: it feeds collector answers into the
// workflow until the session terminates or the collector gives up.
type Runner struct {
	Workflow  *core.Workflow
	Collector core.ResponseCollector
	Recorder  *Recorder
	Log       *zap.Logger
}

type stepRecord struct {
	Step     int       `json:"step"`
	Phase    pkg.Phase `json:"phase"`
	Question string    `json:"question"`
	Reply    string    `json:"reply,omitempty"`
	Terminal bool      `json:"terminal"`
}

// Run drives the interview to completion and returns the final session
// status. A user abort (ErrQuit) is not an error; the partial status is
// returned alongside it so callers can still print progress.
func (r *Runner) Run(ctx context.Context) (pkg.SessionStatus, error) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	reply := ""
	first := true
	for {
		res, err := r.Workflow.ProcessTurn(ctx, reply)
		if err != nil {
			return r.Workflow.Status(), err
		}
		status := r.Workflow.Status()
		r.record("step", stepRecord{
			Step:     res.Step,
			Phase:    status.Phase,
			Question: res.Response,
			Reply:    reply,
			Terminal: res.Terminal,
		})
		if res.Terminal {
			log.Info("interview finished",
				zap.Int("steps", res.Step), zap.String("reason", string(res.Reason)))
			r.record("final_status", status)
			return status, nil
		}

		reply, err = r.Collector.Collect(ctx, res.Response, first)
		if err != nil {
			status := r.Workflow.Status()
			if errors.Is(err, ErrQuit) {
				log.Info("interview aborted by user", zap.Int("steps", status.Step))
				return status, err
			}
			return status, err
		}
		first = false
	}
}

func (r *Runner) record(event string, payload any) {
	if r.Recorder == nil {
		return
	}
	if err := r.Recorder.Write(event, payload); err != nil && r.Log != nil {
		r.Log.Warn("failed to write interview log", zap.Error(err))
	}
}
