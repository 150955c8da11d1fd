package orchestrator

import (
	"context"
	"fmt"
	"time"

	"careerscope/internal/types"
)

// pollLoop fetches the results resource on a fixed interval until it sees a
// terminal status or ctx is canceled. A single failed attempt is transient;
// only a consecutive streak past the configured budget is surfaced to the
// user, and even then polling keeps going so the run can still finish.
func (o *Orchestrator) pollLoop(ctx context.Context, r *run) {
	interval := o.cfg.Channels.Poll.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		o.metrics.PollAttempt()
		resp, err := o.backend.FetchResults(ctx, r.sessionID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			o.metrics.PollFailure()
			o.logger.Debug("Poll attempt failed",
				"session_id", r.sessionID, "consecutive", failures, "error", err.Error())
			if failures == o.cfg.Channels.Poll.FailureBudget {
				emit(ctx, r.events, inbound{source: "poll", msg: types.PushMessage{
					Type:    msgPollDegraded,
					Message: fmt.Sprintf("results polling failed %d times in a row: %v", failures, err),
				}})
			}
			continue
		}
		failures = 0

		for _, update := range resp.AgentProgress {
			emit(ctx, r.events, inbound{source: "poll", msg: types.PushMessage{
				Type:        types.MsgAgentUpdate,
				AgentName:   update.AgentName,
				Status:      update.Status,
				Progress:    update.Progress,
				CurrentStep: update.CurrentStep,
				Error:       update.Error,
			}})
		}

		switch resp.Status {
		case types.AnalysisCompleted:
			emit(ctx, r.events, inbound{
				source: "poll",
				msg:    types.PushMessage{Type: types.MsgAnalysisComplete, Success: true},
				result: resp.Result(),
			})
			return
		case types.AnalysisFailed:
			emit(ctx, r.events, inbound{source: "poll", msg: types.PushMessage{
				Type:    types.MsgAnalysisComplete,
				Success: false,
				Error:   resp.Error,
			}})
			return
		}
	}
}

func emit(ctx context.Context, events chan<- inbound, ev inbound) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
