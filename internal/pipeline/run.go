package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"vidnotes/internal/logging"
	"vidnotes/internal/services"
)

// run tracks one Process call across stages.
type run struct {
	runner *Runner
	ctx    context.Context
	logger *slog.Logger
	result *Result
}

// stage executes fn as the named stage and records its StageResult. fn may
// return a custom success message; an empty one uses the stage's default.
func (r *run) stage(name string, fn func(ctx context.Context) (string, error)) error {
	stageCtx := services.WithStage(r.ctx, name)
	logger := logging.WithContext(stageCtx, r.runner.logger)
	info, _ := Describe(name)

	logger.Info(info.Progress, logging.String(logging.FieldEventType, "stage_start"))

	start := r.runner.now()
	message, err := fn(stageCtx)
	if err == nil && stageCtx.Err() != nil {
		err = services.Wrap(services.ErrTimeout, name, "run", "request cancelled", stageCtx.Err())
	}
	elapsed := r.runner.now().Sub(start)

	res := StageResult{Stage: name, Duration: elapsed}
	if err != nil {
		res.Status = StageFailed
		res.Error = strings.TrimSpace(err.Error())
		res.Kind = services.Kind(err)
		res.Message = info.Title + " failed"
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Duration("stage_duration", elapsed),
			logging.String("error_kind", res.Kind),
			logging.Error(err),
		)
	} else {
		res.Status = StageOK
		if message == "" {
			message = info.Done
		}
		res.Message = message
		logger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("stage_duration", elapsed),
			logging.String("status", message),
		)
	}

	sess := r.result.Session
	sess.Stages = append(sess.Stages, res)
	if err == nil {
		r.runner.persistUpdate(stageCtx, logger, sess)
	}
	return err
}

// skipRemaining records every stage that has not run as skipped.
func (r *run) skipRemaining() {
	sess := r.result.Session
	done := make(map[string]struct{}, len(sess.Stages))
	for _, st := range sess.Stages {
		done[st.Stage] = struct{}{}
	}
	for _, info := range stageInfos {
		if _, ok := done[info.Name]; ok {
			continue
		}
		sess.Stages = append(sess.Stages, StageResult{
			Stage:   info.Name,
			Status:  StageSkipped,
			Message: info.Title + " skipped",
		})
	}
}
