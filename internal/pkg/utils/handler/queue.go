package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/vgarvardt/gue/v5"
)

// Opts configures a job handler wrapper
type Opts[TM any] struct {
	timeout time.Duration
	failure func(context.Context, *TM, error) error
}

// Create wraps a typed pipeline func into a gue work func.
// There is no reschedule path: a handler error is final for the job,
// the configured failure func converts it into the failed-state flow.
func Create[TM any, SD any](data *SD, hf func(context.Context, *TM, *SD) error, opts *Opts[TM]) gue.WorkFunc {
	if opts == nil {
		goapp.Log.Panic().Msg("no opts provided")
	}
	return func(ctx context.Context, j *gue.Job) error {
		goapp.Log.Info().Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("got msg")

		var m TM
		err := json.Unmarshal(j.Args, &m)
		if err != nil {
			err = fmt.Errorf("could not unmarshal message: %w", err)
		} else {
			wrkCtx, cf := context.WithTimeout(ctx, opts.timeout)
			defer cf()
			err = hf(wrkCtx, &m, data)
			if err != nil {
				goapp.Log.Warn().Err(err).Str("queue", j.Queue).Str("type", j.Type).Msg("fail")
			}
		}
		if err == nil {
			return nil
		}
		if opts.failure == nil {
			goapp.Log.Warn().Str("queue", j.Queue).Str("type", j.Type).Msg("no failure handler")
			return nil
		}
		if errFail := opts.failure(ctx, &m, err); errFail != nil {
			goapp.Log.Error().Err(errFail).Str("queue", j.Queue).Str("type", j.Type).Msg("failure handler error")
			// keep the job for another failure dispatch try
			if j.ErrorCount < 5 {
				return errFail
			}
		}
		return nil
	}
}

// DefaultOpts returns opts with a 15 min job timeout and no failure handler
func DefaultOpts[TM any]() *Opts[TM] {
	return &Opts[TM]{timeout: time.Minute * 15}
}

// WithTimeout sets the job timeout
func (o *Opts[TM]) WithTimeout(timeout time.Duration) *Opts[TM] {
	o.timeout = timeout
	return o
}

// WithFailure sets the failure dispatch func
func (o *Opts[TM]) WithFailure(failure func(context.Context, *TM, error) error) *Opts[TM] {
	o.failure = failure
	return o
}
