package middleware

import (
	"context"

	"github.com/soyeahso/beacon/internal/domain"
	"github.com/soyeahso/beacon/internal/logging"
)

// Pipeline runs hooks sequentially in registration order. A hook error
// is logged and does not stop the remaining hooks or the cycle.
type Pipeline struct {
	list []Middleware
	log  *logging.Logger
}

func NewPipeline(log *logging.Logger, mws ...Middleware) *Pipeline {
	return &Pipeline{list: mws, log: log.Sub("middleware")}
}

// Add appends middlewares after the ones already registered.
func (p *Pipeline) Add(mws ...Middleware) {
	p.list = append(p.list, mws...)
}

// Len reports the number of registered middlewares.
func (p *Pipeline) Len() int { return len(p.list) }

// PreProcess runs every PreProcess hook and collects emitted events in
// registration order. Suppression is sticky: any hook asking for it
// suppresses the cycle's reply events.
func (p *Pipeline) PreProcess(ctx context.Context, input *domain.Input, cause Cause, s Surface) ([]domain.Event, bool) {
	var events []domain.Event
	suppress := false
	for _, mw := range p.list {
		res, err := mw.PreProcess(ctx, input, cause, s)
		if err != nil {
			p.log.Warn().Err(err).Msg("preProcess hook failed")
			continue
		}
		if res == nil {
			continue
		}
		if res.Event != nil {
			events = append(events, *res.Event)
		}
		if res.SuppressReply {
			suppress = true
		}
	}
	return events, suppress
}

func (p *Pipeline) PostProcess(ctx context.Context, input *domain.Input, cause Cause, s Surface) {
	for _, mw := range p.list {
		if err := mw.PostProcess(ctx, input, cause, s); err != nil {
			p.log.Warn().Err(err).Msg("postProcess hook failed")
		}
	}
}

func (p *Pipeline) PreFunctionCall(ctx context.Context, call FunctionCall, s Surface) []domain.Event {
	var events []domain.Event
	for _, mw := range p.list {
		res, err := mw.PreFunctionCall(ctx, call, s)
		if err != nil {
			p.log.Warn().Err(err).Str("action", call.Name).Msg("preFunctionCall hook failed")
			continue
		}
		if res != nil && res.Event != nil {
			events = append(events, *res.Event)
		}
	}
	return events
}

func (p *Pipeline) PostFunctionCall(ctx context.Context, call FunctionCallResult, s Surface) []domain.Event {
	var events []domain.Event
	for _, mw := range p.list {
		res, err := mw.PostFunctionCall(ctx, call, s)
		if err != nil {
			p.log.Warn().Err(err).Str("action", call.Name).Msg("postFunctionCall hook failed")
			continue
		}
		if res != nil && res.Event != nil {
			events = append(events, *res.Event)
		}
	}
	return events
}
