package wizard

import (
	"context"
	"fmt"
	"sort"

	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	"github.com/alexisbeaulieu97/stepwise/internal/ports"
)

func (c *Controller) emitStepEntered(ctx context.Context, stepID, previousID string) {
	payload := c.payload()
	payload["step_id"] = stepID
	payload["previous_step_id"] = previousID
	c.emit(ctx, ports.EventStepEntered, payload)
}

func (c *Controller) emitCompleted(ctx context.Context, lastStepID string) {
	payload := c.payload()
	payload["last_step_id"] = lastStepID
	payload["visited"] = len(c.state.Visited)
	c.emit(ctx, ports.EventWizardCompleted, payload)
}

func (c *Controller) payload() map[string]interface{} {
	payload := copyAttributes(c.attrs)
	payload["timestamp"] = c.now().UTC()
	return payload
}

// emit hands the event to the sink after state has been committed. Sink
// failures never reach the caller.
func (c *Controller) emit(ctx context.Context, eventName string, payload map[string]interface{}) {
	if c.sink == nil {
		return
	}
	c.emitting = true
	defer func() {
		c.emitting = false
		if r := recover(); r != nil {
			c.logger.Warn(ctx, "journey sink panicked", "event_type", eventName, "error", fmt.Sprint(r))
		}
	}()
	c.sink.Emit(ctx, eventName, payload)
}

func (c *Controller) notify(ctx context.Context) {
	if len(c.observers) == 0 {
		return
	}
	ids := make([]int, 0, len(c.observers))
	for id := range c.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		fn, ok := c.observers[id]
		if !ok {
			continue
		}
		c.notifyOne(ctx, fn, c.state.Clone())
	}
}

func (c *Controller) notifyOne(ctx context.Context, fn func(domain.State), state domain.State) {
	c.emitting = true
	defer func() {
		c.emitting = false
		if r := recover(); r != nil {
			c.logger.Warn(ctx, "state observer panicked", "error", fmt.Sprint(r))
		}
	}()
	fn(state)
}
