package tasklane

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mashiike/tasklane/a2a"
	"github.com/mashiike/tasklane/transport"
)

// RemoteHandler runs tasks on a remote A2A agent and mirrors its progress
// into the local task. The remote task uses the local task id, so a continued
// send continues the remote task too.
type RemoteHandler struct {
	service transport.AgentService

	// Cached from the remote agent card
	card   *a2a.AgentCard
	cardMu sync.RWMutex
}

var _ Handler = (*RemoteHandler)(nil)

// NewRemoteHandler creates a RemoteHandler that talks to the agent at baseURL.
func NewRemoteHandler(baseURL string, opts ...transport.ClientOption) *RemoteHandler {
	return NewRemoteHandlerWithService(transport.NewClient(baseURL, opts...))
}

// NewRemoteHandlerWithService creates a RemoteHandler on top of any AgentService,
// e.g. a TaskManager in the same process.
func NewRemoteHandlerWithService(service transport.AgentService) *RemoteHandler {
	return &RemoteHandler{service: service}
}

// AgentCard retrieves and caches the remote agent card.
func (h *RemoteHandler) AgentCard(ctx context.Context) (*a2a.AgentCard, error) {
	h.cardMu.RLock()
	if h.card != nil {
		cached := h.card
		h.cardMu.RUnlock()
		return cached, nil
	}
	h.cardMu.RUnlock()

	card, err := h.service.GetAgentCard(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent card from remote agent: %w", err)
	}
	h.cardMu.Lock()
	h.card = card
	h.cardMu.Unlock()
	return card, nil
}

func (h *RemoteHandler) HandleTask(ctx context.Context, m TaskModifier) error {
	card, err := h.AgentCard(ctx)
	if err != nil {
		return err
	}
	params := a2a.TaskSendParams{
		ID:                  m.TaskID(),
		SessionID:           m.SessionID(),
		Message:             m.Message(),
		AcceptedOutputModes: m.AcceptedOutputModes(),
	}
	if !card.Capabilities.Streaming {
		return h.send(ctx, m, params)
	}

	events, err := h.service.SendTaskStreaming(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send task to remote agent: %w", err)
	}
	for ev := range events {
		switch {
		case ev.Artifact != nil:
			if err := m.UpsertArtifacts(ctx, ev.Artifact.Artifact); err != nil {
				return err
			}
		case ev.Status != nil:
			status := ev.Status.Status
			if status.State == a2a.TaskStateWorking && status.Message == nil && !ev.Status.Final {
				// the local task is already working
				continue
			}
			if err := m.SetStatus(ctx, status, ev.Status.Final); err != nil {
				return err
			}
			if ev.Status.Final {
				return nil
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.New("remote agent closed the stream before a final status")
}

// send mirrors the result of a non-streaming request.
func (h *RemoteHandler) send(ctx context.Context, m TaskModifier, params a2a.TaskSendParams) error {
	task, err := h.service.SendTask(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send task to remote agent: %w", err)
	}
	if err := m.UpsertArtifacts(ctx, task.Artifacts...); err != nil {
		return err
	}
	state := task.Status.State
	if state == a2a.TaskStateWorking {
		return fmt.Errorf("remote agent returned task %s still working", task.ID)
	}
	return m.SetStatus(ctx, task.Status, state.IsTerminal() || state == a2a.TaskStateInputRequired)
}
