package main

import (
	"context"
	"strings"

	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/a2a"
)

// echo answers with the text of the request. An empty request asks for input.
func echo(ctx context.Context, m tasklane.TaskModifier) error {
	msg := m.Message()
	text := strings.TrimSpace(a2a.TextOf(&msg))
	if text == "" {
		ask := a2a.NewTextMessage(a2a.RoleAgent, "say something to echo")
		return m.SetStatus(ctx, a2a.TaskStatus{State: a2a.TaskStateInputRequired, Message: &ask}, true)
	}
	if err := m.UpsertArtifacts(ctx, a2a.Artifact{
		Name:  "echo",
		Index: 0,
		Parts: []a2a.Part{a2a.NewTextPart(text)},
	}); err != nil {
		return err
	}
	reply := a2a.NewTextMessage(a2a.RoleAgent, "echo: "+text)
	return m.SetStatus(ctx, a2a.TaskStatus{State: a2a.TaskStateCompleted, Message: &reply}, true)
}
