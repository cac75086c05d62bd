// Command tasklane serves an echo agent over A2A, or proxies to a remote agent,
// with the task store and push delivery chosen by flags.
//
// Every flag can also be set through the environment (e.g. TASKLANE_STORE=redis).
// On the AWS Lambda runtime, -mode=push-worker consumes the SQS queue filled by
// -push=sqs and delivers the notifications over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/awsadp"
	"github.com/mashiike/tasklane/transport"
)

var version = "current"

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(newLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Mode {
	case "push-worker":
		err = runPushWorker(ctx)
	default:
		err = runServer(ctx, cfg)
	}
	if err != nil {
		slog.Error("tasklane stopped", "error", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context, cfg *config) error {
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	var agent tasklane.Handler = tasklane.HandlerFunc(echo)
	if cfg.RemoteURL != "" {
		agent = tasklane.NewRemoteHandler(cfg.RemoteURL)
	}

	manager := tasklane.NewTaskManager(b.Store, agent)
	manager.Logger = slog.Default()
	if b.EventQueue != nil {
		manager.EventQueue = b.EventQueue
	}
	if b.PushNotifier != nil {
		manager.PushNotifier = b.PushNotifier
	}
	if b.TaskLocker != nil {
		manager.TaskLocker = b.TaskLocker
	}
	manager.Card.Name = cfg.Name
	manager.Card.Version = version
	manager.Card.Capabilities.PushNotifications = cfg.Push != ""

	server := &tasklane.Server{
		Addr:    cfg.Addr,
		Manager: manager,
		Store:   b.Store,
		Logger:  slog.Default(),
	}
	server.Authenticator = newAuthenticator(cfg)
	server.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, "OK")
	})
	server.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, version)
	})
	return server.RunWithContext(ctx)
}

// runPushWorker is the Lambda consumer of awsadp.SQSPushNotifier messages
func runPushWorker(ctx context.Context) error {
	notifier := tasklane.NewDefaultPushNotifier()
	defer notifier.Close()
	lambda.StartWithOptions(func(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
		return awsadp.DeliverSQSEvent(ctx, notifier, event, slog.Default()), nil
	}, lambda.WithContext(ctx))
	return nil
}

// newAuthenticator returns nil when neither API keys nor a JWT secret is configured.
func newAuthenticator(cfg *config) transport.Authenticator {
	var auths []transport.Authenticator
	if len(cfg.APIKeys) > 0 {
		auths = append(auths, tasklane.StaticAPIKeyAuthenticator{Keys: cfg.APIKeys})
	}
	if cfg.JWTSecret != "" {
		auths = append(auths, tasklane.NewJWTAuthenticator([]byte(cfg.JWTSecret)))
	}
	switch len(auths) {
	case 0:
		return nil
	case 1:
		return auths[0]
	default:
		return transport.AnyOf(auths...)
	}
}

func newLogger(cfg *config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
