package tasklane

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mashiike/tasklane/a2a"
)

//go:generate go tool mockgen -source=push_notifier.go -destination=mock_push_notifier_test.go -package=tasklane

// PushNotifier delivers task events to the endpoint a client registered for a task.
type PushNotifier interface {
	Notify(ctx context.Context, config a2a.PushNotificationConfig, event a2a.TaskEvent) error

	// ValidateEndpoint vets a config before it is stored on a task.
	ValidateEndpoint(ctx context.Context, config a2a.PushNotificationConfig) error

	Close() error
}

const (
	defaultPushUserAgent    = "tasklane-push/1.0"
	notificationTokenHeader = "X-A2A-Notification-Token"
	// bytes of an error response kept in PushNotificationError.Body
	maxPushErrorBody = 512
)

// DefaultPushNotifier POSTs each event as a JSON body to config.URL.
//
// Credentials in config.Authentication go into the Authorization header under the
// first scheme listed (bearer when none is), and config.Token is echoed in
// X-A2A-Notification-Token so the receiver can match the notification to its task.
type DefaultPushNotifier struct {
	Client    *http.Client
	UserAgent string
}

func NewDefaultPushNotifier() *DefaultPushNotifier {
	return &DefaultPushNotifier{
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (n *DefaultPushNotifier) Notify(ctx context.Context, config a2a.PushNotificationConfig, event a2a.TaskEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode push notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build push notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", cmp.Or(n.UserAgent, defaultPushUserAgent))
	if authorization := authorizationHeader(config.Authentication); authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	if config.Token != "" {
		req.Header.Set(notificationTokenHeader, config.Token)
	}

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver push notification for task %s: %w", event.TaskID(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxPushErrorBody))
		return &PushNotificationError{
			StatusCode: resp.StatusCode,
			URL:        config.URL,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func authorizationHeader(info *a2a.PushNotificationAuthenticationInfo) string {
	if info == nil || info.Credentials == "" {
		return ""
	}
	scheme := "Bearer"
	if len(info.Schemes) > 0 && !strings.EqualFold(info.Schemes[0], "bearer") {
		scheme = info.Schemes[0]
	}
	return scheme + " " + info.Credentials
}

// ValidateEndpoint accepts absolute http and https URLs.
func (n *DefaultPushNotifier) ValidateEndpoint(ctx context.Context, config a2a.PushNotificationConfig) error {
	u, err := url.Parse(config.URL)
	if err != nil {
		return fmt.Errorf("invalid push notification url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid push notification url %q: must be an absolute http(s) url", config.URL)
	}
	return nil
}

func (n *DefaultPushNotifier) Close() error {
	if n.Client != nil {
		n.Client.CloseIdleConnections()
	}
	return nil
}

// PushNotificationError is a non-2xx answer from a push endpoint.
type PushNotificationError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *PushNotificationError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("push endpoint %s answered HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("push endpoint %s answered HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}
