package awsadp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/a2a"
)

// SQSAPI is the subset of the SQS client used by SQSPushNotifier
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
}

var _ SQSAPI = (*sqs.Client)(nil)

// SQSPushNotifierConfig represents the configuration for SQSPushNotifier
type SQSPushNotifierConfig struct {
	Client    SQSAPI
	QueueURL  string
	QueueName string       // Resolved with GetQueueUrl when QueueURL is empty
	Logger    *slog.Logger // Optional logger, defaults to slog.Default()
}

// PushNotificationMessage is the body of every message sent by SQSPushNotifier.
// A consumer delivers Event to Config.URL the way tasklane.DefaultPushNotifier does.
type PushNotificationMessage struct {
	TaskID string                     `json:"taskId"`
	Config a2a.PushNotificationConfig `json:"config"`
	Event  a2a.TaskEvent              `json:"event"`
}

// SQSPushNotifier implements tasklane.PushNotifier by enqueueing notifications to SQS,
// so that delivery and its retries happen outside the request path.
type SQSPushNotifier struct {
	client   SQSAPI
	queueURL string
	fifo     bool
	logger   *slog.Logger
}

var _ tasklane.PushNotifier = (*SQSPushNotifier)(nil)

// NewSQSPushNotifier creates a new SQS-based push notifier
func NewSQSPushNotifier(ctx context.Context, config SQSPushNotifierConfig) (*SQSPushNotifier, error) {
	if config.Client == nil {
		return nil, errors.New("SQS Client is required")
	}
	queueURL := config.QueueURL
	if queueURL == "" && config.QueueName == "" {
		return nil, errors.New("either QueueURL or QueueName must be specified")
	}
	if queueURL == "" {
		result, err := config.Client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
			QueueName: aws.String(config.QueueName),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get queue URL for %s: %w", config.QueueName, err)
		}
		queueURL = aws.ToString(result.QueueUrl)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SQSPushNotifier{
		client:   config.Client,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
		logger:   logger,
	}, nil
}

// Notify enqueues the event. On a FIFO queue events of one task keep their order.
func (n *SQSPushNotifier) Notify(ctx context.Context, config a2a.PushNotificationConfig, event a2a.TaskEvent) error {
	body, err := json.Marshal(PushNotificationMessage{
		TaskID: event.TaskID(),
		Config: config,
		Event:  event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push notification: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"TaskID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.TaskID()),
			},
		},
	}
	if n.fifo {
		input.MessageGroupId = aws.String(event.TaskID())
		input.MessageDeduplicationId = aws.String(uuid.NewString())
	}
	if _, err := n.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send push notification to SQS: %w", err)
	}
	n.logger.DebugContext(ctx, "Enqueued push notification", "taskID", event.TaskID(), "url", config.URL)
	return nil
}

// ValidateEndpoint applies the same URL rules as HTTP delivery
func (n *SQSPushNotifier) ValidateEndpoint(ctx context.Context, config a2a.PushNotificationConfig) error {
	return (&tasklane.DefaultPushNotifier{}).ValidateEndpoint(ctx, config)
}

// Close gracefully shuts down the notifier
func (n *SQSPushNotifier) Close() error {
	return nil
}

// DeliverSQSEvent delivers the push notifications of an SQS Lambda event with notifier.
// Messages that fail are reported as batch item failures so that only they are retried;
// enable ReportBatchItemFailures on the event source mapping.
func DeliverSQSEvent(ctx context.Context, notifier tasklane.PushNotifier, event events.SQSEvent, logger *slog.Logger) events.SQSEventResponse {
	if logger == nil {
		logger = slog.Default()
	}
	var resp events.SQSEventResponse
	for _, record := range event.Records {
		if record.EventSource != "aws:sqs" {
			logger.WarnContext(ctx, "Skipping non-SQS event", "eventSource", record.EventSource)
			continue
		}
		var msg PushNotificationMessage
		if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
			// redelivery cannot fix a malformed body
			logger.ErrorContext(ctx, "Dropping malformed push notification message", "error", err, "messageID", record.MessageId)
			continue
		}
		if err := notifier.Notify(ctx, msg.Config, msg.Event); err != nil {
			logger.WarnContext(ctx, "Push notification delivery failed", "error", err, "taskID", msg.TaskID, "messageID", record.MessageId)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: record.MessageId,
			})
		}
	}
	return resp
}
