// Package awsadp provides AWS adapters for tasklane interfaces.
//
// S3TaskStore: implements tasklane.TaskStore using AWS S3 conditional writes
// SQSPushNotifier: implements tasklane.PushNotifier by enqueueing to AWS SQS
// DeliverSQSEvent: delivers enqueued notifications from an SQS-triggered Lambda
//
// These adapters are compatible with minio and ElasticMQ for local development,
// allowing seamless transition between local and AWS environments.
package awsadp
