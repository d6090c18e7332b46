// Package queue exports usage records to SQS so the billing pipeline can
// consume them out of band. Export is best effort and never blocks routing.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/pagecraft/ai-router/internal/domain"
)

type SQSExporter struct {
	client   *sqs.Client
	queueURL string
}

func NewSQSExporter(ctx context.Context, region, queueURL string) (*SQSExporter, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSQSExporterWithConfig(cfg, queueURL), nil
}

func NewSQSExporterWithConfig(cfg aws.Config, queueURL string) *SQSExporter {
	return &SQSExporter{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}
}

func (x *SQSExporter) Export(ctx context.Context, record domain.UsageRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal usage record: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(x.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"TenantID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(record.TenantID),
			},
			"RequestID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(record.RequestID),
			},
			"Date": {
				DataType:    aws.String("String"),
				StringValue: aws.String(record.Date),
			},
		},
	}

	if _, err := x.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send usage record: %w", err)
	}
	return nil
}
