package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const allMessageAttributes = "All"

// SQSAPI is the part of *sqs.Client used by SQSTransport.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

type SQSTransport struct {
	client SQSAPI
}

func NewSQSTransport(client SQSAPI) *SQSTransport {
	return &SQSTransport{
		client: client,
	}
}

// NewSQSClient builds a client from the default credential chain: env vars, shared config files, then the instance role.
func NewSQSClient(ctx context.Context, region string, endpoint string) (*sqs.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (st *SQSTransport) Receive(ctx context.Context, queueURL string, opts ReceiveOptions) ([]Message, error) {
	out, err := st.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(queueURL),
		MaxNumberOfMessages:   int32(opts.MaxMessages),
		WaitTimeSeconds:       int32(opts.WaitTime.Seconds()),
		VisibilityTimeout:     int32(opts.VisibilityTimeout.Seconds()),
		MessageAttributeNames: []string{allMessageAttributes},
	})
	if err != nil {
		return nil, fmt.Errorf("receive from %s: %w", queueURL, err)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		messages = append(messages, Message{
			MessageID:     aws.ToString(m.MessageId),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			Body:          aws.ToString(m.Body),
			Attributes:    fromSQSAttributes(m.MessageAttributes),
		})
	}
	return messages, nil
}

func (st *SQSTransport) Delete(ctx context.Context, queueURL string, receiptHandle string) error {
	_, err := st.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		var invalidHandle *sqstypes.ReceiptHandleIsInvalid
		if errors.As(err, &invalidHandle) {
			return fmt.Errorf("delete from %s: %w: %w", queueURL, ErrStaleReceipt, err)
		}
		return fmt.Errorf("delete from %s: %w", queueURL, err)
	}
	return nil
}

func (st *SQSTransport) Send(ctx context.Context, queueURL string, msg OutgoingMessage) error {
	_, err := st.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(queueURL),
		MessageBody:       aws.String(msg.Body),
		MessageAttributes: toSQSAttributes(msg.Attributes),
		DelaySeconds:      int32(msg.Delay.Seconds()),
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", queueURL, err)
	}
	return nil
}

func (st *SQSTransport) Depth(ctx context.Context, queueURL string) (int64, error) {
	out, err := st.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(queueURL),
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return 0, fmt.Errorf("get attributes of %s: %w", queueURL, err)
	}

	raw, ok := out.Attributes[string(sqstypes.QueueAttributeNameApproximateNumberOfMessages)]
	if !ok {
		return 0, nil
	}
	depth, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse queue depth %q: %w", raw, err)
	}
	return depth, nil
}

func fromSQSAttributes(in map[string]sqstypes.MessageAttributeValue) map[string]Attribute {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]Attribute, len(in))
	for name, v := range in {
		out[name] = Attribute{
			DataType:    aws.ToString(v.DataType),
			StringValue: aws.ToString(v.StringValue),
			BinaryValue: v.BinaryValue,
		}
	}
	return out
}

func toSQSAttributes(in map[string]Attribute) map[string]sqstypes.MessageAttributeValue {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]sqstypes.MessageAttributeValue, len(in))
	for name, v := range in {
		// SQS rejects an attribute carrying both values, or an empty one of the wrong kind
		attr := sqstypes.MessageAttributeValue{DataType: aws.String(v.DataType)}
		if v.BinaryValue != nil {
			attr.BinaryValue = v.BinaryValue
		} else {
			attr.StringValue = aws.String(v.StringValue)
		}
		out[name] = attr
	}
	return out
}
