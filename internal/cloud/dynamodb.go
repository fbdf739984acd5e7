package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

type itemStore interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Record is one reading in the table. deviceId is the partition key and
// timestamp (unix millis) the sort key.
type Record struct {
	DeviceID    string   `dynamodbav:"deviceId"`
	Timestamp   int64    `dynamodbav:"timestamp"`
	ReadingID   string   `dynamodbav:"readingId"`
	Kind        string   `dynamodbav:"kind"`
	TotalVolume *float64 `dynamodbav:"totalVolume,omitempty"`
	Reading     any      `dynamodbav:"reading"`
}

// DynamoSink stores readings in DynamoDB. It also seeds flow totals from the
// newest stored reading.
type DynamoSink struct {
	svc   itemStore
	table string
}

var (
	_ simulation.Sink        = (*DynamoSink)(nil)
	_ simulation.TotalSeeder = (*DynamoSink)(nil)
)

func NewDynamoSink(cfg aws.Config, table string) *DynamoSink {
	return &DynamoSink{svc: dynamodb.NewFromConfig(cfg), table: table}
}

func (s *DynamoSink) put(ctx context.Context, kind domain.DeviceKind, id string, ts time.Time, total *float64, reading any) error {
	item, err := attributevalue.MarshalMap(Record{
		DeviceID:    id,
		Timestamp:   ts.UnixMilli(),
		ReadingID:   uuid.NewString(),
		Kind:        string(kind),
		TotalVolume: total,
		Reading:     reading,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}
	_, err = s.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put item in DynamoDB: %w", err)
	}
	return nil
}

func (s *DynamoSink) SaveWeather(ctx context.Context, w domain.WeatherSample) error {
	return s.put(ctx, domain.KindWeatherStation, w.StationID, w.Timestamp, nil, w)
}

func (s *DynamoSink) SavePoleEnergy(ctx context.Context, r domain.PoleEnergyReading) error {
	return s.put(ctx, domain.KindPole, r.PoleID, r.Timestamp, nil, r)
}

func (s *DynamoSink) SavePowerMeterReading(ctx context.Context, r domain.PowerMeterReading) error {
	return s.put(ctx, domain.KindPowerMeter, r.MeterID, r.Timestamp, nil, r)
}

func (s *DynamoSink) SaveFlowMeterReading(ctx context.Context, r domain.FlowMeterReading) error {
	total := r.TotalVolume
	return s.put(ctx, domain.KindFlowMeter, r.MeterID, r.Timestamp, &total, r)
}

// LastTotal returns the cumulative total of the newest reading of meterID.
func (s *DynamoSink) LastTotal(ctx context.Context, meterID string) (float64, bool, error) {
	out, err := s.svc.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("deviceId = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: meterID},
		},
		ProjectionExpression: aws.String("totalVolume"),
		ScanIndexForward:     aws.Bool(false),
		Limit:                aws.Int32(1),
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to query DynamoDB: %w", err)
	}
	if len(out.Items) == 0 {
		return 0, false, nil
	}
	var rec struct {
		TotalVolume *float64 `dynamodbav:"totalVolume"`
	}
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		return 0, false, fmt.Errorf("failed to unmarshal reading: %w", err)
	}
	if rec.TotalVolume == nil {
		return 0, false, nil
	}
	return *rec.TotalVolume, true, nil
}
