package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

var tick = simulation.TickResult{
	Timestamp: time.Date(2025, 6, 30, 23, 59, 0, 0, time.UTC),
	Weather:   domain.WeatherSample{StationID: "WS001"},
	FlowReadings: []domain.FlowMeterReading{
		{MeterID: "FM001", FlowRate: 12},
		{MeterID: "FM002", FlowRate: 30, AtCapacity: true},
	},
	Skipped: []simulation.Skipped{
		{Kind: domain.KindPowerMeter, DeviceID: "PM003", Reason: "inactive"},
		{Kind: domain.KindFlowMeter, DeviceID: "FM003", Reason: "unsupported_type"},
	},
	Lost: 2,
}

type fakeS3 struct {
	in  *s3.PutObjectInput
	err error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	return &s3.PutObjectOutput{}, f.err
}

func TestS3ArchiverUploadsTick(t *testing.T) {
	fake := &fakeS3{}
	a := &S3Archiver{svc: fake, bucket: "city-lake", prefix: "ticks", log: zerolog.Nop()}

	key, err := a.Archive(context.Background(), tick)
	if err != nil {
		t.Fatal(err)
	}
	if key != "ticks/2025/06/30/235900.json" || aws.ToString(fake.in.Key) != key {
		t.Fatalf("key %s", key)
	}
	if aws.ToString(fake.in.Bucket) != "city-lake" {
		t.Fatalf("bucket %s", aws.ToString(fake.in.Bucket))
	}
	body, _ := io.ReadAll(fake.in.Body)
	var back simulation.TickResult
	if err := json.Unmarshal(body, &back); err != nil || len(back.FlowReadings) != 2 || back.Lost != 2 {
		t.Fatalf("archived body %s: %v", body, err)
	}

	fake.err = errors.New("access denied")
	if _, err := a.Archive(context.Background(), tick); !errors.Is(err, fake.err) {
		t.Fatalf("want upload error, got %v", err)
	}
	a.ObserveTick(context.Background(), tick)
}

type fakeSNS struct {
	inputs []*sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func TestTickAlerts(t *testing.T) {
	alerts := TickAlerts(tick)
	want := []string{
		"flow_meter FM003 skipped: unsupported_type",
		"flow meter FM002 at max flow rate (30.00)",
		"2 readings could not be stored",
	}
	if len(alerts) != len(want) {
		t.Fatalf("alerts %q", alerts)
	}
	for i := range want {
		if alerts[i] != want[i] {
			t.Errorf("alert %d: want %q, got %q", i, want[i], alerts[i])
		}
	}
	if got := TickAlerts(simulation.TickResult{}); len(got) != 0 {
		t.Fatalf("quiet tick raised %q", got)
	}
}

func TestSNSNotifier(t *testing.T) {
	fake := &fakeSNS{}
	n := &SNSNotifier{svc: fake, topicArn: "arn:aws:sns:eu-west-1:1:city", log: zerolog.Nop()}

	n.ObserveTick(context.Background(), simulation.TickResult{})
	if len(fake.inputs) != 0 {
		t.Fatal("published without alerts")
	}
	n.ObserveTick(context.Background(), tick)
	if len(fake.inputs) != 1 {
		t.Fatalf("published %d messages", len(fake.inputs))
	}
	in := fake.inputs[0]
	if aws.ToString(in.Subject) != "Smart City: 3 Alerts" || !strings.Contains(aws.ToString(in.Message), "2. flow meter FM002") {
		t.Fatalf("subject %q message %q", aws.ToString(in.Subject), aws.ToString(in.Message))
	}

	next := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	if err := n.SendMaintenanceAlert(context.Background(), "SP001", 42.5, next); err != nil {
		t.Fatal(err)
	}
	if msg := aws.ToString(fake.inputs[1].Message); !strings.Contains(msg, "SP001") || !strings.Contains(msg, "2025-09-01") {
		t.Fatalf("maintenance message %q", msg)
	}
}

type fakeDynamo struct {
	items []map[string]types.AttributeValue
	query *dynamodb.QueryInput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.items = append(f.items, in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// Query returns the newest stored item for the requested device.
func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.query = in
	id := in.ExpressionAttributeValues[":id"].(*types.AttributeValueMemberS).Value
	for i := len(f.items) - 1; i >= 0; i-- {
		if v, ok := f.items[i]["deviceId"].(*types.AttributeValueMemberS); ok && v.Value == id {
			return &dynamodb.QueryOutput{Items: f.items[i : i+1]}, nil
		}
	}
	return &dynamodb.QueryOutput{}, nil
}

func TestDynamoSink(t *testing.T) {
	fake := &fakeDynamo{}
	s := &DynamoSink{svc: fake, table: "SmartCityReadings"}
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if _, ok, err := s.LastTotal(ctx, "FM001"); ok || err != nil {
		t.Fatalf("empty table: %v %v", ok, err)
	}
	if err := s.SavePowerMeterReading(ctx, domain.PowerMeterReading{MeterID: "PM001", Timestamp: ts, PowerW: 900}); err != nil {
		t.Fatal(err)
	}
	for i, total := range []float64{100, 150} {
		r := domain.FlowMeterReading{MeterID: "FM001", Timestamp: ts.Add(time.Duration(i) * time.Minute), TotalVolume: total}
		if err := s.SaveFlowMeterReading(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	var rec struct {
		DeviceID  string `dynamodbav:"deviceId"`
		Timestamp int64  `dynamodbav:"timestamp"`
		ReadingID string `dynamodbav:"readingId"`
		Kind      string `dynamodbav:"kind"`
	}
	if err := attributevalue.UnmarshalMap(fake.items[0], &rec); err != nil {
		t.Fatal(err)
	}
	if rec.DeviceID != "PM001" || rec.Kind != "power_meter" || rec.Timestamp != ts.UnixMilli() || rec.ReadingID == "" {
		t.Fatalf("record %+v", rec)
	}
	if _, ok := fake.items[0]["totalVolume"]; ok {
		t.Fatal("power reading carries a flow total")
	}

	total, ok, err := s.LastTotal(ctx, "FM001")
	if err != nil || !ok || total != 150 {
		t.Fatalf("last total %v %v %v", total, ok, err)
	}
	if aws.ToBool(fake.query.ScanIndexForward) || aws.ToInt32(fake.query.Limit) != 1 {
		t.Fatal("query must read newest item only")
	}
}

type fakeLambda struct {
	calls []*lambda.InvokeInput
}

func (f *fakeLambda) Invoke(_ context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.calls = append(f.calls, in)
	return &lambda.InvokeOutput{StatusCode: 202}, nil
}

func TestAnalyticsTriggerOnDayRollover(t *testing.T) {
	fake := &fakeLambda{}
	tr := &AnalyticsTrigger{svc: fake, function: "analytics-processing", log: zerolog.Nop()}
	ctx := context.Background()

	day1 := tick
	day1.PowerReadings = []domain.PowerMeterReading{{MeterID: "PM002"}}
	late := tick
	late.Timestamp = tick.Timestamp.Add(30 * time.Second)
	late.PowerReadings = []domain.PowerMeterReading{{MeterID: "PM001"}, {MeterID: "PM002"}}
	day2 := tick
	day2.Timestamp = tick.Timestamp.Add(time.Minute)
	day2.PowerReadings = []domain.PowerMeterReading{{MeterID: "PM009"}}

	tr.ObserveTick(ctx, day1)
	tr.ObserveTick(ctx, late)
	if len(fake.calls) != 0 {
		t.Fatal("triggered within the same day")
	}
	tr.ObserveTick(ctx, day2)
	if len(fake.calls) != 1 {
		t.Fatalf("calls %d", len(fake.calls))
	}
	in := fake.calls[0]
	if in.InvocationType != "Event" || aws.ToString(in.FunctionName) != "analytics-processing" {
		t.Fatalf("invoke %+v", in)
	}
	var p AnalyticsPayload
	if err := json.Unmarshal(in.Payload, &p); err != nil || p.Date != "2025-06-30" || p.StationID != "WS001" {
		t.Fatalf("payload %+v %v", p, err)
	}
	if len(p.MeterIDs) != 2 || p.MeterIDs[0] != "PM001" || p.MeterIDs[1] != "PM002" {
		t.Fatalf("meters of the finished day: %v", p.MeterIDs)
	}
}
