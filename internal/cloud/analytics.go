package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/aggregator"
	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/converter"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/domain"
)

// MovingAverageWindow is the number of readings in the report's moving average.
const MovingAverageWindow = 12

type HourlyData struct {
	Count     int     `json:"count"`
	EnergyKWh float64 `json:"energy_kwh"`
	AvgPowerW float64 `json:"avg_power_w"`
	MaxPowerW float64 `json:"max_power_w"`
}

// DailyAnalytics summarises one power meter's readings over a calendar day.
type DailyAnalytics struct {
	MeterID         string                `json:"meter_id"`
	Date            string                `json:"date"`
	ReadingCount    int                   `json:"reading_count"`
	TotalEnergyKWh  float64               `json:"total_energy_kwh"`
	TotalEnergyMWh  float64               `json:"total_energy_mwh"`
	AvgPowerW       float64               `json:"avg_power_w"`
	PeakPowerW      float64               `json:"peak_power_w"`
	MinPowerW       float64               `json:"min_power_w"`
	MovingAverage   []float64             `json:"moving_average"`
	EstimatedCost   float64               `json:"estimated_cost"`
	CostBreakdown   map[string]float64    `json:"cost_breakdown"`
	AvgVoltageV     float64               `json:"avg_voltage_v"`
	VoltageStdDev   float64               `json:"voltage_std_dev"`
	AvgPowerFactor  float64               `json:"avg_power_factor"`
	PeakHour        string                `json:"peak_hour"`
	HourlyData      map[string]HourlyData `json:"hourly_data"`
	Recommendations []string              `json:"recommendations"`
}

// BuildDailyAnalytics computes the day summary of readings, which must all
// belong to one meter. Costs split energy into peak and off-peak by hour.
func BuildDailyAnalytics(meterID, date string, readings []domain.PowerMeterReading, tariff float64) DailyAnalytics {
	a := DailyAnalytics{
		MeterID:       meterID,
		Date:          date,
		ReadingCount:  len(readings),
		CostBreakdown: map[string]float64{"peak": 0, "offpeak": 0},
		HourlyData:    map[string]HourlyData{},
	}
	if len(readings) == 0 {
		return a
	}

	power := make([]aggregator.Point, len(readings))
	energy := make([]aggregator.Point, len(readings))
	var peakKWh, offPeakKWh, voltSum, pfSum float64
	a.MinPowerW = math.MaxFloat64
	for i, r := range readings {
		power[i] = aggregator.Point{Value: r.PowerW, Timestamp: r.Timestamp}
		energy[i] = aggregator.Point{Value: r.EnergyKWh, Timestamp: r.Timestamp}
		a.PeakPowerW = math.Max(a.PeakPowerW, r.PowerW)
		a.MinPowerW = math.Min(a.MinPowerW, r.PowerW)
		voltSum += r.VoltageV
		pfSum += r.PowerFactor
		if domain.PeakHour(r.Timestamp.Hour()) {
			peakKWh += r.EnergyKWh
		} else {
			offPeakKWh += r.EnergyKWh
		}

		hour := r.Timestamp.Format("15")
		h := a.HourlyData[hour]
		h.Count++
		h.EnergyKWh += r.EnergyKWh
		h.AvgPowerW += r.PowerW
		h.MaxPowerW = math.Max(h.MaxPowerW, r.PowerW)
		a.HourlyData[hour] = h
	}

	n := float64(len(readings))
	conv := &converter.EnergyConverter{}
	a.AvgPowerW = aggregator.Average(power)
	a.TotalEnergyKWh = aggregator.Sum(energy)
	a.TotalEnergyMWh = conv.KWhToMWh(a.TotalEnergyKWh)
	if len(power) >= MovingAverageWindow {
		a.MovingAverage = aggregator.MovingAverage(power, MovingAverageWindow)
	}
	a.CostBreakdown["peak"] = conv.CalculateCost(peakKWh, tariff, "peak")
	a.CostBreakdown["offpeak"] = conv.CalculateCost(offPeakKWh, tariff, "offpeak")
	a.EstimatedCost = a.CostBreakdown["peak"] + a.CostBreakdown["offpeak"]
	a.AvgVoltageV = voltSum / n
	a.AvgPowerFactor = pfSum / n

	var dev float64
	for _, r := range readings {
		d := r.VoltageV - a.AvgVoltageV
		dev += d * d
	}
	a.VoltageStdDev = math.Sqrt(dev / n)

	var peakEnergy float64
	for hour, h := range a.HourlyData {
		h.AvgPowerW /= float64(h.Count)
		a.HourlyData[hour] = h
		if h.EnergyKWh > peakEnergy || (h.EnergyKWh == peakEnergy && hour < a.PeakHour) {
			peakEnergy, a.PeakHour = h.EnergyKWh, hour
		}
	}
	a.Recommendations = recommendations(a)
	return a
}

func recommendations(a DailyAnalytics) []string {
	out := []string{}
	if a.AvgPowerW > 50000 {
		out = append(out, "Average load is high. Consider load balancing or efficiency measures.")
	}
	if a.AvgPowerFactor < 0.85 {
		out = append(out, fmt.Sprintf("Low power factor (%.3f). Install power factor correction equipment.", a.AvgPowerFactor))
	}
	if a.VoltageStdDev > 10 {
		out = append(out, "High voltage variance. Check the supply for issues.")
	}
	var hour int
	if _, err := fmt.Sscanf(a.PeakHour, "%d", &hour); err == nil && domain.PeakHour(hour) {
		out = append(out, fmt.Sprintf("Consumption peaks at %s:00. Shift non-critical loads to off-peak hours.", a.PeakHour))
	}
	return out
}

// PowerReadingsForDay returns a power meter's readings stored between
// midnight and midnight UTC of day, oldest first.
func (s *DynamoSink) PowerReadingsForDay(ctx context.Context, meterID string, day time.Time) ([]domain.PowerMeterReading, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("deviceId = :id AND #ts BETWEEN :start AND :end"),
		ExpressionAttributeNames: map[string]string{
			"#ts": "timestamp",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id":    &types.AttributeValueMemberS{Value: meterID},
			":start": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", start.UnixMilli())},
			":end":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", end.UnixMilli()-1)},
		},
	}

	var out []domain.PowerMeterReading
	for {
		res, err := s.svc.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("failed to query DynamoDB: %w", err)
		}
		var recs []struct {
			Kind    string                   `dynamodbav:"kind"`
			Reading domain.PowerMeterReading `dynamodbav:"reading"`
		}
		if err := attributevalue.UnmarshalListOfMaps(res.Items, &recs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal readings: %w", err)
		}
		for _, r := range recs {
			if r.Kind == string(domain.KindPowerMeter) {
				out = append(out, r.Reading)
			}
		}
		if len(res.LastEvaluatedKey) == 0 {
			return out, nil
		}
		in.ExclusiveStartKey = res.LastEvaluatedKey
	}
}

// AnalyticsResponse is what the analytics function returns to its invoker.
type AnalyticsResponse struct {
	Date    string   `json:"date"`
	Meters  int      `json:"meters"`
	Reports []string `json:"reports"`
}

// AnalyticsProcessor handles AnalyticsPayload events: it builds a daily
// report per meter from DynamoDB and uploads it to S3.
type AnalyticsProcessor struct {
	readings *DynamoSink
	s3       objectPutter
	bucket   string
	tariff   float64
	log      zerolog.Logger
	now      func() time.Time
}

func NewAnalyticsProcessor(cfg aws.Config, table, bucket string, log zerolog.Logger) *AnalyticsProcessor {
	return &AnalyticsProcessor{
		readings: NewDynamoSink(cfg, table),
		s3:       s3.NewFromConfig(cfg),
		bucket:   bucket,
		tariff:   domain.DefaultTariff,
		log:      log,
		now:      time.Now,
	}
}

// ReportKey is reports/<date>/<meter id>.json.
func ReportKey(date, meterID string) string {
	return fmt.Sprintf("reports/%s/%s.json", date, meterID)
}

// Handle processes one event. An empty date means yesterday (UTC). Meters
// without readings that day get no report.
func (p *AnalyticsProcessor) Handle(ctx context.Context, ev AnalyticsPayload) (AnalyticsResponse, error) {
	date := ev.Date
	if date == "" {
		date = p.now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return AnalyticsResponse{}, fmt.Errorf("date %q: %w", ev.Date, domain.ErrInvalidInput)
	}

	resp := AnalyticsResponse{Date: date, Reports: []string{}}
	for _, id := range ev.MeterIDs {
		readings, err := p.readings.PowerReadingsForDay(ctx, id, day)
		if err != nil {
			return resp, err
		}
		if len(readings) == 0 {
			p.log.Info().Str("meter_id", id).Str("date", date).Msg("no readings to analyse")
			continue
		}
		report := BuildDailyAnalytics(id, date, readings, p.tariff)
		body, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return resp, fmt.Errorf("failed to marshal report: %w", err)
		}
		key := ReportKey(date, id)
		_, err = p.s3.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
			Metadata: map[string]string{
				"meter-id":     id,
				"report-date":  date,
				"generated-at": p.now().UTC().Format(time.RFC3339),
			},
		})
		if err != nil {
			return resp, fmt.Errorf("failed to upload to S3: %w", err)
		}
		resp.Meters++
		resp.Reports = append(resp.Reports, key)
		p.log.Info().Str("meter_id", id).Str("key", key).Float64("energy_kwh", report.TotalEnergyKWh).Msg("daily report stored")
	}
	return resp, nil
}
