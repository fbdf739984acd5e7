package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

type invoker interface {
	Invoke(ctx context.Context, in *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// AnalyticsPayload is the input of the daily analytics function.
type AnalyticsPayload struct {
	Date      string   `json:"date"`
	StationID string   `json:"station_id"`
	MeterIDs  []string `json:"meter_ids,omitempty"`
}

// AnalyticsTrigger starts the analytics function for a day once the first
// tick of the following day has been generated.
type AnalyticsTrigger struct {
	svc      invoker
	function string
	log      zerolog.Logger

	mu      sync.Mutex
	lastDay string
	meters  map[string]bool
}

var _ simulation.TickObserver = (*AnalyticsTrigger)(nil)

func NewAnalyticsTrigger(cfg aws.Config, function string, log zerolog.Logger) *AnalyticsTrigger {
	return &AnalyticsTrigger{svc: lambda.NewFromConfig(cfg), function: function, log: log}
}

// InvokeAsync queues the analytics function without waiting for it.
func (t *AnalyticsTrigger) InvokeAsync(ctx context.Context, p AnalyticsPayload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	_, err = t.svc.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(t.function),
		Payload:        payload,
		InvocationType: types.InvocationTypeEvent,
	})
	if err != nil {
		return fmt.Errorf("failed to invoke Lambda: %w", err)
	}
	return nil
}

// ObserveTick rolls days over in UTC, the day boundary the analytics
// function queries.
func (t *AnalyticsTrigger) ObserveTick(ctx context.Context, res simulation.TickResult) {
	day := res.Timestamp.UTC().Format("2006-01-02")

	t.mu.Lock()
	prev, seen := t.lastDay, t.meters
	if prev != day {
		t.lastDay = day
		t.meters = map[string]bool{}
	}
	for _, r := range res.PowerReadings {
		t.meters[r.MeterID] = true
	}
	t.mu.Unlock()

	if prev == "" || prev == day {
		return
	}
	p := AnalyticsPayload{Date: prev, StationID: res.Weather.StationID}
	for id := range seen {
		p.MeterIDs = append(p.MeterIDs, id)
	}
	slices.Sort(p.MeterIDs)
	if err := t.InvokeAsync(ctx, p); err != nil {
		t.log.Error().Err(err).Str("date", prev).Msg("analytics trigger failed")
		return
	}
	t.log.Info().Str("date", prev).Int("meters", len(p.MeterIDs)).Str("function", t.function).Msg("daily analytics triggered")
}
