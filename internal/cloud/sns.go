package cloud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

type publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier sends operator alerts to an SNS topic.
type SNSNotifier struct {
	svc      publisher
	topicArn string
	log      zerolog.Logger
}

var _ simulation.TickObserver = (*SNSNotifier)(nil)

func NewSNSNotifier(cfg aws.Config, topicArn string, log zerolog.Logger) *SNSNotifier {
	return &SNSNotifier{svc: sns.NewFromConfig(cfg), topicArn: topicArn, log: log}
}

func (n *SNSNotifier) SendAlert(ctx context.Context, subject, message string) error {
	out, err := n.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	n.log.Info().Str("message_id", aws.ToString(out.MessageId)).Str("subject", subject).Msg("alert sent")
	return nil
}

// SendBatchAlerts folds alerts into one numbered notification. No alerts, no message.
func (n *SNSNotifier) SendBatchAlerts(ctx context.Context, alerts []string) error {
	if len(alerts) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("Multiple Alerts Detected:\n\n")
	for i, alert := range alerts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, alert)
	}
	return n.SendAlert(ctx, fmt.Sprintf("Smart City: %d Alerts", len(alerts)), b.String())
}

func (n *SNSNotifier) SendMaintenanceAlert(ctx context.Context, deviceID string, risk30d float64, next time.Time) error {
	message := fmt.Sprintf(
		"Device Maintenance Required\n\n"+
			"Device ID: %s\n"+
			"Failure Risk (30 days): %.1f%%\n"+
			"Next Service Date: %s\n\n"+
			"Please schedule maintenance to prevent failures.",
		deviceID, risk30d, next.Format("2006-01-02"),
	)
	return n.SendAlert(ctx, "Predictive Maintenance Alert", message)
}

// TickAlerts lists the conditions in res an operator should hear about.
// Devices that are merely switched off are not alerts.
func TickAlerts(res simulation.TickResult) []string {
	var alerts []string
	for _, s := range res.Skipped {
		if s.Reason == "inactive" {
			continue
		}
		alerts = append(alerts, fmt.Sprintf("%s %s skipped: %s", s.Kind, s.DeviceID, s.Reason))
	}
	for _, r := range res.FlowReadings {
		if r.AtCapacity {
			alerts = append(alerts, fmt.Sprintf("flow meter %s at max flow rate (%.2f)", r.MeterID, r.FlowRate))
		}
	}
	if res.Lost > 0 {
		alerts = append(alerts, fmt.Sprintf("%d readings could not be stored", res.Lost))
	}
	return alerts
}

func (n *SNSNotifier) ObserveTick(ctx context.Context, res simulation.TickResult) {
	if err := n.SendBatchAlerts(ctx, TickAlerts(res)); err != nil {
		n.log.Error().Err(err).Msg("tick alerts failed")
	}
}
