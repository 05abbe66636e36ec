package metrics

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	namespace                = "MAGDA/MidiGen"
	cloudwatchTimeoutSeconds = 5
	environmentProduction    = "production"
)

// Client wraps CloudWatch client for custom metrics
type Client struct {
	client      *cloudwatch.Client
	enabled     bool
	environment string
	pending     sync.WaitGroup
}

// NewClient creates a new CloudWatch metrics client
func NewClient(ctx context.Context, environment string) (*Client, error) {
	// Only enable in production
	if environment != environmentProduction {
		log.Printf("📊 CloudWatch Metrics: DISABLED (environment: %s)", environment)
		return &Client{
			enabled:     false,
			environment: environment,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to load AWS config for CloudWatch: %v", err)
		return &Client{enabled: false, environment: environment}, nil
	}

	client := cloudwatch.NewFromConfig(cfg)
	log.Printf("📊 CloudWatch Metrics: ✅ ENABLED (namespace: %s)", namespace)

	return &Client{
		client:      client,
		enabled:     true,
		environment: environment,
	}, nil
}

// Enabled reports whether metrics are actually sent
func (m *Client) Enabled() bool {
	return m.enabled
}

// RecordAttempt records one oracle call and its latency
func (m *Client) RecordAttempt(_ context.Context, model string, duration time.Duration, success bool) {
	if !m.enabled {
		return
	}

	m.async(func(ctx context.Context) {
		dimensions := []types.Dimension{
			{Name: aws.String("Model"), Value: aws.String(model)},
			{Name: aws.String("Success"), Value: aws.String(boolToString(success))},
			{Name: aws.String("Environment"), Value: aws.String(m.environment)},
		}

		if err := m.putMetric(ctx, "OracleAttempts", 1, types.StandardUnitCount, dimensions); err != nil {
			log.Printf("Failed to record OracleAttempts metric: %v", err)
		}

		durationMs := float64(duration.Milliseconds())
		if err := m.putMetric(ctx, "OracleLatency", durationMs, types.StandardUnitMilliseconds, dimensions); err != nil {
			log.Printf("Failed to record OracleLatency metric: %v", err)
		}
	})
}

// RecordTokenUsage records token usage of one oracle call
func (m *Client) RecordTokenUsage(_ context.Context, model string, totalTokens, inputTokens, outputTokens, reasoningTokens int64) {
	if !m.enabled {
		return
	}

	m.async(func(ctx context.Context) {
		dimensions := []types.Dimension{
			{Name: aws.String("Model"), Value: aws.String(model)},
			{Name: aws.String("Environment"), Value: aws.String(m.environment)},
		}

		values := map[string]int64{
			"Tokens/Total":  totalTokens,
			"Tokens/Input":  inputTokens,
			"Tokens/Output": outputTokens,
		}
		// reasoning models only
		if reasoningTokens > 0 {
			values["Tokens/Reasoning"] = reasoningTokens
		}

		for name, value := range values {
			if err := m.putMetric(ctx, name, float64(value), types.StandardUnitCount, dimensions); err != nil {
				log.Printf("Failed to record %s metric: %v", name, err)
			}
		}
	})
}

// RecordItemOutcome records the final status of one dataset item
func (m *Client) RecordItemOutcome(_ context.Context, category, status string, attempts int) {
	if !m.enabled {
		return
	}

	m.async(func(ctx context.Context) {
		dimensions := []types.Dimension{
			{Name: aws.String("Category"), Value: aws.String(category)},
			{Name: aws.String("Status"), Value: aws.String(status)},
			{Name: aws.String("Environment"), Value: aws.String(m.environment)},
		}

		if err := m.putMetric(ctx, "Items", 1, types.StandardUnitCount, dimensions); err != nil {
			log.Printf("Failed to record Items metric: %v", err)
		}
		if err := m.putMetric(ctx, "ItemAttempts", float64(attempts), types.StandardUnitCount, dimensions); err != nil {
			log.Printf("Failed to record ItemAttempts metric: %v", err)
		}
	})
}

// RecordRunSummary records the totals of a finished run
func (m *Client) RecordRunSummary(_ context.Context, produced, skipped, failed int, duration time.Duration) {
	if !m.enabled {
		return
	}

	m.async(func(ctx context.Context) {
		dimensions := []types.Dimension{
			{Name: aws.String("Environment"), Value: aws.String(m.environment)},
		}

		counts := map[string]int{
			"RunProduced": produced,
			"RunSkipped":  skipped,
			"RunFailed":   failed,
		}
		for name, value := range counts {
			if err := m.putMetric(ctx, name, float64(value), types.StandardUnitCount, dimensions); err != nil {
				log.Printf("Failed to record %s metric: %v", name, err)
			}
		}

		if err := m.putMetric(ctx, "RunDuration", duration.Seconds(), types.StandardUnitSeconds, dimensions); err != nil {
			log.Printf("Failed to record RunDuration metric: %v", err)
		}
	})
}

// Close waits for metrics still in flight
func (m *Client) Close() {
	m.pending.Wait()
}

func (m *Client) async(fn func(ctx context.Context)) {
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		fn(context.Background())
	}()
}

// putMetric sends a metric to CloudWatch
func (m *Client) putMetric(
	_ context.Context,
	metricName string,
	value float64,
	unit types.StandardUnit,
	dimensions []types.Dimension,
) error {
	if !m.enabled || m.client == nil {
		return nil
	}

	// Create context with timeout for CloudWatch call
	timeout := time.Duration(cloudwatchTimeoutSeconds) * time.Second
	cwCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := m.client.PutMetricData(cwCtx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dimensions,
			},
		},
	})

	return err
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
