package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/alie/internal/domain/learner"
	"github.com/okian/alie/internal/domain/model"
	"github.com/okian/alie/pkg/logger"
	"github.com/okian/alie/pkg/requestid"
)

const apiKeyHeader = "X-API-Key"

// HTTPClient wraps http.Client with timeout and optional API key.
type HTTPClient struct {
	client *http.Client
	apiKey string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration, apiKey string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
		apiKey: apiKey,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submission is the outcome of one POST /predict.
type submission struct {
	outcome    string
	result     model.PredictionResult
	violations []string
}

// tally aggregates submissions across workers.
type tally struct {
	mu    sync.Mutex
	stats *Stats
}

func (t *tally) add(s submission) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch s.outcome {
	case outcomeSuccess:
		t.stats.Successful++
	case outcomeRejected:
		t.stats.Rejected++
	case outcomeRateLimited:
		t.stats.RateLimited++
	default:
		t.stats.Failed++
	}
	if s.outcome != outcomeSuccess {
		return
	}

	t.stats.ContractViolations += len(s.violations)
	t.stats.Actions[s.result.Adaptation.Action]++
	t.stats.Difficulties[s.result.Difficulty.DifficultyLevel]++
	if s.result.SkillGap.Weak {
		t.stats.Weak++
	}
	t.stats.MaxPredictionMS = max(t.stats.MaxPredictionMS, s.result.PredictionTimeMS)
}

// submitSnapshots posts snapshots concurrently using a worker pool.
func submitSnapshots(ctx context.Context, config *Config, snapshots []learner.Snapshot, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting snapshots", logger.Int("count", len(snapshots)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout, config.APIKey)
	url := config.BaseURL + "/predict"

	var submitted int64
	t := &tally{stats: stats}

	snapshotChan := make(chan learner.Snapshot, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for snap := range snapshotChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				s := submitSingleSnapshot(ctx, client, url, snap)
				atomic.AddInt64(&submitted, 1)
				t.add(s)

				if config.Verbose {
					for _, v := range s.violations {
						log.Warn(ctx, "contract violation",
							logger.String("user_id", snap.UserID),
							logger.String("request_id", s.result.RequestID),
							logger.String("violation", v))
					}
				}
			}
		}()
	}

	go func() {
		defer close(snapshotChan)
		for _, snap := range snapshots {
			select {
			case <-ctx.Done():
				return
			case snapshotChan <- snap:
			}
		}
	}()

	wg.Wait()

	stats.Submitted = int(atomic.LoadInt64(&submitted))
	log.Info(ctx, "snapshot submission completed",
		logger.Int("successful", stats.Successful),
		logger.Int("rejected", stats.Rejected),
		logger.Int("rateLimited", stats.RateLimited),
		logger.Int("failed", stats.Failed))
}

// submitSingleSnapshot posts one snapshot and verifies the response.
func submitSingleSnapshot(ctx context.Context, client *HTTPClient, url string, snap learner.Snapshot) submission {
	resp, err := client.Post(ctx, url, snap)
	if err != nil {
		return submission{outcome: outcomeFailed}
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return submission{outcome: outcomeFailed}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return submission{outcome: outcomeRateLimited}
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		return submission{outcome: outcomeRejected}
	default:
		return submission{outcome: outcomeFailed}
	}

	var result model.PredictionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return submission{outcome: outcomeSuccess, violations: []string{"response is not a prediction result: " + err.Error()}}
	}

	violations := verifyResult(result)
	if id := resp.Header.Get(requestid.Header); id != result.RequestID {
		violations = append(violations, fmt.Sprintf("header request id %q does not match body %q", id, result.RequestID))
	}
	return submission{outcome: outcomeSuccess, result: result, violations: violations}
}
