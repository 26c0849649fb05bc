package loadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/alie/internal/domain/learner"
	"github.com/okian/alie/pkg/logger"
)

const randomFloatDivisor = 1_000_000

// Learner profile cases.
const (
	caseStruggling = iota
	caseAverage
	caseMastering
	caseFresh
	caseWideRange
	profileCount
)

var topics = []string{"fractions", "algebra", "geometry", "probability", "calculus", "statistics"}

// bounds describes one profile's ranges.
type bounds struct {
	attempts   [2]int
	accuracy   [2]float64
	response   [2]float64
	confidence [2]float64
	feedback   [2]int
	session    [2]float64
	mastery    [2]float64
	since      [2]float64
}

var profiles = [profileCount]bounds{
	caseStruggling: {
		attempts: [2]int{10, 50}, accuracy: [2]float64{0.05, 0.4}, response: [2]float64{60, 180},
		confidence: [2]float64{0, 0.4}, feedback: [2]int{4, 5}, session: [2]float64{20, 120},
		mastery: [2]float64{0, 0.4}, since: [2]float64{24, 336},
	},
	caseAverage: {
		attempts: [2]int{5, 40}, accuracy: [2]float64{0.4, 0.75}, response: [2]float64{20, 90},
		confidence: [2]float64{0.3, 0.7}, feedback: [2]int{2, 4}, session: [2]float64{10, 90},
		mastery: [2]float64{0.3, 0.7}, since: [2]float64{6, 120},
	},
	caseMastering: {
		attempts: [2]int{10, 60}, accuracy: [2]float64{0.85, 1}, response: [2]float64{5, 30},
		confidence: [2]float64{0.7, 1}, feedback: [2]int{1, 2}, session: [2]float64{10, 60},
		mastery: [2]float64{0.7, 1}, since: [2]float64{1, 48},
	},
	caseFresh: {
		attempts: [2]int{0, 0}, accuracy: [2]float64{0, 0}, response: [2]float64{0, 0},
		confidence: [2]float64{0, 1}, feedback: [2]int{1, 5}, session: [2]float64{0, 5},
		mastery: [2]float64{0, 0.2}, since: [2]float64{0, 1},
	},
	caseWideRange: {
		attempts: [2]int{0, 100}, accuracy: [2]float64{0, 1}, response: [2]float64{0, 300},
		confidence: [2]float64{0, 1}, feedback: [2]int{1, 5}, session: [2]float64{0, 240},
		mastery: [2]float64{0, 1}, since: [2]float64{0, 720},
	},
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomInt returns an int in [lo, hi].
func randomInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(hi-lo+1)))
	return lo + int(n.Int64())
}

func between(r [2]float64) float64 {
	return round2(r[0] + getRandomFloat()*(r[1]-r[0]))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// GenerateSnapshots creates n valid snapshots with unique user IDs using a worker pool.
func GenerateSnapshots(ctx context.Context, n, workers int) ([]learner.Snapshot, error) {
	logger.Get().Info(ctx, "generating snapshots with unique user IDs", logger.Int("count", n))

	if n <= 0 {
		return nil, nil
	}

	snapshots := make([]learner.Snapshot, n)
	userIDs := make([]string, n)
	for i := range userIDs {
		userIDs[i] = uuid.New().String()
	}

	type result struct {
		index    int
		snapshot learner.Snapshot
		err      error
	}

	resultChan := make(chan result, n)

	workerCount := max(1, min(workers, n))
	perWorker := n / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * perWorker
		end := start + perWorker
		if worker == workerCount-1 {
			end = n
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- result{index: i, err: ctx.Err()}
					return
				default:
					resultChan <- result{index: i, snapshot: generateSnapshot(userIDs[i])}
				}
			}
		}(start, end)
	}

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during snapshot generation: %w", ctx.Err())
		case r := <-resultChan:
			if r.err != nil {
				return nil, fmt.Errorf("failed to generate snapshot %d: %w", r.index, r.err)
			}
			snapshots[r.index] = r.snapshot
		}
	}

	logger.Get().Info(ctx, "generated snapshots successfully", logger.Int("count", n))
	return snapshots, nil
}

// generateSnapshot draws a profile and fills a snapshot within its ranges.
// correct_attempts never exceeds attempt_count.
func generateSnapshot(userID string) learner.Snapshot {
	p := profiles[randomInt(0, profileCount-1)]

	attempts := randomInt(p.attempts[0], p.attempts[1])
	correct := int(math.Round(float64(attempts) * between(p.accuracy)))
	correct = min(max(correct, 0), attempts)

	return learner.Snapshot{
		UserID:               userID,
		TopicID:              topics[randomInt(0, len(topics)-1)],
		AttemptCount:         attempts,
		CorrectAttempts:      correct,
		AvgResponseTime:      between(p.response),
		SelfConfidenceRating: between(p.confidence),
		DifficultyFeedback:   randomInt(p.feedback[0], p.feedback[1]),
		SessionDuration:      between(p.session),
		PreviousMasteryScore: between(p.mastery),
		TimeSinceLastAttempt: between(p.since),
	}
}
