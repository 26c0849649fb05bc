package service_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	service "github.com/okian/alie/internal/app"
	"github.com/okian/alie/internal/domain/features"
	"github.com/okian/alie/internal/domain/inference"
	"github.com/okian/alie/internal/domain/learner"
	"github.com/okian/alie/internal/domain/model"
	"github.com/okian/alie/pkg/logger"
	"github.com/okian/alie/pkg/requestid"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var (
	scenarioA = learner.Snapshot{
		UserID: "learner-a", TopicID: "fractions",
		AttemptCount: 20, CorrectAttempts: 5, AvgResponseTime: 120, SelfConfidenceRating: 0.2,
		DifficultyFeedback: 5, SessionDuration: 60, PreviousMasteryScore: 0.3, TimeSinceLastAttempt: 168,
	}
	scenarioB = learner.Snapshot{
		UserID: "learner-b", TopicID: "fractions",
		AttemptCount: 30, CorrectAttempts: 28, AvgResponseTime: 15, SelfConfidenceRating: 0.9,
		DifficultyFeedback: 1, SessionDuration: 45, PreviousMasteryScore: 0.85, TimeSinceLastAttempt: 24,
	}
	scenarioC = learner.Snapshot{
		UserID: "learner-c", TopicID: "fractions",
		AttemptCount: 15, CorrectAttempts: 10, AvgResponseTime: 40, SelfConfidenceRating: 0.6,
		DifficultyFeedback: 3, SessionDuration: 30, PreviousMasteryScore: 0.5, TimeSinceLastAttempt: 48,
	}
)

func started(opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it is not ready until started", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Ready(), ShouldBeFalse)
			So(svc.Health().Status, ShouldEqual, service.StatusDegraded)
			So(svc.Version(), ShouldEqual, "1.0.0")
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(service.WithVersion("2.1.0"), service.WithLogger(logger.Named("test")))
		So(svc.Version(), ShouldEqual, "2.1.0")
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := started()
		defer svc.Stop()

		Convey("Then the embedded models are loaded", func() {
			So(svc.Ready(), ShouldBeTrue)
			So(svc.Health(), ShouldResemble, service.HealthStatus{Status: service.StatusHealthy, ModelsLoaded: true, Version: "1.0.0"})
			So(len(svc.Models()), ShouldEqual, 3)
			So(svc.GetStats()["started"], ShouldEqual, true)
		})

		Convey("And starting twice is a no-op", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Ready(), ShouldBeTrue)
		})

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.Ready(), ShouldBeFalse)
			})
		})
	})
}

func TestService_Predict(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with the default models", t, func() {
		svc := started()
		defer svc.Stop()

		Convey("When a struggling learner is scored", func() {
			res, err := svc.Predict(ctx, scenarioA)

			Convey("Then foundation resources are recommended", func() {
				So(err, ShouldBeNil)
				So(res.SkillGap.GapScore, ShouldAlmostEqual, 0.83, 1e-9)
				So(res.SkillGap.Weak, ShouldBeTrue)
				So(res.Difficulty.DifficultyLevel, ShouldEqual, model.DifficultyHard)
				So(res.Ranking.RankingScore, ShouldAlmostEqual, 0.6475, 1e-9)
				So(res.Adaptation.Action, ShouldEqual, model.ActionAddFoundationResources)
				So(res.RequestID, ShouldNotBeEmpty)
				So(res.PredictionTimeMS, ShouldBeGreaterThanOrEqualTo, 0)
			})
		})

		Convey("When a high performer is scored", func() {
			res, err := svc.Predict(ctx, scenarioB)
			d := features.Derive(scenarioB)

			Convey("Then difficulty is increased", func() {
				So(err, ShouldBeNil)
				So(d.AccuracyRate, ShouldAlmostEqual, 0.9333, 1e-4)
				So(res.SkillGap.GapScore, ShouldAlmostEqual, 0.088, 1e-9)
				So(res.SkillGap.Weak, ShouldBeFalse)
				So(res.Difficulty.DifficultyLevel, ShouldEqual, model.DifficultyEasy)
				So(res.Adaptation.Action, ShouldEqual, model.ActionIncreaseDifficulty)
			})
		})

		Convey("When an average learner is scored", func() {
			res, err := svc.Predict(ctx, scenarioC)

			Convey("Then the current path continues", func() {
				So(err, ShouldBeNil)
				So(res.SkillGap.GapScore, ShouldAlmostEqual, 0.3793, 1e-9)
				So(res.Difficulty.DifficultyLevel, ShouldEqual, model.DifficultyMedium)
				So(res.Adaptation.Action, ShouldEqual, model.ActionContinueCurrentPath)
			})
		})

		Convey("When the same snapshot is scored twice", func() {
			first, err1 := svc.Predict(ctx, scenarioA)
			second, err2 := svc.Predict(ctx, scenarioA)

			Convey("Then only the request id and timing differ", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first.RequestID, ShouldNotEqual, second.RequestID)
				first.RequestID, second.RequestID = "", ""
				first.PredictionTimeMS, second.PredictionTimeMS = 0, 0
				So(first, ShouldResemble, second)
			})
		})

		Convey("When the context carries a request id", func() {
			res, err := svc.Predict(requestid.With(ctx, "req-42"), scenarioC)
			So(err, ShouldBeNil)
			So(res.RequestID, ShouldEqual, "req-42")
		})

		Convey("When the snapshot breaks the attempt invariant", func() {
			bad := scenarioC
			bad.CorrectAttempts = 16
			_, err := svc.Predict(ctx, bad)

			Convey("Then no models run and the violation is returned", func() {
				So(errors.Is(err, learner.ErrInvalidSnapshot), ShouldBeTrue)
				So(svc.GetStats()["rejected_inputs"], ShouldEqual, int64(1))
			})
		})

		Convey("When a raw body is scored", func() {
			res, err := svc.PredictJSON(ctx, []byte(`{"user_id":"u","topic_id":"t","attempt_count":15,"correct_attempts":10,
"avg_response_time":40,"self_confidence_rating":0.6,"difficulty_feedback":3,"session_duration":30,
"previous_mastery_score":0.5,"time_since_last_attempt":48}`))
			So(err, ShouldBeNil)
			So(res.Adaptation.Action, ShouldEqual, model.ActionContinueCurrentPath)

			_, err = svc.PredictJSON(ctx, []byte(`{`))
			So(errors.Is(err, learner.ErrMalformedJSON), ShouldBeTrue)
		})

		Convey("When zero attempts are submitted", func() {
			zero := learner.Snapshot{UserID: "u", TopicID: "t", DifficultyFeedback: 1}
			res, err := svc.Predict(ctx, zero)

			Convey("Then every output stays in range", func() {
				So(err, ShouldBeNil)
				So(res.SkillGap.GapScore, ShouldBeBetweenOrEqual, 0, 1)
				So(res.Ranking.RankingScore, ShouldBeBetweenOrEqual, 0, 1)
				So(res.Difficulty.DifficultyLevel.Valid(), ShouldBeTrue)
				So(res.Adaptation.Action.Valid(), ShouldBeTrue)
				So(res.SkillGap.Weak, ShouldEqual, model.IsWeak(res.SkillGap.GapScore))
			})
		})
	})

	Convey("Given a service whose artifacts are missing", t, func() {
		svc := started(service.WithModelsFS(fstest.MapFS{}))
		defer svc.Stop()

		Convey("Then it reports degraded health and refuses predictions", func() {
			So(svc.Health().Status, ShouldEqual, service.StatusDegraded)
			So(svc.Health().ModelsLoaded, ShouldBeFalse)
			_, err := svc.Predict(ctx, scenarioA)
			So(errors.Is(err, inference.ErrServiceUnavailable), ShouldBeTrue)
			So(svc.GetStats()["models_error"], ShouldNotBeEmpty)
		})
	})

	Convey("Given a gap just above the foundation threshold", t, func() {
		svc := started(service.WithModels(&stubModels{gap: 0.75004, rank: 0.5, difficulty: model.DifficultyEasy}))
		defer svc.Stop()

		res, err := svc.Predict(ctx, scenarioA)

		Convey("Then the rules see the published value", func() {
			So(err, ShouldBeNil)
			So(res.SkillGap.GapScore, ShouldEqual, 0.75)
			So(res.SkillGap.Weak, ShouldBeTrue)
			So(res.Adaptation.Action, ShouldEqual, model.ActionContinueCurrentPath)
		})
	})

	Convey("Given a service that is not running", t, func() {
		svc := service.New()

		Convey("When it was never started", func() {
			_, err := svc.Predict(ctx, scenarioA)
			So(errors.Is(err, inference.ErrServiceUnavailable), ShouldBeTrue)
		})

		Convey("When it was stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			_, err := svc.Predict(ctx, scenarioA)
			So(err, ShouldBeNil)

			svc.Stop()
			_, err = svc.Predict(ctx, scenarioA)
			So(errors.Is(err, inference.ErrServiceUnavailable), ShouldBeTrue)
			_, err = svc.PredictJSON(ctx, []byte(`{"user_id":"u","topic_id":"t","attempt_count":1,"correct_attempts":1,"avg_response_time":1,"self_confidence_rating":0.5,"difficulty_feedback":3,"session_duration":1,"previous_mastery_score":0.5,"time_since_last_attempt":1}`))
			So(errors.Is(err, inference.ErrServiceUnavailable), ShouldBeTrue)
			So(svc.GetStats()["prediction_failures"], ShouldEqual, int64(2))
		})
	})

	Convey("Given a service over injected models", t, func() {
		svc := started(service.WithModels(&stubModels{gap: 0.60004, rank: 0.5, difficulty: model.DifficultyHard}))
		defer svc.Stop()

		Convey("When the gap rounds down onto the threshold", func() {
			res, err := svc.Predict(ctx, scenarioA)

			Convey("Then weak follows the published value", func() {
				So(err, ShouldBeNil)
				So(res.SkillGap.GapScore, ShouldEqual, 0.6)
				So(res.SkillGap.Weak, ShouldBeFalse)
			})

			Convey("And hard content with a high failure rate reduces difficulty", func() {
				So(res.Adaptation.Action, ShouldEqual, model.ActionReduceDifficulty)
			})
		})

		Convey("Then injected models report no artifact info", func() {
			So(svc.Models(), ShouldBeEmpty)
		})
	})
}

type stubModels struct {
	gap, rank  float64
	difficulty model.DifficultyLevel
}

func (s *stubModels) Ready() bool { return true }

func (s *stubModels) PredictSkillGap(features.Vector) (float64, error) { return s.gap, nil }

func (s *stubModels) PredictDifficulty(features.Vector) (model.DifficultyLevel, error) {
	return s.difficulty, nil
}

func (s *stubModels) PredictRanking(features.Vector) (float64, error) { return s.rank, nil }
