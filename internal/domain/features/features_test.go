package features_test

import (
	"math"
	"testing"

	"github.com/okian/alie/internal/domain/features"
	"github.com/okian/alie/internal/domain/learner"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDerive(t *testing.T) {
	Convey("Given a struggling learner", t, func() {
		s := learner.Snapshot{
			AttemptCount:         20,
			CorrectAttempts:      5,
			SelfConfidenceRating: 0.2,
			DifficultyFeedback:   5,
			SessionDuration:      60,
			PreviousMasteryScore: 0.3,
		}
		d := features.Derive(s)

		Convey("Then each signal follows its formula", func() {
			So(d.AccuracyRate, ShouldAlmostEqual, 0.25, 1e-12)
			So(d.FailureRate, ShouldAlmostEqual, 0.75, 1e-12)
			So(d.LearningVelocity, ShouldAlmostEqual, 0.005, 1e-12)
			So(d.ConfidencePerformanceGap, ShouldAlmostEqual, -0.05, 1e-12)
			So(d.DifficultyStressIndex, ShouldAlmostEqual, 3.75, 1e-12)
			So(d.PersistenceScore, ShouldAlmostEqual, 60.0/21.0, 1e-12)
		})
	})

	Convey("Given a learner with no attempts", t, func() {
		s := learner.Snapshot{SelfConfidenceRating: 0.4, DifficultyFeedback: 3, SessionDuration: 12}
		d := features.Derive(s)

		Convey("Then accuracy resolves to zero without panicking", func() {
			So(d.AccuracyRate, ShouldEqual, 0)
			So(d.FailureRate, ShouldEqual, 1)
			So(d.DifficultyStressIndex, ShouldEqual, 3)
			So(d.ConfidencePerformanceGap, ShouldAlmostEqual, 0.4, 1e-12)
			So(d.PersistenceScore, ShouldEqual, 12)
		})
	})

	Convey("Given a zero length session", t, func() {
		s := learner.Snapshot{AttemptCount: 4, CorrectAttempts: 2, PreviousMasteryScore: 0.9, DifficultyFeedback: 2}
		d := features.Derive(s)

		Convey("Then velocity and persistence resolve to zero", func() {
			So(d.LearningVelocity, ShouldEqual, 0)
			So(d.PersistenceScore, ShouldEqual, 0)
			So(math.IsNaN(d.LearningVelocity), ShouldBeFalse)
			So(math.IsInf(d.LearningVelocity, 0), ShouldBeFalse)
		})
	})

	Convey("Given an attempt count at the int limit", t, func() {
		s := learner.Snapshot{AttemptCount: math.MaxInt, CorrectAttempts: math.MaxInt, DifficultyFeedback: 1, SessionDuration: 90}
		d := features.Derive(s)

		Convey("Then persistence stays positive instead of wrapping", func() {
			So(d.PersistenceScore, ShouldBeGreaterThan, 0)
			So(d.PersistenceScore, ShouldAlmostEqual, 90/(float64(math.MaxInt)+1), 1e-24)
		})
	})

	Convey("Given the same snapshot twice", t, func() {
		s := learner.Snapshot{AttemptCount: 15, CorrectAttempts: 10, SelfConfidenceRating: 0.6, DifficultyFeedback: 3, SessionDuration: 30}
		So(features.Derive(s), ShouldResemble, features.Derive(s))
	})
}

func TestVector(t *testing.T) {
	Convey("Given the canonical feature order", t, func() {
		names := features.Names()

		Convey("Then raw fields precede derived ones", func() {
			So(len(names), ShouldEqual, 14)
			So(names[0], ShouldEqual, "attempt_count")
			So(names[7], ShouldEqual, "time_since_last_attempt")
			So(names[8], ShouldEqual, "accuracy_rate")
			So(names[13], ShouldEqual, "persistence_score")
		})

		Convey("And Names returns a copy", func() {
			names[0] = "x"
			So(features.Names()[0], ShouldEqual, "attempt_count")
		})

		Convey("And unknown names are rejected", func() {
			_, err := features.Index("mood")
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a built vector", t, func() {
		s := learner.Snapshot{
			AttemptCount: 30, CorrectAttempts: 28, AvgResponseTime: 9, SelfConfidenceRating: 0.9,
			DifficultyFeedback: 1, SessionDuration: 40, PreviousMasteryScore: 0.85, TimeSinceLastAttempt: 2,
		}
		v, d := features.Build(s)

		Convey("Then every position holds its named value", func() {
			for _, tc := range []struct {
				name string
				want float64
			}{
				{features.AttemptCount, 30},
				{features.CorrectAttempts, 28},
				{features.AvgResponseTime, 9},
				{features.SelfConfidenceRating, 0.9},
				{features.DifficultyFeedback, 1},
				{features.SessionDuration, 40},
				{features.PreviousMasteryScore, 0.85},
				{features.TimeSinceLastAttempt, 2},
				{features.AccuracyRate, d.AccuracyRate},
				{features.FailureRate, d.FailureRate},
				{features.LearningVelocity, d.LearningVelocity},
				{features.ConfidencePerformanceGap, d.ConfidencePerformanceGap},
				{features.DifficultyStressIndex, d.DifficultyStressIndex},
				{features.PersistenceScore, d.PersistenceScore},
			} {
				got, err := v.Get(tc.name)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, tc.want)
			}
		})
	})
}
