package model_test

import (
	"encoding/json"
	"testing"

	model "github.com/okian/alie/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestIsWeak(t *testing.T) {
	convey.Convey("Given the weak gap threshold", t, func() {
		convey.So(model.WeakGapThreshold, convey.ShouldEqual, 0.6)

		convey.Convey("A gap exactly at the threshold is not weak", func() {
			convey.So(model.IsWeak(0.6), convey.ShouldBeFalse)
		})

		convey.Convey("A gap between the two documented thresholds is not weak", func() {
			convey.So(model.IsWeak(0.55), convey.ShouldBeFalse)
			convey.So(model.IsWeak(0.5001), convey.ShouldBeFalse)
		})

		convey.Convey("A gap just above the threshold is weak", func() {
			convey.So(model.IsWeak(0.6001), convey.ShouldBeTrue)
			convey.So(model.IsWeak(1), convey.ShouldBeTrue)
		})

		convey.Convey("Zero is not weak", func() {
			convey.So(model.IsWeak(0), convey.ShouldBeFalse)
		})
	})
}

func TestDifficulty(t *testing.T) {
	convey.Convey("Given difficulty classes", t, func() {
		convey.Convey("Class indices map to labels in trainer order", func() {
			for class, want := range []model.DifficultyLevel{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard} {
				got, err := model.DifficultyFromClass(class)
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldEqual, want)
			}
		})

		convey.Convey("Out of range classes are rejected", func() {
			_, err := model.DifficultyFromClass(3)
			convey.So(err, convey.ShouldNotBeNil)
			_, err = model.DifficultyFromClass(-1)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("Labels parse and validate", func() {
			d, err := model.ParseDifficulty("hard")
			convey.So(err, convey.ShouldBeNil)
			convey.So(d, convey.ShouldEqual, model.DifficultyHard)
			_, err = model.ParseDifficulty("extreme")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestActions(t *testing.T) {
	convey.Convey("Given the action enumeration", t, func() {
		convey.So(len(model.Actions()), convey.ShouldEqual, 4)
		for _, a := range model.Actions() {
			convey.So(a.Valid(), convey.ShouldBeTrue)
		}
		convey.So(model.Action("skip_topic").Valid(), convey.ShouldBeFalse)
	})
}

func TestPredictionResultJSON(t *testing.T) {
	convey.Convey("Given a prediction result", t, func() {
		res := model.PredictionResult{
			SkillGap:         model.SkillGap{GapScore: 0.8, Weak: true},
			Difficulty:       model.Difficulty{DifficultyLevel: model.DifficultyHard},
			Ranking:          model.Ranking{RankingScore: 0.3},
			Adaptation:       model.Adaptation{Action: model.ActionAddFoundationResources},
			RequestID:        "id-1",
			PredictionTimeMS: 1.25,
		}

		convey.Convey("When encoded it has the documented shape", func() {
			raw, err := json.Marshal(res)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(raw), convey.ShouldEqual,
				`{"skill_gap":{"gap_score":0.8,"weak":true},"difficulty":{"difficulty_level":"hard"},`+
					`"ranking":{"ranking_score":0.3},"adaptation":{"action":"add_foundation_resources"},`+
					`"request_id":"id-1","prediction_time_ms":1.25}`)
		})
	})
}
