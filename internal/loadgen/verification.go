package loadgen

import (
	"fmt"
	"math"

	"github.com/okian/alie/internal/domain/model"
)

// verifyResult checks one prediction against the response contract and
// returns a description of every breach.
func verifyResult(r model.PredictionResult) []string {
	var out []string

	if !inUnit(r.SkillGap.GapScore) {
		out = append(out, fmt.Sprintf("gap_score %v outside [0,1]", r.SkillGap.GapScore))
	}
	if r.SkillGap.Weak != model.IsWeak(r.SkillGap.GapScore) {
		out = append(out, fmt.Sprintf("weak=%t inconsistent with gap_score %v", r.SkillGap.Weak, r.SkillGap.GapScore))
	}
	if !inUnit(r.Ranking.RankingScore) {
		out = append(out, fmt.Sprintf("ranking_score %v outside [0,1]", r.Ranking.RankingScore))
	}
	if !r.Difficulty.DifficultyLevel.Valid() {
		out = append(out, fmt.Sprintf("unknown difficulty_level %q", r.Difficulty.DifficultyLevel))
	}
	if !r.Adaptation.Action.Valid() {
		out = append(out, fmt.Sprintf("unknown action %q", r.Adaptation.Action))
	}
	if r.RequestID == "" {
		out = append(out, "missing request_id")
	}
	if r.PredictionTimeMS < 0 || math.IsNaN(r.PredictionTimeMS) {
		out = append(out, fmt.Sprintf("negative prediction_time_ms %v", r.PredictionTimeMS))
	}

	return out
}

func inUnit(x float64) bool {
	return x >= 0 && x <= 1
}
