// Package scoring loads the trained scoring models and serves predictions from them.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/okian/alie/internal/domain/features"
	"github.com/okian/alie/internal/domain/model"
	"github.com/okian/alie/pkg/logger"
)

// Artifact file names inside the models filesystem.
const (
	SkillGapFile   = "skill_gap.yaml"
	DifficultyFile = "difficulty.yaml"
	RankingFile    = "ranking.yaml"
)

// Model roles.
const (
	ModelSkillGap   = "skill_gap"
	ModelDifficulty = "difficulty"
	ModelRanking    = "ranking"
)

// ModelInfo describes one loaded model.
type ModelInfo struct {
	Role    string `json:"role"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Version string `json:"version"`
}

// Option applies a configuration option to Load.
type Option func(*loadOptions)

type loadOptions struct {
	log logger.Logger
}

// WithLogger sets the logger used while loading.
func WithLogger(l logger.Logger) Option {
	return func(o *loadOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// Registry holds the three scoring models. It is immutable after Load and
// safe for concurrent use.
type Registry struct {
	skillGap    regressor
	difficulty  classifier
	classLabels []model.DifficultyLevel
	ranking     regressor
	info        []ModelInfo
	err         error
}

// Load reads the three artifacts from fsys once. Any failure leaves the
// registry permanently degraded: Ready reports false, Err reports the cause
// and every prediction returns ErrNotReady. There is no retry.
func Load(ctx context.Context, fsys fs.FS, opts ...Option) *Registry {
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{}
	if err := r.load(fsys); err != nil {
		r.err = err
		r.skillGap, r.difficulty, r.ranking, r.classLabels, r.info = nil, nil, nil, nil, nil
		if o.log != nil {
			o.log.Error(ctx, "model registry degraded", logger.Error(err))
		}
		return r
	}
	if o.log != nil {
		for _, mi := range r.info {
			o.log.Info(ctx, "model loaded",
				logger.String("role", mi.Role),
				logger.String("name", mi.Name),
				logger.String("kind", mi.Kind),
				logger.String("version", mi.Version),
			)
		}
	}
	return r
}

func (r *Registry) load(fsys fs.FS) error {
	if fsys == nil {
		return fmt.Errorf("%w: no models filesystem", ErrArtifact)
	}

	sg, err := readArtifact(fsys, SkillGapFile)
	if err != nil {
		return err
	}
	if r.skillGap, err = compileRegressor(sg); err != nil {
		return fmt.Errorf("%s: %w", SkillGapFile, err)
	}

	df, err := readArtifact(fsys, DifficultyFile)
	if err != nil {
		return err
	}
	if r.difficulty, r.classLabels, err = compileDifficulty(df); err != nil {
		return fmt.Errorf("%s: %w", DifficultyFile, err)
	}

	rk, err := readArtifact(fsys, RankingFile)
	if err != nil {
		return err
	}
	if r.ranking, err = compileRegressor(rk); err != nil {
		return fmt.Errorf("%s: %w", RankingFile, err)
	}

	r.info = []ModelInfo{
		{Role: ModelSkillGap, Name: sg.Name, Kind: sg.Kind, Version: sg.Version},
		{Role: ModelDifficulty, Name: df.Name, Kind: df.Kind, Version: df.Version},
		{Role: ModelRanking, Name: rk.Name, Kind: rk.Kind, Version: rk.Version},
	}
	return nil
}

func readArtifact(fsys fs.FS, name string) (Artifact, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %s: %v", ErrArtifact, name, err)
	}
	a, err := ParseArtifact(raw)
	if err != nil {
		return Artifact{}, fmt.Errorf("%s: %w", name, err)
	}
	return a, nil
}

// Ready reports whether all three models loaded.
func (r *Registry) Ready() bool {
	return r != nil && r.err == nil && r.skillGap != nil && r.difficulty != nil && r.ranking != nil
}

// Err returns the load failure, or nil when ready.
func (r *Registry) Err() error {
	if r == nil {
		return ErrNotReady
	}
	return r.err
}

// Info describes the loaded models; empty when degraded.
func (r *Registry) Info() []ModelInfo {
	if !r.Ready() {
		return nil
	}
	out := make([]ModelInfo, len(r.info))
	copy(out, r.info)
	return out
}

func (r *Registry) notReady() error {
	if r == nil || r.err == nil {
		return ErrNotReady
	}
	return errors.Join(ErrNotReady, r.err)
}

// PredictSkillGap returns the raw skill gap regression output.
func (r *Registry) PredictSkillGap(v features.Vector) (float64, error) {
	if !r.Ready() {
		return 0, r.notReady()
	}
	return r.skillGap.predict(v), nil
}

// PredictDifficulty returns the difficulty label.
func (r *Registry) PredictDifficulty(v features.Vector) (model.DifficultyLevel, error) {
	if !r.Ready() {
		return "", r.notReady()
	}
	return r.classLabels[r.difficulty.classify(v)], nil
}

// PredictRanking returns the raw ranking regression output.
func (r *Registry) PredictRanking(v features.Vector) (float64, error) {
	if !r.Ready() {
		return 0, r.notReady()
	}
	return r.ranking.predict(v), nil
}
