package scoring

import (
	"bytes"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/okian/alie/internal/domain/features"
	"github.com/okian/alie/internal/domain/model"
)

// Model kinds understood by the loader.
const (
	KindLinear       = "linear"
	KindTreeEnsemble = "tree_ensemble"
)

// Model tasks.
const (
	TaskRegression     = "regression"
	TaskClassification = "classification"
)

// Term transforms.
const (
	TransformNone = ""
	TransformAbs  = "abs"
)

// Artifact is the on-disk form of a trained model.
type Artifact struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Kind    string `yaml:"kind"`
	Task    string `yaml:"task"`

	// linear
	Intercept float64 `yaml:"intercept"`
	Terms     []Term  `yaml:"terms"`

	// tree_ensemble
	BaseScore    float64  `yaml:"base_score"`
	LearningRate float64  `yaml:"learning_rate"`
	Classes      []string `yaml:"classes"`
	Trees        []Tree   `yaml:"trees"`
}

// Term is one weighted input of a linear model: weight * min(transform(x)/scale, cap).
type Term struct {
	Feature   string   `yaml:"feature"`
	Weight    float64  `yaml:"weight"`
	Transform string   `yaml:"transform"`
	Scale     float64  `yaml:"scale"`
	Cap       *float64 `yaml:"cap"`
}

// Tree is a flat binary tree; node 0 is the root.
type Tree struct {
	Nodes []Node `yaml:"nodes"`
}

// Node is a split when Feature is set, otherwise a leaf holding Value.
// Samples with x <= Threshold go Left.
type Node struct {
	Feature   string    `yaml:"feature"`
	Threshold float64   `yaml:"threshold"`
	Left      int       `yaml:"left"`
	Right     int       `yaml:"right"`
	Value     []float64 `yaml:"value"`
}

// ParseArtifact decodes a YAML artifact. Unknown keys are rejected.
func ParseArtifact(raw []byte) (Artifact, error) {
	var a Artifact
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&a); err != nil {
		return Artifact{}, fmt.Errorf("%w: decode: %v", ErrArtifact, err)
	}
	return a, nil
}

// compileRegressor builds a regressor from a regression artifact.
func compileRegressor(a Artifact) (regressor, error) {
	if a.Task != TaskRegression {
		return nil, fmt.Errorf("%w: %s: task %q, want %q", ErrArtifact, a.Name, a.Task, TaskRegression)
	}
	switch a.Kind {
	case KindLinear:
		return compileLinear(a)
	case KindTreeEnsemble:
		return compileEnsemble(a, 1)
	default:
		return nil, fmt.Errorf("%w: %s: unknown kind %q", ErrArtifact, a.Name, a.Kind)
	}
}

// compileDifficulty builds a difficulty classifier and its class labels.
func compileDifficulty(a Artifact) (classifier, []model.DifficultyLevel, error) {
	if a.Task != TaskClassification {
		return nil, nil, fmt.Errorf("%w: %s: task %q, want %q", ErrArtifact, a.Name, a.Task, TaskClassification)
	}
	if a.Kind != KindTreeEnsemble {
		return nil, nil, fmt.Errorf("%w: %s: classification requires %q, got %q", ErrArtifact, a.Name, KindTreeEnsemble, a.Kind)
	}

	labels := make([]model.DifficultyLevel, 0, 3)
	if len(a.Classes) == 0 {
		for class := 0; ; class++ {
			d, err := model.DifficultyFromClass(class)
			if err != nil {
				break
			}
			labels = append(labels, d)
		}
	} else {
		for _, c := range a.Classes {
			d, err := model.ParseDifficulty(c)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %s: %v", ErrArtifact, a.Name, err)
			}
			labels = append(labels, d)
		}
	}

	e, err := compileEnsemble(a, len(labels))
	if err != nil {
		return nil, nil, err
	}
	return e, labels, nil
}

func compileLinear(a Artifact) (*linear, error) {
	if len(a.Terms) == 0 {
		return nil, fmt.Errorf("%w: %s: linear model has no terms", ErrArtifact, a.Name)
	}
	if !finite(a.Intercept) {
		return nil, fmt.Errorf("%w: %s: intercept is not finite", ErrArtifact, a.Name)
	}
	l := &linear{intercept: a.Intercept, terms: make([]linearTerm, 0, len(a.Terms))}
	for i, t := range a.Terms {
		idx, err := features.Index(t.Feature)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: term %d: %v", ErrArtifact, a.Name, i, err)
		}
		if !finite(t.Weight) {
			return nil, fmt.Errorf("%w: %s: term %d: weight is not finite", ErrArtifact, a.Name, i)
		}
		if t.Scale < 0 || !finite(t.Scale) {
			return nil, fmt.Errorf("%w: %s: term %d: scale must be positive", ErrArtifact, a.Name, i)
		}
		switch t.Transform {
		case TransformNone, TransformAbs:
		default:
			return nil, fmt.Errorf("%w: %s: term %d: unknown transform %q", ErrArtifact, a.Name, i, t.Transform)
		}
		lt := linearTerm{index: idx, weight: t.Weight, abs: t.Transform == TransformAbs, scale: t.Scale}
		if t.Cap != nil {
			if !finite(*t.Cap) {
				return nil, fmt.Errorf("%w: %s: term %d: cap is not finite", ErrArtifact, a.Name, i)
			}
			lt.capped, lt.cap = true, *t.Cap
		}
		l.terms = append(l.terms, lt)
	}
	return l, nil
}

// compileEnsemble validates trees whose leaves carry width values.
func compileEnsemble(a Artifact, width int) (*ensemble, error) {
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("%w: %s: ensemble has no trees", ErrArtifact, a.Name)
	}
	lr := a.LearningRate
	if lr == 0 {
		lr = 1
	}
	if !finite(lr) || !finite(a.BaseScore) {
		return nil, fmt.Errorf("%w: %s: base_score and learning_rate must be finite", ErrArtifact, a.Name)
	}
	e := &ensemble{baseScore: a.BaseScore, learningRate: lr, width: width, trees: make([][]treeNode, 0, len(a.Trees))}
	for ti, t := range a.Trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("%w: %s: tree %d is empty", ErrArtifact, a.Name, ti)
		}
		nodes := make([]treeNode, len(t.Nodes))
		for ni, n := range t.Nodes {
			if n.Feature == "" {
				if len(n.Value) != width {
					return nil, fmt.Errorf("%w: %s: tree %d node %d: leaf has %d values, want %d", ErrArtifact, a.Name, ti, ni, len(n.Value), width)
				}
				for _, v := range n.Value {
					if !finite(v) {
						return nil, fmt.Errorf("%w: %s: tree %d node %d: leaf value is not finite", ErrArtifact, a.Name, ti, ni)
					}
				}
				nodes[ni] = treeNode{leaf: true, value: n.Value}
				continue
			}
			idx, err := features.Index(n.Feature)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: tree %d node %d: %v", ErrArtifact, a.Name, ti, ni, err)
			}
			// Children after their parent keeps every walk finite.
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return nil, fmt.Errorf("%w: %s: tree %d node %d: children (%d,%d) out of order or range", ErrArtifact, a.Name, ti, ni, n.Left, n.Right)
			}
			if !finite(n.Threshold) {
				return nil, fmt.Errorf("%w: %s: tree %d node %d: threshold is not finite", ErrArtifact, a.Name, ti, ni)
			}
			nodes[ni] = treeNode{index: idx, threshold: n.Threshold, left: n.Left, right: n.Right}
		}
		e.trees = append(e.trees, nodes)
	}
	return e, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
