package scoring

import (
	"math"

	"github.com/okian/alie/internal/domain/features"
)

type regressor interface {
	predict(v features.Vector) float64
}

type classifier interface {
	classify(v features.Vector) int
}

type linearTerm struct {
	index  int
	weight float64
	abs    bool
	scale  float64
	capped bool
	cap    float64
}

type linear struct {
	intercept float64
	terms     []linearTerm
}

func (l *linear) predict(v features.Vector) float64 {
	y := l.intercept
	for _, t := range l.terms {
		x := v[t.index]
		if t.abs {
			x = math.Abs(x)
		}
		if t.scale > 0 {
			x /= t.scale
		}
		if t.capped && x > t.cap {
			x = t.cap
		}
		y += t.weight * x
	}
	return y
}

type treeNode struct {
	leaf      bool
	index     int
	threshold float64
	left      int
	right     int
	value     []float64
}

type ensemble struct {
	baseScore    float64
	learningRate float64
	width        int
	trees        [][]treeNode
}

func walk(nodes []treeNode, v features.Vector) []float64 {
	i := 0
	for {
		n := nodes[i]
		if n.leaf {
			return n.value
		}
		if v[n.index] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// predict sums single-value leaves, scaled by the learning rate.
func (e *ensemble) predict(v features.Vector) float64 {
	var sum float64
	for _, t := range e.trees {
		sum += walk(t, v)[0]
	}
	return e.baseScore + e.learningRate*sum
}

// classify sums leaf distributions across trees and returns the class with
// the largest mass. Ties go to the lowest class index.
func (e *ensemble) classify(v features.Vector) int {
	acc := make([]float64, e.width)
	for _, t := range e.trees {
		for c, p := range walk(t, v) {
			acc[c] += p
		}
	}
	best := 0
	for c := 1; c < len(acc); c++ {
		if acc[c] > acc[best] {
			best = c
		}
	}
	return best
}
