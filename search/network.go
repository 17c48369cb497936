package search

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/nstehr/skirmish/model"
)

// Network scores a feature vector. Trainers supply their own; FeedForward
// evaluates the weights they export.
type Network interface {
	Score(features []float64) float64
}

// Layer is one dense layer: out = activation(Weights·in + Bias). Weights
// has one row per output.
type Layer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"` // relu, tanh, sigmoid or linear
}

// FeedForward is a dense network ending in a single output.
type FeedForward struct {
	Layers []Layer `json:"layers"`
}

// LoadFeedForward reads a JSON network and checks that its shapes chain
// from FeatureCount inputs to one output.
func LoadFeedForward(r io.Reader) (*FeedForward, error) {
	var n FeedForward
	if err := json.NewDecoder(r).Decode(&n); err != nil {
		return nil, fmt.Errorf("decode network: %w", err)
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

func (n *FeedForward) Validate() error {
	if len(n.Layers) == 0 {
		return fmt.Errorf("network: no layers")
	}
	in := FeatureCount
	for i, l := range n.Layers {
		if len(l.Weights) == 0 || len(l.Weights) != len(l.Bias) {
			return fmt.Errorf("network layer %d: %d weight rows, %d biases", i, len(l.Weights), len(l.Bias))
		}
		for j, row := range l.Weights {
			if len(row) != in {
				return fmt.Errorf("network layer %d row %d: %d inputs, want %d", i, j, len(row), in)
			}
		}
		switch l.Activation {
		case "", "linear", "relu", "tanh", "sigmoid":
		default:
			return fmt.Errorf("network layer %d: unknown activation %q", i, l.Activation)
		}
		in = len(l.Weights)
	}
	if in != 1 {
		return fmt.Errorf("network: %d outputs, want 1", in)
	}
	return nil
}

func (n *FeedForward) Score(features []float64) float64 {
	x := features
	for _, l := range n.Layers {
		y := make([]float64, len(l.Weights))
		for i, row := range l.Weights {
			v := l.Bias[i]
			for j, w := range row {
				if j < len(x) {
					v += w * x[j]
				}
			}
			y[i] = activate(l.Activation, v)
		}
		x = y
	}
	return x[0]
}

func activate(name string, v float64) float64 {
	switch name {
	case "relu":
		return math.Max(v, 0)
	case "tanh":
		return math.Tanh(v)
	case "sigmoid":
		return 1 / (1 + math.Exp(-v))
	}
	return v
}

// Learned is greedy with the one-step score replaced by a network's
// verdict on the state and candidate features. A candidate is taken only
// when the network prefers it to passing.
type Learned struct {
	ev  *Evaluator
	Net Network
}

func (l *Learned) SelectNextAction(actorID string, s *model.State, b model.Budget, cfg Config) (Decision, error) {
	lim := newLimiter(cfg)
	cands, err := l.ev.Enumerate(s, actorID, b, cfg)
	if err != nil || len(cands) == 0 {
		return pass(lim.nodes), err
	}
	state := StateFeatures(s, actorID)
	in := make([]float64, FeatureCount)
	copy(in, state)
	best := l.Net.Score(in)
	passScore := best

	dec := pass(0)
	for i, c := range cands {
		if i > 0 && lim.spent() {
			break
		}
		lim.tick()
		p, err := l.ev.Project(s, actorID, b, c)
		if err != nil {
			return pass(lim.nodes), err
		}
		copy(in[StateFeatureCount:], CandidateFeatures(s, actorID, c, p))
		if v := l.Net.Score(in); v > best {
			best = v
			dec = Decision{Candidate: c, Score: v - passScore}
		}
	}
	dec.Depth = 1
	dec.Nodes = lim.nodes
	return dec, nil
}
