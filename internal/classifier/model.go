package classifier

import (
	"fmt"
	"hash/crc32"
	"math"
	"math/rand"

	"wifi-pose-backend/internal/ml"
	"wifi-pose-backend/internal/models"
)

// PresenceOutput is the index of the presence logit; the pose logits follow it.
const PresenceOutput = 0

type Topology struct {
	Inputs  uint32
	Hidden  uint32
	Layers  uint32
	Dense   uint32
	Outputs uint32
}

// DefaultTopology is the only topology the service accepts:
// 2 LSTM layers of 64 units over 30 subcarriers, dense 32, 1 presence + 4 pose outputs.
func DefaultTopology() Topology {
	return Topology{
		Inputs:  models.NumSubcarriers,
		Hidden:  64,
		Layers:  2,
		Dense:   32,
		Outputs: 1 + models.NumPoses,
	}
}

func (t Topology) String() string {
	return fmt.Sprintf("lstm%dx%dx%d-dense%d-out%d", t.Inputs, t.Hidden, t.Layers, t.Dense, t.Outputs)
}

// Model is a stacked LSTM encoder followed by a two-layer head. Forward and
// Predict only read parameters and may be called concurrently; Backward and
// ApplyGradients must not run alongside them.
type Model struct {
	topology Topology
	lstm     []*ml.LSTMLayer
	hidden   *ml.DenseLayer
	output   *ml.DenseLayer
}

// Output is the decoded head of one forward pass
type Output struct {
	Presence   float64
	PoseLogits [models.NumPoses]float64
}

func newModel(t Topology) *Model {
	var m = &Model{topology: t}
	var inputs = int(t.Inputs)
	for i := 0; i < int(t.Layers); i++ {
		m.lstm = append(m.lstm, ml.NewLSTMLayer(inputs, int(t.Hidden)))
		inputs = int(t.Hidden)
	}
	m.hidden = ml.NewDenseLayer(int(t.Hidden), int(t.Dense), &ml.ReLuActivation{})
	m.output = ml.NewDenseLayer(int(t.Dense), int(t.Outputs), &ml.IdentityActivation{})
	return m
}

// NewModel returns a randomly initialized model with the default topology
func NewModel(rnd *rand.Rand) *Model {
	var m = newModel(DefaultTopology())
	for _, layer := range m.lstm {
		layer.InitUniform(rnd)
	}
	m.hidden.InitFanIn(rnd)
	m.output.InitFanIn(rnd)
	return m
}

func (m *Model) Topology() Topology {
	return m.topology
}

// Sequence turns one CSI reading into a model input: a single timestep
// whose 30 channels are the subcarrier amplitudes.
func Sequence(csi models.CSIVector) [][]float64 {
	var x = make([]float64, models.NumSubcarriers)
	copy(x, csi[:])
	return [][]float64{x}
}

// Trace keeps the activations of one forward pass for Backward
type Trace struct {
	lstm   []*ml.LSTMTrace
	hidden []ml.Neuron
	output []ml.Neuron
	Output Output
}

func (m *Model) Forward(sequence [][]float64) *Trace {
	var trace = &Trace{
		lstm:   make([]*ml.LSTMTrace, len(m.lstm)),
		hidden: make([]ml.Neuron, m.hidden.OutputSize()),
		output: make([]ml.Neuron, m.output.OutputSize()),
	}
	var xs = sequence
	for i, layer := range m.lstm {
		trace.lstm[i] = layer.Forward(xs)
		xs = trace.lstm[i].Outputs()
	}
	var last = trace.lstm[len(m.lstm)-1].Last()
	m.hidden.Forward(last, trace.hidden)
	m.output.Forward(ml.Activations(trace.hidden), trace.output)

	trace.Output.Presence = ml.Sigmoid(trace.output[PresenceOutput].Activation)
	for i := range trace.Output.PoseLogits {
		trace.Output.PoseLogits[i] = trace.output[PresenceOutput+1+i].Activation
	}
	return trace
}

// Predict runs the model on a single CSI vector
func (m *Model) Predict(csi models.CSIVector) Output {
	return m.Forward(Sequence(csi)).Output
}

// Backward accumulates parameter gradients given the loss gradient with
// respect to each raw output (presence logit first).
func (m *Model) Backward(trace *Trace, outputErrors []float64) {
	for i := range trace.output {
		trace.output[i].Error = outputErrors[i]
	}
	var hiddenErrors = m.output.Backward(ml.Activations(trace.hidden), trace.output)
	for i := range trace.hidden {
		trace.hidden[i].Error = hiddenErrors[i]
	}

	var top = trace.lstm[len(m.lstm)-1]
	var dh = make([][]float64, len(top.Steps))
	dh[len(dh)-1] = m.hidden.Backward(top.Last(), trace.hidden)
	for i := len(m.lstm) - 1; i >= 0; i-- {
		dh = m.lstm[i].Backward(trace.lstm[i], dh)
	}
}

// Params lists every trainable matrix in serialization order
func (m *Model) Params() []ml.Param {
	var params []ml.Param
	for _, layer := range m.lstm {
		params = append(params, layer.Params()...)
	}
	params = append(params, m.hidden.Params()...)
	params = append(params, m.output.Params()...)
	return params
}

// Fingerprint is a checksum of the weights, used to tag predictions
func (m *Model) Fingerprint() string {
	var h = crc32.NewIEEE()
	var buf [8]byte
	for _, p := range m.Params() {
		for _, v := range p.Weights.Data {
			var bits = math.Float64bits(v)
			for i := range buf {
				buf[i] = byte(bits >> (8 * i))
			}
			h.Write(buf[:])
		}
	}
	return fmt.Sprintf("%08x", h.Sum32())
}

// Version identifies both the architecture and the weights
func (m *Model) Version() string {
	return m.topology.String() + "-" + m.Fingerprint()
}
