package ml

import (
	"math"
	"math/rand"
)

type Neuron struct {
	Activation float64
	Error      float64
	Prime      float64
}

// DenseLayer is a fully connected layer. Forward writes into a caller-owned
// output slice so one layer can serve many concurrent forward passes.
type DenseLayer struct {
	activationFn IActivationFn
	Weights      Matrix
	Biases       Matrix
	wGradients   Gradients
	bGradients   Gradients
}

func NewDenseLayer(inputSize, outputSize int, activationFn IActivationFn) *DenseLayer {
	return &DenseLayer{
		activationFn: activationFn,
		Weights:      NewMatrix(outputSize, inputSize),
		Biases:       NewMatrix(outputSize, 1),
		wGradients:   NewGradients(outputSize, inputSize),
		bGradients:   NewGradients(outputSize, 1),
	}
}

// InitFanIn draws weights and biases from U(-1/sqrt(fan_in), 1/sqrt(fan_in))
func (layer *DenseLayer) InitFanIn(rnd *rand.Rand) *DenseLayer {
	var bound = 1 / math.Sqrt(float64(layer.Weights.Cols))
	InitUniform(rnd, layer.Weights.Data, bound)
	InitUniform(rnd, layer.Biases.Data, bound)
	return layer
}

func (layer *DenseLayer) InputSize() int  { return layer.Weights.Cols }
func (layer *DenseLayer) OutputSize() int { return layer.Weights.Rows }

func (layer *DenseLayer) Forward(input []float64, outputs []Neuron) {
	for outputIndex := range outputs {
		var x = layer.Biases.Data[outputIndex]
		for inputIndex, inputValue := range input {
			x += layer.Weights.Get(outputIndex, inputIndex) * inputValue
		}
		var n = &outputs[outputIndex]
		n.Activation = layer.activationFn.Sigma(x)
		n.Prime = layer.activationFn.SigmaPrime(x)
		n.Error = 0
	}
}

// Backward accumulates gradients from outputs[i].Error and returns the
// error with respect to input.
func (layer *DenseLayer) Backward(input []float64, outputs []Neuron) []float64 {
	var inputErrors = make([]float64, len(input))
	for outputIndex := range outputs {
		var n = &outputs[outputIndex]
		var x = n.Error * n.Prime
		if x == 0 {
			continue
		}
		layer.bGradients.Add(outputIndex, 0, x)
		layer.wGradients.AddScaledRow(outputIndex, x, input)
		for inputIndex := range inputErrors {
			inputErrors[inputIndex] += layer.Weights.Get(outputIndex, inputIndex) * x
		}
	}
	return inputErrors
}

func (layer *DenseLayer) Params() []Param {
	return []Param{
		{Weights: &layer.Weights, Gradients: &layer.wGradients},
		{Weights: &layer.Biases, Gradients: &layer.bGradients},
	}
}

// Activations copies the neuron activations into a plain vector
func Activations(neurons []Neuron) []float64 {
	var result = make([]float64, len(neurons))
	for i := range neurons {
		result[i] = neurons[i].Activation
	}
	return result
}
