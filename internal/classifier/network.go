package classifier

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"wifi-pose-backend/internal/models"
)

// ErrIncompatibleModel is returned by Load when the stored topology differs
// from DefaultTopology.
var ErrIncompatibleModel = fmt.Errorf("%w: incompatible model topology", models.ErrConfiguration)

const (
	magic0       = 'C'
	magic1       = 'S'
	versionMajor = 1
	versionMinor = 0
)

// Binary layout of a model file:
//   - all data is little-endian
//   - 4 bytes: 'C', 'S', major version, minor version
//   - 5 x uint32 topology: inputs, hidden, layers, dense, outputs
//   - every parameter matrix as float64, row-major, in Params order:
//     per LSTM layer Wx, Wh, biases, then the dense weights and biases
func (m *Model) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create model directory: %w", err)
		}
	}

	var tmp = path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	if err := m.write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close model file: %w", err)
	}
	return os.Rename(tmp, path)
}

func (m *Model) write(w io.Writer) error {
	var bw = bufio.NewWriter(w)

	if _, err := bw.Write([]byte{magic0, magic1, versionMajor, versionMinor}); err != nil {
		return err
	}

	var t = m.topology
	var buf = make([]byte, 8)
	for _, v := range []uint32{t.Inputs, t.Hidden, t.Layers, t.Dense, t.Outputs} {
		binary.LittleEndian.PutUint32(buf, v)
		if _, err := bw.Write(buf[:4]); err != nil {
			return err
		}
	}

	for _, p := range m.Params() {
		for _, v := range p.Weights.Data {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Load reads a model written by Save. Every failure wraps models.ErrConfiguration.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open model: %v", models.ErrConfiguration, err)
	}
	defer f.Close()

	m, err := read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func read(r io.Reader) (*Model, error) {
	var header = make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", models.ErrConfiguration, err)
	}
	if header[0] != magic0 || header[1] != magic1 {
		return nil, fmt.Errorf("%w: not a model file", models.ErrConfiguration)
	}
	if header[2] != versionMajor || header[3] != versionMinor {
		return nil, fmt.Errorf("%w: unsupported model version %d.%d", models.ErrConfiguration, header[2], header[3])
	}

	var buf = make([]byte, 5*4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: failed to read topology: %v", models.ErrConfiguration, err)
	}
	var t = Topology{
		Inputs:  binary.LittleEndian.Uint32(buf[0:]),
		Hidden:  binary.LittleEndian.Uint32(buf[4:]),
		Layers:  binary.LittleEndian.Uint32(buf[8:]),
		Dense:   binary.LittleEndian.Uint32(buf[12:]),
		Outputs: binary.LittleEndian.Uint32(buf[16:]),
	}
	if t != DefaultTopology() {
		return nil, fmt.Errorf("%w: got %v, want %v", ErrIncompatibleModel, t, DefaultTopology())
	}

	var m = newModel(t)
	buf = make([]byte, 8)
	for _, p := range m.Params() {
		for i := range p.Weights.Data {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("%w: truncated weights: %v", models.ErrConfiguration, err)
			}
			var v = math.Float64frombits(binary.LittleEndian.Uint64(buf))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite weight", models.ErrConfiguration)
			}
			p.Weights.Data[i] = v
		}
	}

	if _, err := r.Read(buf[:1]); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after weights", models.ErrConfiguration)
	}
	return m, nil
}
