package dataset

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"golang.org/x/sync/errgroup"

	"wifi-pose-backend/internal/models"
	"wifi-pose-backend/internal/signal"
)

// Builder generates labeled synthetic rows. It shares one random source
// with its synthesizer, so a fixed seed reproduces the whole dataset.
type Builder struct {
	rnd        *rand.Rand
	synth      *signal.Synthesizer
	noiseLevel float64
}

func NewBuilder(rnd *rand.Rand) *Builder {
	return &Builder{
		rnd:        rnd,
		synth:      signal.NewSynthesizer(rnd),
		noiseLevel: signal.DefaultNoiseLevel,
	}
}

// SetNoiseLevel changes the Gaussian noise added to rows with a human
func (b *Builder) SetNoiseLevel(level float64) error {
	if !(level >= 0) || math.IsInf(level, 1) {
		return fmt.Errorf("%w: noise level must be a non-negative number, got %v", models.ErrInvalidArgument, level)
	}
	b.noiseLevel = level
	return nil
}

// Stream sends n rows to out. Presence is drawn from Bernoulli(presenceProbability),
// the pose uniformly when present. Stream does not close out.
func (b *Builder) Stream(ctx context.Context, n int, presenceProbability float64, out chan<- models.DatasetRow) error {
	if n < 0 {
		return fmt.Errorf("%w: sample count must be non-negative, got %d", models.ErrInvalidArgument, n)
	}
	if !(presenceProbability >= 0 && presenceProbability <= 1) {
		return fmt.Errorf("%w: presence probability must be in [0, 1], got %v", models.ErrInvalidArgument, presenceProbability)
	}

	for i := 0; i < n; i++ {
		var label models.Label
		label.Presence = b.rnd.Float64() < presenceProbability
		if label.Presence {
			label.Pose = models.Pose(b.rnd.Intn(models.NumPoses))
		} else {
			label.Pose = models.PoseSentinel
		}

		row, err := b.row(label)
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- row:
		}
	}
	return nil
}

// Build collects a full Stream run
func (b *Builder) Build(ctx context.Context, n int, presenceProbability float64) ([]models.DatasetRow, error) {
	g, ctx := errgroup.WithContext(ctx)

	var rows = make(chan models.DatasetRow, 128)

	g.Go(func() error {
		defer close(rows)
		return b.Stream(ctx, n, presenceProbability, rows)
	})

	var result = make([]models.DatasetRow, 0, max(n, 0))

	g.Go(func() error {
		for row := range rows {
			result = append(result, row)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// Condition is a fixed recording scenario used for stratified sample files
type Condition struct {
	Name  string
	Label models.Label
}

var conditions = []Condition{
	{Name: "stand", Label: models.Label{Presence: true, Pose: models.PoseStand}},
	{Name: "sit", Label: models.Label{Presence: true, Pose: models.PoseSit}},
	{Name: "kneel", Label: models.Label{Presence: true, Pose: models.PoseKneel}},
	{Name: "sleep", Label: models.Label{Presence: true, Pose: models.PoseSleep}},
	{Name: "no_human", Label: models.Label{Presence: false, Pose: models.PoseSentinel}},
}

// AllConditions lists stand, sit, kneel, sleep and no_human
func AllConditions() []Condition {
	var result = make([]Condition, len(conditions))
	copy(result, conditions)
	return result
}

func ParseCondition(name string) (Condition, error) {
	var key = strings.ToLower(strings.TrimSpace(name))
	for _, c := range conditions {
		if c.Name == key {
			return c, nil
		}
	}
	return Condition{}, fmt.Errorf("%w: unknown condition %q", models.ErrInvalidArgument, name)
}

// BuildStratified produces exactly perCondition rows for each condition,
// optionally shuffled. No labels are sampled.
func (b *Builder) BuildStratified(conds []Condition, perCondition int, shuffle bool) ([]models.DatasetRow, error) {
	if perCondition < 0 {
		return nil, fmt.Errorf("%w: per-condition count must be non-negative, got %d", models.ErrInvalidArgument, perCondition)
	}

	var result = make([]models.DatasetRow, 0, len(conds)*perCondition)
	for _, c := range conds {
		for i := 0; i < perCondition; i++ {
			row, err := b.row(c.Label)
			if err != nil {
				return nil, fmt.Errorf("failed to synthesize %s sample: %w", c.Name, err)
			}
			result = append(result, row)
		}
	}

	if shuffle {
		b.rnd.Shuffle(len(result), func(i, j int) {
			result[i], result[j] = result[j], result[i]
		})
	}
	return result, nil
}

func (b *Builder) row(label models.Label) (models.DatasetRow, error) {
	csi, err := b.synth.Synthesize(label.Pose, label.Presence, b.noiseLevel)
	if err != nil {
		return models.DatasetRow{}, err
	}
	return models.DatasetRow{CSI: csi, Label: label}, nil
}

// Split shuffles a copy of rows and cuts it after firstLen rows (clamped to
// the row count). The input slice is not modified.
func Split(rows []models.DatasetRow, rnd *rand.Rand, firstLen int) (first, second []models.DatasetRow) {
	var shuffled = make([]models.DatasetRow, len(rows))
	copy(shuffled, rows)
	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var cut = min(max(firstLen, 0), len(shuffled))
	return shuffled[:cut], shuffled[cut:]
}

// TrainValidationSplit keeps int(n*(1-validationRatio)) rows for training
// and the rest for validation
func TrainValidationSplit(rows []models.DatasetRow, rnd *rand.Rand, validationRatio float64) (training, validation []models.DatasetRow) {
	return Split(rows, rnd, int(float64(len(rows))*(1-validationRatio)))
}

// HoldOut sets aside int(n*testRatio) rows for testing
func HoldOut(rows []models.DatasetRow, rnd *rand.Rand, testRatio float64) (rest, test []models.DatasetRow) {
	return Split(rows, rnd, len(rows)-int(float64(len(rows))*testRatio))
}
