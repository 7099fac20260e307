package models

import (
	"fmt"
	"strings"
)

// NumSubcarriers is the width of a single CSI reading
const NumSubcarriers = 30

// NumPoses is the number of pose classes the model distinguishes
const NumPoses = 4

// CSIVector is one Channel State Information reading, one value per subcarrier
type CSIVector [NumSubcarriers]float64

// Pose is the body posture of a detected human
type Pose int

const (
	PoseStand Pose = iota
	PoseSit
	PoseKneel
	PoseSleep
)

// PoseSentinel is stored as the pose label of rows without a human.
// It has no meaning and must never be read as Stand.
const PoseSentinel Pose = 0

var poseNames = [NumPoses]string{"Stand", "Sit", "Kneel", "Sleep"}

// AllPoses lists the pose classes in label order
func AllPoses() []Pose {
	return []Pose{PoseStand, PoseSit, PoseKneel, PoseSleep}
}

// Valid reports whether p is one of the four known poses
func (p Pose) Valid() bool {
	return p >= PoseStand && p <= PoseSleep
}

func (p Pose) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Pose(%d)", int(p))
	}
	return poseNames[p]
}

// ParsePose maps a pose name ("Stand", "sit", ...) to its label
func ParsePose(name string) (Pose, error) {
	for i, n := range poseNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Pose(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown pose %q", ErrInvalidArgument, name)
}

// Label is the ground truth attached to a CSI reading
type Label struct {
	Presence bool `json:"presence"`
	Pose     Pose `json:"pose"`
}

// PoseIsMeaningful is false for rows without a human, whose pose is the sentinel
func (l Label) PoseIsMeaningful() bool {
	return l.Presence
}

// PresenceValue returns the 0/1 encoding of the presence flag
func (l Label) PresenceValue() float64 {
	if l.Presence {
		return 1
	}
	return 0
}

// DatasetRow is one labeled training example
type DatasetRow struct {
	CSI   CSIVector `json:"csi"`
	Label Label     `json:"label"`
}
