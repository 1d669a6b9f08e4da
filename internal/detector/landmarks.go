// Package detector provides hand landmark inference interfaces and types.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// MaxHands is the number of hands the model is configured to report.
const MaxHands = 2

// UnknownHandedness is used when the model reports no handedness category.
const UnknownHandedness = "Unknown"

// Landmark is the normalized 3D position of one hand keypoint.
type Landmark struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// Hand is one detected hand. Landmarks keep the model's ordering and count.
type Hand struct {
	Landmarks  []Landmark `json:"landmarks" msgpack:"landmarks"`
	Handedness string     `json:"handedness" msgpack:"handedness"` // "Left", "Right" or "Unknown"
}

// MultiHandLandmarks is the result of one inference cycle, in detection order.
type MultiHandLandmarks struct {
	Hands []Hand `json:"hands" msgpack:"hands"`
}

// HasHands reports whether at least one hand is present. Safe on nil.
func (m *MultiHandLandmarks) HasHands() bool {
	return m != nil && len(m.Hands) > 0
}

// Category is one ranked classification entry returned by the model.
type Category struct {
	Index        int     `json:"index" msgpack:"index"`
	Score        float64 `json:"score" msgpack:"score"`
	CategoryName string  `json:"category_name" msgpack:"category_name"`
}

// Result is the raw output of a single inference call. Landmarks and
// Handedness are parallel slices indexed by hand.
type Result struct {
	Landmarks  [][]Landmark `msgpack:"landmarks"`
	Handedness [][]Category `msgpack:"handedness"`
}

// ToMultiHand converts a raw model result into MultiHandLandmarks,
// attaching the top-ranked handedness label to each hand.
// Returns nil when no hands were detected.
func ToMultiHand(res *Result) *MultiHandLandmarks {
	if res == nil || len(res.Landmarks) == 0 {
		return nil
	}

	out := &MultiHandLandmarks{
		Hands: make([]Hand, 0, len(res.Landmarks)),
	}

	for i, raw := range res.Landmarks {
		hand := Hand{
			Landmarks:  make([]Landmark, len(raw)),
			Handedness: UnknownHandedness,
		}
		copy(hand.Landmarks, raw)

		if i < len(res.Handedness) {
			if best, ok := topCategory(res.Handedness[i]); ok {
				hand.Handedness = best.CategoryName
			}
		}

		out.Hands = append(out.Hands, hand)
	}

	return out
}

// topCategory returns the highest scoring category.
func topCategory(categories []Category) (Category, bool) {
	if len(categories) == 0 {
		return Category{}, false
	}

	best := categories[0]
	for _, c := range categories[1:] {
		if c.Score > best.Score {
			best = c
		}
	}

	if best.CategoryName == "" {
		return best, false
	}
	return best, true
}
