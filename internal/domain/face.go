package domain

// FaceBox is a detected face region in frame pixel coordinates.
// It carries presence only; identity matching happens on the backend.
type FaceBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Score  float64 `json:"score"`
}
