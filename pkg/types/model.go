package types

// ModelStatus describes the embedding model's lifecycle stage.
type ModelStatus string

const (
	ModelUnloaded ModelStatus = "unloaded"
	ModelLoading  ModelStatus = "loading"
	ModelReady    ModelStatus = "ready"
	ModelFailed   ModelStatus = "failed"
)

// ModelState is the embedding provider's externally visible state. Progress
// is monotonically non-decreasing while Loading and snaps to 100 on Ready.
type ModelState struct {
	Status      ModelStatus
	Progress    int // 0-100
	ErrorDetail string
}

// Usable reports whether the model can serve embed calls.
func (s ModelState) Usable() bool {
	return s.Status == ModelReady
}

// Clamp normalizes the progress field into [0, 100] and caps it at 99 unless
// the model is Ready. Providers call it before publishing state.
func (s ModelState) Clamp() ModelState {
	if s.Progress < 0 {
		s.Progress = 0
	}
	switch {
	case s.Status == ModelReady:
		s.Progress = 100
	case s.Progress > 99:
		s.Progress = 99
	}
	return s
}
