package classifier

import "context"

// Detection is what an external language detector reports back.
type Detection struct {
	Language   string
	Confidence float64
}

// Detector identifies the language of a text. Implementations may call out
// over the network; the classifier only escalates to one when its local
// heuristics are not confident.
type Detector interface {
	DetectLanguage(ctx context.Context, text string) (Detection, error)
}
