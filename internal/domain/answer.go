package domain

// Mode records which branch of the fallback chain produced an answer.
type Mode int

const (
	ModeGenerated Mode = iota
	ModeRetrievalFallback
	ModeDirectCompute
	ModeNotFound
)

func (m Mode) String() string {
	switch m {
	case ModeGenerated:
		return "generated"
	case ModeRetrievalFallback:
		return "retrieval_fallback"
	case ModeDirectCompute:
		return "direct_compute"
	case ModeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// MaxSupportingPassages caps the passages attached to an AnswerResult.
const MaxSupportingPassages = 5

// AnswerResult is the composed answer for one question. It is not mutated
// after being returned.
type AnswerResult struct {
	Text     string
	Passages []Passage
	Mode     Mode
	Route    RouteDecision
	// Err is set on ModeNotFound results and wraps ErrNoDataFound.
	Err      error
}

// PassageTexts returns the content of each supporting passage in order.
func (a AnswerResult) PassageTexts() []string {
	out := make([]string, len(a.Passages))
	for i, p := range a.Passages {
		out[i] = p.Content
	}
	return out
}
