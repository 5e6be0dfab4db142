package contract

import "context"

// Extractor parses free-form user text into candidate updates. The
// engine consumes its output and never touches natural language.
type Extractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (ExtractionResult, error)
}

// Responder phrases the next question for the subject from the
// engine's planning output.
type Responder interface {
	Question(ctx context.Context, req QuestionRequest) (string, error)
}

// MatchSink receives the final snapshot once intake completes.
type MatchSink interface {
	Ready(ctx context.Context, snapshot MatchSnapshot) error
}
