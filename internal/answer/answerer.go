package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tarix-ai/tarix/internal/metrics"
	"github.com/tarix-ai/tarix/internal/models"
	"github.com/tarix-ai/tarix/internal/retriever"
)

// Result is a synthesized answer with its reference URLs.
type Result struct {
	Response string   `json:"response"`
	Sources  []string `json:"sources"`
}

// Answerer composes retrieval, context assembly, and answer generation.
type Answerer struct {
	retriever *retriever.Retriever
	generator Generator
	topK      int
	logger    *slog.Logger
}

// New creates an Answerer. topK is the number of records retrieved as
// grounding context per question.
func New(ret *retriever.Retriever, gen Generator, topK int, logger *slog.Logger) *Answerer {
	return &Answerer{
		retriever: ret,
		generator: gen,
		topK:      topK,
		logger:    logger,
	}
}

// Answer retrieves the records nearest the question, assembles the context
// block, and asks the generator for an answer. When retrieval finds
// nothing the fixed no-data response is returned and the generator is not
// invoked.
func (a *Answerer) Answer(ctx context.Context, question string) (*Result, error) {
	results, err := a.retriever.Search(ctx, question, a.topK)
	if err != nil {
		return nil, err
	}

	records := make([]models.TariffRecord, len(results))
	for i := range results {
		records[i] = results[i].Record
	}

	contextText := AssembleContext(records)
	sources := Sources(records)

	if contextText == "" {
		a.logger.Info("no relevant records retrieved, skipping generation", "question_len", len(question))
		return &Result{Response: NoDataResponse, Sources: sources}, nil
	}

	response, err := a.generator.Generate(ctx, contextText, question)
	if err != nil {
		return nil, fmt.Errorf("synthesizing answer: %w", err)
	}

	metrics.Inc(metrics.AnswerTotal)
	return &Result{Response: response, Sources: sources}, nil
}
