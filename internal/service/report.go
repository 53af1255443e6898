package service

import (
	"context"
	"log"
	"time"

	"github.com/creditlens/creditlens/internal/domain"
	"github.com/creditlens/creditlens/internal/telemetry"
)

// FailedAnswerPlaceholder is recorded for a question whose completion call
// failed. One bad answer degrades the report instead of voiding the other 28.
const FailedAnswerPlaceholder = "answer not available due to a generation error"

// Completer defines the interface for LLM completions.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ChunkRetriever defines the interface the synthesizer needs from retrieval.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, question string) ([]domain.Chunk, error)
}

// ReportService walks the question bank and produces a report transcript, one
// completion call per question.
type ReportService struct {
	bank       domain.QuestionBank
	retriever  ChunkRetriever
	completer  Completer
	llmTimeout time.Duration
}

// NewReportService creates a new ReportService instance. The question bank is
// loaded once and never mutated afterwards.
func NewReportService(bank domain.QuestionBank, retriever ChunkRetriever, completer Completer, llmTimeout time.Duration) (*ReportService, error) {
	if err := domain.ValidateQuestionBank(bank); err != nil {
		return nil, err
	}

	return &ReportService{
		bank:       bank,
		retriever:  retriever,
		completer:  completer,
		llmTimeout: llmTimeout,
	}, nil
}

// Synthesize traverses the question bank in section order and answers each
// question in turn: substitute the company name, retrieve supporting chunks,
// fuse them with the uploaded-document text, and ask the model. Exactly one
// completion call per question, sequentially.
//
// Retrieval failures abort the whole run since every remaining question would
// hit the same broken index. A failed completion is isolated: the question
// gets a placeholder answer and synthesis continues.
func (s *ReportService) Synthesize(ctx context.Context, baseContext, companyName string) (domain.Transcript, error) {
	if companyName == "" {
		return nil, domain.ErrMissingCompanyName
	}

	ctx, span := telemetry.StartSpan(ctx, "ReportService.Synthesize", telemetry.SpanAttributes{
		Company:   companyName,
		Operation: "synthesize",
	})
	defer span.End()

	transcript := make(domain.Transcript, 0, s.bank.NumQuestions())

	for _, section := range s.bank {
		for _, template := range section.Templates {
			question := domain.ResolveTemplate(template, companyName)

			retrieved, err := s.retriever.Retrieve(ctx, question)
			if err != nil {
				span.SetError(err)
				return nil, err
			}

			fullContext := FuseContext(baseContext, retrieved)
			prompt := FormatReportPrompt(fullContext, question)

			answer, err := s.complete(ctx, prompt)
			if err != nil {
				log.Printf("report: completion failed for question %q: %v", question, err)
				telemetry.CaptureError(ctx, err)
				answer = FailedAnswerPlaceholder
			}

			transcript = append(transcript, domain.Entry{Question: question, Answer: answer})
		}
	}

	return transcript, nil
}

// complete bounds one completion call with the configured timeout. Expiry and
// backend failures both surface as LLM invocation errors.
func (s *ReportService) complete(ctx context.Context, prompt string) (string, error) {
	if s.llmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.llmTimeout)
		defer cancel()
	}

	answer, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeLLMInvocation,
			"completion call failed", err)
	}
	return answer, nil
}
