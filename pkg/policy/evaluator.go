package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/memory"
	"mercator-hq/saturn/pkg/oracle"
	"mercator-hq/saturn/pkg/policy/corpus"
	"mercator-hq/saturn/pkg/telemetry/metrics"
)

// uncertainConfidenceFloor is the confidence below which a parsed judgment is
// downgraded to uncertain regardless of its compliance flag.
const uncertainConfidenceFloor = 0.6

// Evaluation is the outcome of one policy evaluation. The verdict is always
// non-nil; MatchedRules lists the exception rules that were in scope and
// included in the oracle prompt.
type Evaluation struct {
	Verdict      *compliance.Verdict
	MatchedRules []compliance.MatchedRule
	Passages     []oracle.PolicyPassage
}

// Evaluator assembles policy context and consults the decision oracle.
type Evaluator struct {
	corpus  *corpus.Corpus
	memory  memory.Store
	oracle  oracle.Oracle
	topK    int
	retries int

	oracleMetrics *metrics.OracleMetrics
	logger        *slog.Logger
}

// NewEvaluator creates a policy evaluator. topK bounds the corpus passages
// per prompt; retries bounds simplified-prompt retries after a first failed
// oracle call. Metrics may be nil.
func NewEvaluator(c *corpus.Corpus, mem memory.Store, o oracle.Oracle, topK, retries int, om *metrics.OracleMetrics) *Evaluator {
	if topK <= 0 {
		topK = 5
	}
	if retries < 0 {
		retries = 0
	}
	return &Evaluator{
		corpus:        c,
		memory:        mem,
		oracle:        o,
		topK:          topK,
		retries:       retries,
		oracleMetrics: om,
		logger:        slog.Default().With("component", "policy.evaluator"),
	}
}

// Evaluate produces a compliance verdict for the transaction. It never
// returns an error: oracle failures degrade the verdict to uncertain with a
// recorded failure reason, and memory lookup failures shrink the prompt
// context rather than aborting.
func (e *Evaluator) Evaluate(ctx context.Context, tx *compliance.Transaction) *Evaluation {
	passages := e.searchCorpus(tx)
	rules := e.lookupRules(ctx, tx)

	matched := make([]compliance.MatchedRule, 0, len(rules))
	exceptions := make([]compliance.ExceptionRule, 0, len(rules))
	for _, r := range rules {
		matched = append(matched, compliance.MatchedRule{
			RuleID:      r.ID,
			RuleType:    string(r.RuleType),
			SuccessRate: r.SuccessRate,
		})
		exceptions = append(exceptions, *r)
	}

	req := &oracle.JudgmentRequest{
		TransactionID: tx.ID,
		Invoice:       tx.Invoice,
		RiskScore:     tx.RiskScore,
		RiskLevel:     tx.RiskLevel,
		Passages:      passages,
		Exceptions:    exceptions,
	}

	verdict := e.judge(ctx, req)

	return &Evaluation{
		Verdict:      verdict,
		MatchedRules: matched,
		Passages:     passages,
	}
}

// judge calls the oracle, retrying once with a simplified prompt on failure,
// and maps the judgment (or the failure) to a verdict.
func (e *Evaluator) judge(ctx context.Context, req *oracle.JudgmentRequest) *compliance.Verdict {
	judgment, err := e.oracle.JudgeCompliance(ctx, req)

	for attempt := 0; err != nil && attempt < e.retries; attempt++ {
		e.logger.Warn("oracle judgment failed, retrying with simplified prompt",
			"transaction_id", req.TransactionID,
			"attempt", attempt+1,
			"error", err,
		)
		simplified := &oracle.JudgmentRequest{
			TransactionID: req.TransactionID,
			Invoice:       req.Invoice,
			RiskScore:     req.RiskScore,
			RiskLevel:     req.RiskLevel,
			Simplified:    true,
		}
		judgment, err = e.oracle.JudgeCompliance(ctx, simplified)
	}

	if err != nil {
		reason := failureReason(err)
		e.oracleMetrics.RecordDegradation(reason)
		e.logger.Warn("oracle judgment degraded to uncertain",
			"transaction_id", req.TransactionID,
			"reason", reason,
		)
		return &compliance.Verdict{
			Status:        compliance.StatusUncertain,
			Confidence:    0,
			FailureReason: reason,
		}
	}

	if judgment.Confidence < uncertainConfidenceFloor {
		return &compliance.Verdict{
			Status:     compliance.StatusUncertain,
			Confidence: judgment.Confidence,
			Rationale:  judgment.Rationale,
			Citations:  judgment.Citations,
		}
	}

	status := compliance.StatusNonCompliant
	if judgment.IsCompliant {
		status = compliance.StatusCompliant
	}
	return &compliance.Verdict{
		Status:     status,
		Confidence: judgment.Confidence,
		Rationale:  judgment.Rationale,
		Citations:  judgment.Citations,
	}
}

// searchCorpus builds keywords from the transaction and ranks corpus
// passages. A nil corpus yields no passages.
func (e *Evaluator) searchCorpus(tx *compliance.Transaction) []oracle.PolicyPassage {
	if e.corpus == nil {
		return nil
	}

	results := e.corpus.Search(buildKeywords(tx), e.topK)
	passages := make([]oracle.PolicyPassage, 0, len(results))
	for _, p := range results {
		passages = append(passages, oracle.PolicyPassage{
			DocumentID: p.DocumentID,
			Title:      p.Title,
			Text:       p.Text,
			Score:      p.Score,
		})
	}
	return passages
}

// lookupRules fetches in-scope exception rules. Lookup failures are logged
// and treated as a miss.
func (e *Evaluator) lookupRules(ctx context.Context, tx *compliance.Transaction) []*compliance.ExceptionRule {
	if e.memory == nil {
		return nil
	}

	rules, err := e.memory.Lookup(ctx, tx.Invoice.Vendor, tx.Invoice.Category)
	if err != nil {
		e.logger.Warn("memory lookup failed, evaluating without exception rules",
			"transaction_id", tx.ID,
			"error", err,
		)
		return nil
	}
	return rules
}

// buildKeywords derives search terms from the invoice and risk assessment.
func buildKeywords(tx *compliance.Transaction) []string {
	keywords := []string{
		tx.Invoice.Vendor,
		tx.Invoice.Category,
		tx.Invoice.Currency,
		strings.ToLower(string(tx.RiskLevel)) + " risk",
	}
	if tx.Invoice.International {
		keywords = append(keywords, "international cross border")
	}
	if !tx.Invoice.HasPO {
		keywords = append(keywords, "missing purchase order")
	}
	for _, item := range tx.Invoice.LineItems {
		keywords = append(keywords, item.Description)
	}
	keywords = append(keywords, fmt.Sprintf("amount %.0f", tx.Invoice.Amount))
	return keywords
}

// failureReason maps an oracle error to a degradation reason label.
func failureReason(err error) string {
	var unavailable *compliance.OracleUnavailableError
	if errors.As(err, &unavailable) {
		return "unavailable"
	}
	var malformed *compliance.OracleMalformedResponseError
	if errors.As(err, &malformed) {
		return "malformed"
	}
	return "error"
}
