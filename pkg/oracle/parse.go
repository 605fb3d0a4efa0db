package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"mercator-hq/saturn/pkg/compliance"
)

// parseJudgment parses raw oracle output into a Judgment.
// The oracle is expected to return JSON matching the Judgment schema, but
// may wrap it in markdown fences or surrounding prose. Anything that cannot
// be reduced to a valid judgment yields an OracleMalformedResponseError.
func parseJudgment(raw []byte) (*Judgment, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, compliance.NewOracleMalformedResponseError(string(raw), err)
	}

	// Decode into an envelope first so a missing confidence field can be
	// told apart from an explicit zero.
	var envelope struct {
		IsCompliant *bool    `json:"is_compliant"`
		Confidence  *float64 `json:"confidence"`
		Rationale   string   `json:"rationale"`
		Citations   []string `json:"citations"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, compliance.NewOracleMalformedResponseError(string(raw), err)
	}
	if envelope.IsCompliant == nil {
		return nil, compliance.NewOracleMalformedResponseError(string(raw),
			fmt.Errorf("missing required field is_compliant"))
	}
	if envelope.Confidence == nil {
		return nil, compliance.NewOracleMalformedResponseError(string(raw),
			fmt.Errorf("missing required field confidence"))
	}
	if *envelope.Confidence < 0 || *envelope.Confidence > 1 {
		return nil, compliance.NewOracleMalformedResponseError(string(raw),
			fmt.Errorf("confidence %v outside [0,1]", *envelope.Confidence))
	}

	return &Judgment{
		IsCompliant: *envelope.IsCompliant,
		Confidence:  *envelope.Confidence,
		Rationale:   envelope.Rationale,
		Citations:   envelope.Citations,
	}, nil
}

// parseClassification parses raw oracle output into a Classification.
func parseClassification(raw []byte) (*Classification, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, compliance.NewOracleMalformedResponseError(string(raw), err)
	}

	var envelope struct {
		ShouldCreateException *bool                    `json:"should_create_exception"`
		RuleType              string                   `json:"rule_type"`
		Vendor                string                   `json:"vendor"`
		Category              string                   `json:"category"`
		Description           string                   `json:"description"`
		Condition             compliance.RuleCondition `json:"condition"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, compliance.NewOracleMalformedResponseError(string(raw), err)
	}
	if envelope.ShouldCreateException == nil {
		return nil, compliance.NewOracleMalformedResponseError(string(raw),
			fmt.Errorf("missing required field should_create_exception"))
	}

	c := &Classification{
		ShouldCreateException: *envelope.ShouldCreateException,
		Vendor:                envelope.Vendor,
		Category:              envelope.Category,
		Description:           envelope.Description,
		Condition:             envelope.Condition,
	}

	if c.ShouldCreateException {
		switch compliance.RuleType(envelope.RuleType) {
		case compliance.RuleVendor, compliance.RuleCategory, compliance.RuleThreshold:
			c.RuleType = compliance.RuleType(envelope.RuleType)
		default:
			return nil, compliance.NewOracleMalformedResponseError(string(raw),
				fmt.Errorf("unknown rule_type %q", envelope.RuleType))
		}
	}

	return c, nil
}

// extractJSON reduces raw oracle output to the JSON object it contains.
// It tolerates markdown code fences and surrounding prose by slicing from
// the first '{' to the last '}'.
func extractJSON(raw []byte) ([]byte, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil, fmt.Errorf("empty response")
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	return []byte(s[start : end+1]), nil
}
