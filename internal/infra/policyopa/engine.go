// Package policyopa evaluates the optional seal-admission policy: a Rego
// bundle deciding which intake requests may be sealed (content types,
// size ceilings, actor restrictions). No policy configured means all
// requests are admitted.
package policyopa

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"seald/internal/domain"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.seald.admission.result"

type Engine struct {
	query rego.PreparedEvalQuery
}

var _ domain.AdmissionPolicy = (*Engine)(nil)

func NewEngineFromPath(ctx context.Context, policyPath string) (*Engine, error) {
	if policyPath == "" {
		return nil, errors.New("policy path is required")
	}
	r := rego.New(
		rego.Query(defaultQuery),
		rego.StrictBuiltinErrors(true),
		rego.Load([]string{policyPath}, nil),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	return &Engine{query: prepared}, nil
}

func (e *Engine) Evaluate(ctx context.Context, input domain.AdmissionInput) (domain.AdmissionResult, error) {
	if e == nil {
		return domain.AdmissionResult{Allow: true}, nil
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.AdmissionResult{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.AdmissionResult{}, errors.New("empty policy result")
	}
	result, err := decodeResult(results[0].Expressions[0].Value)
	if err != nil {
		return domain.AdmissionResult{}, err
	}
	sort.Slice(result.Deny, func(i, j int) bool {
		if result.Deny[i].Code == result.Deny[j].Code {
			return result.Deny[i].Message < result.Deny[j].Message
		}
		return result.Deny[i].Code < result.Deny[j].Code
	})
	return result, nil
}

func decodeResult(value any) (domain.AdmissionResult, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return domain.AdmissionResult{}, err
	}
	var result domain.AdmissionResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return domain.AdmissionResult{}, err
	}
	return result, nil
}
