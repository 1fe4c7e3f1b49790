package domain

import "context"

// AdmissionInput is what the seal-admission policy sees about one intake
// request. Payload bytes never reach the policy.
type AdmissionInput struct {
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	Actor       string `json:"actor"`
	MemberCount int    `json:"member_count,omitempty"`
}

type AdmissionResult struct {
	Allow bool     `json:"allow"`
	Deny  []Denial `json:"deny,omitempty"`
}

type Denial struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AdmissionPolicy gates seal requests. A nil policy admits everything.
type AdmissionPolicy interface {
	Evaluate(ctx context.Context, input AdmissionInput) (AdmissionResult, error)
}
