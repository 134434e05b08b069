package ratelimit

import "github.com/danielgtaylor/huma/v2"

// PolicyFor returns the Policy attached to op through MetadataKey.
// Operations without one are not rate limited.
func PolicyFor(op *huma.Operation) (Policy, bool) {
	if op == nil || op.Metadata == nil {
		return Policy{}, false
	}

	p, ok := op.Metadata[MetadataKey].(Policy)
	if !ok || p.IsZero() {
		return Policy{}, false
	}

	return p, true
}

// Metadata returns operation metadata that attaches p to an operation.
func (p Policy) Metadata() map[string]any {
	return map[string]any{MetadataKey: p}
}
