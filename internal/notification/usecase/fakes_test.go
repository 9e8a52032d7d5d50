package usecase

import (
	"context"
	"errors"

	"fled-backend/internal/notification/domain"
	schooldomain "fled-backend/internal/school/domain"
	"fled-backend/pkg/identity"
)

// fakeSender records every batch. failBatch/panicBatch are 1-based batch
// numbers; codes marks per-token failures.
type fakeSender struct {
	batches    [][]string
	payloads   []domain.Payload
	failBatch  int
	panicBatch int
	codes      map[string]domain.ErrorCode
}

func (f *fakeSender) SendMulticast(_ context.Context, payload domain.Payload, tokens []string) ([]domain.SendResult, error) {
	f.batches = append(f.batches, append([]string(nil), tokens...))
	f.payloads = append(f.payloads, payload)
	n := len(f.batches)
	if n == f.panicBatch {
		panic("provider blew up")
	}
	if n == f.failBatch {
		return nil, errors.New("unavailable")
	}

	results := make([]domain.SendResult, len(tokens))
	for i, t := range tokens {
		results[i] = domain.SendResult{Token: t, Success: true}
		if code, ok := f.codes[t]; ok && code != domain.ErrorCodeNone {
			results[i] = domain.SendResult{Token: t, Code: code, Err: errors.New(string(code))}
		}
	}
	return results, nil
}

func (f *fakeSender) batchSizes() []int {
	sizes := make([]int, len(f.batches))
	for i, b := range f.batches {
		sizes[i] = len(b)
	}
	return sizes
}

type recordingPurger struct {
	calls [][]string
}

func (p *recordingPurger) Purge(_ context.Context, tokens []string) {
	p.calls = append(p.calls, append([]string(nil), tokens...))
}

func canonicalParent(email string, tokens ...string) schooldomain.Parent {
	key, err := identity.NormalizeEmail(email)
	if err != nil {
		panic(err)
	}
	p := schooldomain.Parent{ID: key, Email: identity.CanonicalEmail(email)}
	for _, t := range tokens {
		p.FCMTokens = append(p.FCMTokens, schooldomain.TokenRecord{Token: t, Device: "web"})
	}
	return p
}
