// Package mocks holds generated type-safe mocks (go.uber.org/mock) for ports
// interfaces where expectation-style assertions are clearer than hand-written
// fakes. Regenerate after interface changes with:
//
//	go generate ./internal/mocks
package mocks

// Generate mock for the DispatchStore interface. This creates
// MockDispatchStore with methods for Enqueue, ClaimNext, MarkSent,
// MarkFailed, LatestForInvoice.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=dispatch_store_mock.go github.com/arkline/erp-api/internal/ports DispatchStore
