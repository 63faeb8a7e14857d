// Package mocks provides reusable mock implementations for testing.
//
// Each mock has a function field per interface method. When a function field
// is nil the mock returns its default values. Calls are recorded so tests can
// verify what was sent.
//
//	backend := &mocks.MockBackend{
//	    StartSessionFn: func(ctx context.Context, deckID int64, req domain.StartRequest) (*domain.Bootstrap, error) {
//	        return nil, studyapi.ErrUnauthorized
//	    },
//	}
package mocks
