// Package transform calls the generative transform service that extracts,
// converts and scores UI components.
//
// The service is modelled as a single-method [Capability]: a role
// instruction plus a text payload in, a JSON document out. Orchestration code
// depends only on this interface, so tests substitute a scripted [Fake].
//
// # Middleware
//
// Cross-cutting concerns wrap a Capability:
//
//	c := transform.Chain(gemini,
//	    transform.WithCache(store, cache.NewDefaultKeyer(), ttl),
//	    transform.WithRetry(retry.Policy{Attempts: 3}),
//	    transform.WithRateLimit(1, 1),
//	)
//
// Chain(inner, A, B) yields A(B(inner)), so in the example a cache hit never
// consumes a rate-limit token and every retried call does.
//
// # Errors
//
// Failures the caller may retry are wrapped in [TransientError]; [IsTransient]
// reports them. Malformed output carries errors.ErrCodeInvalidResponse and is
// never retried.
package transform
