// Package httputil provides shared HTTP plumbing for the API server and
// for dialing backing services.
//
// # JSON helpers
//
// [WriteJSON] and [WriteError] shape every response body the API server
// produces. Errors travel as {"error":{"code":...,"message":...}}
// envelopes carrying the machine-readable codes from pkg/errors, so
// clients can branch on the code without parsing messages. [ReadJSON]
// guards request decoding with a size cap and a trailing-data check.
//
// # Retry
//
// [Retry] wraps operations against backing services (Redis, MongoDB) with
// exponential backoff for transient failures. Wrap errors in
// [RetryableError] to mark them retryable; anything else fails
// immediately:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    if err := client.Ping(ctx); err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    return nil
//	})
package httputil
