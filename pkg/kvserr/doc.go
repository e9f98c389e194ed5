/*
Package kvserr defines the error kinds kvsd's transaction processor
distinguishes, per spec.md §7. Every failure the TxnMgr reports to a
caller is wrapped in an *Error carrying one Kind plus an optional
underlying cause, so callers can match on Kind with errors.As while
errors.Is/errors.Unwrap still reach the original cause for logging.
*/
package kvserr
