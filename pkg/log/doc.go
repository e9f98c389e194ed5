/*
Package log provides structured logging for kvsd using zerolog.

It wraps zerolog with a global logger, level filtering, and helper
constructors for per-scope child loggers (component, namespace, requestor,
txn). All logs carry a timestamp and support JSON or console output.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})
	log.Info("kvsd starting")

	nsLog := log.WithNamespace("primary")
	nsLog.Info().Uint64("seq", seq).Msg("commit finished")

	txnLog := log.WithTxn(txn.Names)
	txnLog.Error().Err(err).Msg("commit failed")

# Context loggers

  - WithComponent: tag logs by subsystem (kvstxn, rootlog, rpc, ...)
  - WithNamespace: tag logs by kvs namespace
  - WithRequestor: tag logs by the caller that submitted a commit
  - WithTxn: tag logs by a txn's requestor names (a merged txn has several)

# Log levels

Debug is for development; Info is the recommended production level. Warn
and Error should stay low-volume — each should be actionable. Fatal exits
the process and is reserved for unrecoverable startup failures (a rootlog
that cannot bind its Raft transport, for example).
*/
package log
