// Package backup runs one backup of a service's configuration directory:
// validate prerequisites, stop the service, archive the directory, start the
// service again and prune old archives and logs.
//
// The service is started again on every exit path once it has been stopped,
// including failures, panics and cancellation. Only the prune, offsite and
// metrics steps may fail without failing the run.
package backup
