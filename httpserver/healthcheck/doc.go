/*
Package healthcheck serves the admin API: liveness and readiness checks gathered from
the system, and the Go runtime's pprof handlers.
*/
package healthcheck
