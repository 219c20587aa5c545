/*
Package worker runs a function in a loop until its context is cancelled, tracing each
iteration and backing off when the function reports it had nothing to do.

The system package uses it to publish metric gauges on an interval.
*/
package worker
