/*
Package mongoex connects the counter service to MongoDB.

It reports queries as spans, exposes pool events as gauges, registers a readiness check,
and can wait for the server to become reachable before a service starts taking traffic.
*/
package mongoex
