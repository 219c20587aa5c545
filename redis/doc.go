/*
Package redis wires the go-redis client used by the visits service into a system.System:
commands are traced, the pool is reported as gauges and a readiness check pings the server.
*/
package redis
