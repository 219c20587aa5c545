/*
Package httpserver runs the public and admin HTTP listeners of a demo service.

Servers shut down gracefully when their context is cancelled and report connection
gauges through the system metrics loop.
*/
package httpserver
