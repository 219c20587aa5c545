/*
Package system runs the parts of a demo service together and shuts them down together.

A service adds its HTTP servers, health checks, metric producers and cleanups to a System,
then calls Run. Run returns when any service fails or the process is told to terminate,
and the caller then runs Cleanup to release connections such as the Mongo or Redis client.
*/
package system
