// Package log provides named, leveled loggers on top of the standard library
// logger.
//
// Every component asks for its own logger with ForService and every line it
// writes is tagged with that name:
//
//	l := log.ForService("api")
//	l.Infof("listening on %s", addr)
//	l.Debugf("request: %s", req) // only when debug is enabled
//
// Debug output can be turned on for the whole process (SetGlobalDebug, wired
// to the --debug flag) or for a comma separated list of components
// (EnableDebugFor, wired to the debug_services configuration key):
//
//	log.EnableDebugFor("repository")
//
// SetOutput redirects every logger, existing ones included. Tests use it
// with a bytes.Buffer to assert on log contents.
//
// All functions are safe for concurrent use.
package log
