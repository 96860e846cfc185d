// Package logger wraps zap for the treeos binaries:
//   - a global sugared logger with a console encoder on stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level parsing and runtime level changes,
//   - shortcuts such as InfoKV and Warnf that read the logger from a context.
package logger
