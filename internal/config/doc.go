// Package config holds all configuration for the discoverer.
//
// Configuration comes from three layers, in increasing precedence:
// built-in defaults (NewConfig), the optional .discoverer YAML file with
// per-domain overrides, and CLI flags.
//
// Design decision: Config is a single flat struct populated from cobra flags
// and passed through the application by dependency injection rather than
// global state. The option count is small enough that nested sub-structs
// would add complexity without benefit.
package config
