// Package config loads, normalizes, and validates runqd configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// daemon, its worker children, and the CLI need: state and log directories, the
// configured task types, runner limits, loop timing, and declared command tasks.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors. Checks
// that depend on the task catalog (unknown task names, runner limits) happen
// when the runner registry is initialized, not here.
package config
