// Package extension loads notebook shorthand commands ("magics") from the
// extension-definition file shipped in the cloned repository.
//
// The file is JSON with comments. It is stripped with
// github.com/tidwall/jsonc, validated against an embedded JSON Schema and
// registered into a process-wide registry (Default), so definitions loaded
// by the bootstrap are visible to everything that runs later in the same
// process. Each definition is a command-line template that expands into a
// single external process invocation inside the runtime environment.
package extension
