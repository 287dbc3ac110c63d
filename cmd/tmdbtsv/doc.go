// Package main hosts the tmdbtsv CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration, applies flag
// overrides, and hands the result to the pipeline, either once or under a
// watch or schedule trigger. It also inspects input files, lists the run
// history, and scaffolds configuration.
//
// Keep this package lean: conversion logic lives in the internal packages and
// is only surfaced here through commands and flags.
package main
