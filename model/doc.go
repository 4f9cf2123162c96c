// Package model defines the provider-agnostic abstraction for the language
// model backends that agents reason with.
//
// A backend answers one prompt with one text completion; retries, timeouts
// and JSON extraction live in the invoker package so backends stay thin.
// Providers (Ollama, OpenAI, Anthropic) implement Model in sub-packages and
// may implement Checker to support pre-flight readiness checks. MockModel
// scripts deterministic answers for tests.
package model
