// Package config loads process settings and the built-in scenario and
// persona catalog.
//
// Settings are layered: compiled defaults, then an optional YAML file, then
// environment overrides (OLLAMA_BASE_URL, MODEL_NAME, AGORA_BACKEND,
// AGORA_LOG_DIR). Only the outermost entry point reads the environment;
// every component below receives explicit values.
package config
