// Package testutil holds shared fixtures for package tests: a fluent event
// log builder and a small canned experiment configuration.
package testutil
