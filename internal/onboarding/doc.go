// Package onboarding owns the wallet gate.
//
// Ownership boundary:
// - connection state and its transitions
//
// - the account list (the root container only mirrors it)
//
// - panel visibility
//
// Lifecycle order:
// - mount -> evaluate -> activate* -> dismiss
//
// - mount requests accounts once when the provider is already present.
//
// - provider absence overrides every other state on the next evaluation.
//
// The gate does not own the provider or the install flow. Both are injected
// capabilities; the installer is built on first use and released by Close.
//
// Step is the pure transition function. Gate wraps it, executes the effects
// Step emits and re-enters asynchronous account results as events.
package onboarding
