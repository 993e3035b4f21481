// Package bridge carries the onboarding gate's capability calls to a browser.
//
// The wallet provider lives in the page, not in this process. A Session
// stands in for it: capability calls become queued commands the page drains,
// and the page answers account requests by request id.
//
// Ownership boundary:
// - per-tab presence and command queues
//
// - pending account requests
//
// - session lifetime (Registry)
//
// The bridge does not interpret account lists; it hands them to the gate.
package bridge
