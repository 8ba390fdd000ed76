/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package throttle protects outbound calls against provider-imposed rate limits.
//
// Coordinator owns a ratelimit.Tracker per rule id and applies a Policy to every submitted Call:
//   - ModeIgnore: rate limits are not checked at all;
//   - ModeReject: a call that would exceed a limit is completed immediately with a 429 response;
//   - ModeDelayAndRetry: a call that would exceed a limit is retried after the required delay
//     (or rejected if the delay is greater than Policy.MaxDelay).
//
// Submit never blocks waiting for a delay, it returns a Future instead.
// While a retry is queued for a rule, later calls subject to the same rule are chained after it,
// so a lighter call cannot overtake an already queued heavier one.
package throttle
