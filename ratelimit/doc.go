/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit provides client-side accounting of provider-imposed rate limits.
//
// A Rule describes a single quota: a rolling time window with a maximum number of calls
// and/or a maximum cumulative weight of calls. A Tracker keeps per-granularity buckets
// of admitted calls for one Rule and answers whether a new call may proceed right now
// and, if it may not, how long the caller has to wait until the oldest bucket ages out of the window.
//
// Tracker is not safe for concurrent use. It's intended to be owned by a single
// coordinator (see the throttle package) that serializes all access to it.
package ratelimit
