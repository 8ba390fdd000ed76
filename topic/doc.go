/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package topic classifies inbound messages of a multiplexed stream against subscription filters.
//
// A filter is a tree of predicates (field equality, field pattern, AND, OR, catch-all) built by Factory
// from a declarative Spec. Fields of a message are fed to the tree one by one, and the tree
// resolves to Matched or CannotMatch as early as possible, so the rest of the message isn't walked.
// A tree is stateful between Reset calls and must not be shared between subscriptions or goroutines.
package topic
