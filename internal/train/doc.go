// Package train implements a merge train for merge requests that are
// assigned to a bot account.
//
// A Train runs passes periodically. A pass is stateless, it consists of 3
// steps:
//
// - The SnapshotBuilder retrieves all open merge requests of the project,
// keeps the ones that are eligible (by default: assigned to the bot) and
// pairs each with the pipelines of its head commit and whether its source
// branch contains the current tip of its target branch.
//
// - Triage classifies every Candidate independently into reassigning it to
// its author, rebasing it, merging it or doing nothing.
//
// - The Scheduler orders and bounds the decisions and dispatches them to
// the code host. Reassignments are dispatched first, then in-flight
// pipelines of not rebased merge requests are cancelled, then at most
// RebaseLimit rebases are requested in ascending merge request order and
// finally merge requests are merged.
//
// Failing operations are logged and never retried in the same pass. The next
// pass evaluates everything again from the live state of the code host.
package train
