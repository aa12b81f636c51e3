// Package runner schedules test groups across a bounded pool of
// isolated execution contexts.
//
// The main components are:
//   - Runner: consumes a FIFO queue of test groups with W worker contexts,
//     applying the retry policy to every unit via the external executor
//   - ExecutorFunc: the scenario execution callback supplied by the
//     embedding BDD/browser engine
//   - CommandExecutor: a subprocess-based executor for running an external
//     scenario-runner binary per unit
//   - RunResult: the aggregated, group-tagged execution results of a run
//
// Execution contexts are fault isolated: a crash or timeout in one group
// is absorbed there, recorded on the group's unfinished units, and never
// propagates to sibling groups. Results travel back to the aggregator by
// message passing only.
package runner
