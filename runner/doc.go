// Package runner executes built suites.
//
// The main components are:
//   - hookChain: composes the inherited per-case hooks of a case's ancestor scopes
//   - caseExecutor: runs one case with its retry, must-pass-repeatedly and timeout policies
//   - runSteps: runs the steps of an ordered workflow case
//   - suiteRunner: walks one suite in insertion order, running once-per-scope hooks
//   - ResultCollector: aggregates case results into suite and run results
//   - TestRunner: applies the filters and runs several suites, optionally concurrently
//
// Cases of one suite always run sequentially. Only whole suites run concurrently.
package runner
