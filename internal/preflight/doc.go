// Package preflight provides readiness checks for the external tools,
// directories and model API that scenecast depends on.
//
// These checks run in two contexts:
//   - The generate and serve commands call RunAll before accepting work so a
//     missing renderer fails fast instead of after a model round trip.
//   - The CLI "scenecast status" command uses the individual check functions
//     (CheckLLM, CheckDirectoryAccess) to display service health.
//
// Archive checks are gated by the archive.enabled toggle.
package preflight
