// Package scene owns the generated animation script: producing it from a
// topic, normalizing model output into a renderable Manim scene, repairing it
// from render errors, and extracting the estimated animation timeline.
//
// Normalize is a pure, idempotent function of text. Extract never fails for
// lack of animation calls; an empty timeline with total 0 is valid.
package scene
