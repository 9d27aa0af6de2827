// Command scenecast turns a topic prompt into a narrated explainer video.
//
// Usage:
//
//	scenecast generate Explain the Pythagorean theorem
//	scenecast serve --bind 127.0.0.1:5500
//	scenecast runs
//	scenecast status
//	scenecast logs --follow --run 1a2b3c4d
//	scenecast test-notify
//	scenecast config init
//
// Configuration is read from --config, ~/.config/scenecast/config.toml or
// ./scenecast.toml, after a .env file in the working directory is loaded.
package main
