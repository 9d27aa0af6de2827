// Package manim drives the external manim renderer.
//
// Client.Render writes nothing itself: the caller places the script in
// Request.WorkDir and locates the produced video afterwards. Request.Args
// yields `--disable_caching -ql|-qh [--media_dir DIR] SCRIPT SCENE -o STEM`.
package manim
