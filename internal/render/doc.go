// Package render runs the render-repair loop.
//
// Each attempt writes the script into the run directory, invokes the render
// Engine, and asks the Locator for the produced file. A failed attempt sends
// the script and captured error text to the Repairer and waits a fixed delay
// before rendering the repaired version. Local I/O failures end the loop
// immediately; everything else is retried until the attempt budget runs out.
//
// The Locator tries prioritized strategies (preset directory, legacy 480p15
// directory, sibling scan) so manim layout differences stay isolated here.
package render
