package scene

import (
	"fmt"
	"strings"
)

const generationPromptTemplate = `Create a Manim Community Edition animation that visually explains:
%s

Requirements:
1. Scene class must be named ExplanationScene and inherit from Scene
2. Total animation duration: 60-90 seconds
3. Divide animation into logical sections with clear visual elements
4. All animations must be wrapped in self.play() calls
5. Include proper imports (from manim import *)
6. Use these common objects:
    - Text, MathTex, Arrow, Circle, Square, Line
    - ValueTracker, DecimalNumber
7. Ensure all variables are properly defined before use
8. Set camera background to BLACK (self.camera.background_color = BLACK)
9. Include proper waiting times between animations
10. Return ONLY the raw Python code with:
    - No markdown formatting
    - No additional explanations
    - No code block wrappers
11. The code must be syntactically perfect and run without errors
12. Use proper LaTeX syntax (use \frac{numerator}{denominator} instead of {numerator} \over {denominator})
13. Avoid complex LaTeX expressions that might cause compilation errors
14. The background should be black

Example structure:
from manim import *

class ExplanationScene(Scene):
    def construct(self):
        self.camera.background_color = BLACK

        # Create objects
        title = Text("Explanation", color=WHITE)

        # Animate
        self.play(Write(title))
        self.wait(1)

        # More animation...
`

const repairPromptTemplate = `I'm getting errors when trying to run this Manim code. Please fix the code to resolve these errors.

Original code:
` + "```python" + `
%s
` + "```" + `

Error output:
` + "```" + `
%s
` + "```" + `

Please:
1. Fix all syntax errors and compilation issues
2. Ensure proper LaTeX syntax (use \frac{numerator}{denominator} instead of {numerator} \over {denominator})
3. Make sure all imports are correct
4. Ensure the code follows Manim Community Edition syntax
5. Return ONLY the fixed Python code with no additional text
6. Keep the class name as ExplanationScene
7. Keep the background color as BLACK

Fixed code:
`

// maxRepairErrorRunes bounds the error text embedded in a repair prompt.
// Render logs are dominated by progress noise; the traceback is at the end.
const maxRepairErrorRunes = 8000

// GenerationPrompt renders the scene-writing request for topic.
func GenerationPrompt(topic string) string {
	return fmt.Sprintf(generationPromptTemplate, strings.TrimSpace(topic))
}

// RepairPrompt renders the correction request for a failing script.
func RepairPrompt(source, errorText string) string {
	return fmt.Sprintf(repairPromptTemplate, source, tailRunes(strings.TrimSpace(errorText), maxRepairErrorRunes))
}

func tailRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return "..." + string(runes[len(runes)-limit:])
}
