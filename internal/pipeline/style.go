package pipeline

import "fmt"

// Style describes one named transformation: which description the vision
// model is asked for and how the generation prompt is phrased.
type Style struct {
	Name           string
	DescribePrompt string
}

// DefaultStyles returns the built-in transformations. Styles outside
// this set take the fallback path unless registered on the processor.
func DefaultStyles() map[string]Style {
	return map[string]Style{
		"watercolor": {
			Name:           "watercolor",
			DescribePrompt: "Describe the image in one or two sentences.",
		},
		"cubist": {
			Name:           "cubist",
			DescribePrompt: "Describe how this image would look as a cubist painting.",
		},
	}
}

// GenerationPrompt embeds the description and names the target style
// explicitly so the image model does not drift back to photorealism.
func (s Style) GenerationPrompt(description string) string {
	return fmt.Sprintf("Create an image in the style of %s based on: %s", s.Name, description)
}
