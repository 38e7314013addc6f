// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vision

import (
	"fmt"
	"os"
	"strings"
)

// DefaultPrompt asks for a description detailed enough to stand in for the
// image in a plain-text rendering of the document.
const DefaultPrompt = `You are reading a figure taken from a document that is being converted to plain text.
Write a description that lets a reader who cannot see the image understand everything it conveys.

- Start with one sentence naming what kind of image it is (photograph, chart, diagram, table, map, flowchart, pathway, infographic, equation, logo).
- For charts and plots, give the title, the axes with their units, the series or categories, and the main trends, extremes and notable values.
- For diagrams, pathways and flowcharts, list the components and describe each connection or step in order, including arrow directions and labels.
- For information graphics and tables, reproduce the text and numbers they contain.
- Transcribe any legible text exactly.
- Do not speculate beyond what is visible. Do not add a preamble or closing remarks.`

// LoadPrompt reads a prompt from path. An empty path returns DefaultPrompt.
func LoadPrompt(path string) (string, error) {
	if path == "" {
		return DefaultPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading prompt file %s: %w", path, err)
	}
	p := strings.TrimSpace(string(data))
	if p == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	return p, nil
}
