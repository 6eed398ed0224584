package completion

import "strings"

const systemInstruction = "You are an expert tutor who creates comprehensive, educational lessons. " +
	"Provide clear, well-structured explanations with examples and practical applications."

const lessonIntro = "You are an expert educational content creator. " +
	"Generate a comprehensive, engaging learning lesson based on the following request."

var lessonStructure = []string{
	"Please provide a structured lesson that includes:",
	"1. A clear introduction to the topic",
	"2. Key concepts and explanations",
	"3. Practical examples or applications",
	"4. Summary of main points",
	"5. Suggested next steps for further learning",
}

const lessonClosing = "Make the content engaging, educational, and appropriate for the specified category and context."

// BuildPrompt renders the user message. Lines always appear in this order:
// intro, category, subcategory, learning context, request, structure.
// Empty optional parts are left out.
func BuildPrompt(req Request) string {
	parts := []string{lessonIntro}
	if req.Category != "" {
		parts = append(parts, "Category: "+req.Category)
	}
	if req.SubCategory != "" {
		parts = append(parts, "Subcategory: "+req.SubCategory)
	}
	if req.UserContext != "" {
		parts = append(parts, "Learning Context: "+req.UserContext)
	}
	parts = append(parts, "User Request: "+req.Prompt, "")
	parts = append(parts, lessonStructure...)
	parts = append(parts, "", lessonClosing)
	return strings.Join(parts, "\n")
}
