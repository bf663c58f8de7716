package llm

import (
	"fmt"
	"strings"

	"github.com/ternarybob/contextlog/internal/models"
)

// DefaultSummaryPrompt is used when no custom general prompt is saved
const DefaultSummaryPrompt = `You are a text analysis expert. I will provide you with the text content of a webpage. Your task is to generate a very concise, one-sentence summary of what this page is about. Here is the content:

` + models.PageContentPlaceholder

const extractionPromptFormat = `You are a data extraction expert. From the following text, extract the data for the fields defined in this JSON: %s. Respond ONLY with a valid JSON object containing the extracted data. Do not include any other text or explanations. Here is the text to analyze:

%s`

const sessionReportPromptFormat = `You are a highly efficient personal assistant. Analyze the following browsing log and generate a structured report. The report should have two parts: 1. An "Overall Summary" of the entire session. 2. A "Categorized Links" section where you group the visited pages by topic. Use Markdown for formatting. Here is the log:

%s`

const ruleGenerationPromptFormat = "You are a specialized AI component in a software application. Your sole purpose is to convert a user's natural language request into a specific JSON format.\n" +
	"\n" +
	"The required JSON format is an object where each key is the desired field name (in snake_case) and the value is a brief, helpful description of that field.\n" +
	"\n" +
	"**CRITICAL RULES:**\n" +
	"1.  Respond ONLY with the valid JSON object.\n" +
	"2.  Do NOT include any explanatory text, comments, introductions, or closing remarks.\n" +
	"3.  Do NOT wrap the JSON in markdown code blocks like \n" +
	"```json\n" +
	"... \n" +
	"```\n" +
	".\n" +
	"\n" +
	"---\n" +
	"**EXAMPLE 1**\n" +
	"**User Request:** Get the name of the author and the date it was published.\n" +
	"**Your Response:**\n" +
	`{"author_name": "The name of the article's author", "publication_date": "The date the article was published"}` + "\n" +
	"---\n" +
	"**EXAMPLE 2**\n" +
	"**User Request:** For a GitHub page, I need the repo name and the main language.\n" +
	"**Your Response:**\n" +
	`{"repository_name": "The name of the GitHub repository", "primary_language": "The main programming language used in the repository"}` + "\n" +
	"---\n" +
	"\n" +
	"**User Request:**\n" +
	"%s\n" +
	"**Your Response:**\n"

// ValidatePromptTemplate rejects custom templates that have nowhere to put the page text
func ValidatePromptTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return fmt.Errorf("prompt template is empty")
	}
	if !strings.Contains(template, models.PageContentPlaceholder) {
		return fmt.Errorf("prompt template must contain %s", models.PageContentPlaceholder)
	}
	return nil
}

// BuildSummaryPrompt injects content, truncated to maxChars, at the first placeholder
func BuildSummaryPrompt(template, content string, maxChars int) string {
	if template == "" {
		template = DefaultSummaryPrompt
	}
	return strings.Replace(template, models.PageContentPlaceholder, truncate(content, maxChars), 1)
}

// BuildExtractionPrompt asks for the fields object filled from content
func BuildExtractionPrompt(fields, content string, maxChars int) string {
	return fmt.Sprintf(extractionPromptFormat, fields, truncate(content, maxChars))
}

// BuildRuleGenerationPrompt asks for a fields object from a plain-language request
func BuildRuleGenerationPrompt(description string) string {
	return fmt.Sprintf(ruleGenerationPromptFormat, description)
}

// BuildSessionReportPrompt asks for a markdown report over a browsing log
func BuildSessionReportPrompt(logText string) string {
	return fmt.Sprintf(sessionReportPromptFormat, logText)
}

// truncate limits s to maxChars characters. maxChars <= 0 disables truncation.
func truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
