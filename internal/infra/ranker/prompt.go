package ranker

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"toolscope/internal/domain"
)

const systemPrompt = "You are the Chief AI engineer responsible for optimising an intelligent AI chat assistant which uses a variety of tools"

// promptTool is the catalog view sent to the judge.
type promptTool struct {
	Name       string             `json:"name"`
	Docstring  string             `json:"docstring"`
	Toolkit    string             `json:"toolkit"`
	Signature  string             `json:"signature,omitempty"`
	Parameters []domain.Parameter `json:"parameters"`
}

// buildPrompt renders the user turn for the judge.
func buildPrompt(message string, history []domain.HistoryMessage, catalog []domain.ToolRecord, maxTools, minTools int) (string, error) {
	if history == nil {
		history = []domain.HistoryMessage{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("encode history: %w", err)
	}

	tools := make([]promptTool, 0, len(catalog))
	for _, record := range catalog {
		params := record.Parameters
		if params == nil {
			params = []domain.Parameter{}
		}
		tools = append(tools, promptTool{
			Name:       record.Name,
			Docstring:  record.Docstring,
			Toolkit:    domain.ToolkitOrDefault(record.Toolkit),
			Signature:  record.Signature,
			Parameters: params,
		})
	}
	toolsJSON, err := json.Marshal(tools)
	if err != nil {
		return "", fmt.Errorf("encode catalog: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Given the following user query, conversation history and tool descriptions, ")
	sb.WriteString("select the most relevant tools/functions that will be useful to get additional context ")
	sb.WriteString("or perform the necessary actions to achieve the users goals:\n\n")
	sb.WriteString("###Latest user message:\n")
	sb.WriteString(message)
	sb.WriteString("\n\n###Conversation history:\n")
	sb.Write(historyJSON)
	sb.WriteString("\n\n###Available tools:\n")
	sb.Write(toolsJSON)
	sb.WriteString("\n\n---\nInstructions:\n")
	fmt.Fprintf(&sb, " - Your goal is to select a minimum of %d up to a maximum of %d relevant tools/functions ranked by their relevance to the user query and context.\n", minTools, maxTools)
	sb.WriteString(" - You should format your response as a JSON array where each object has the following keys:\n")
	sb.WriteString("   - `name`: The name of the tool/function\n")
	sb.WriteString("   - `toolkit`: The toolkit to which the tool/function belongs if available, else use \"default\"\n")
	sb.WriteString("   - `relevance`: A score indicating the relevance of the tool/function out of 10\n")
	return sb.String(), nil
}

var selectionSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[[]domain.ToolSelection](nil)
	if err != nil {
		return nil, err
	}
	if item := schema.Items; item != nil {
		item.Required = []string{"name", "relevance"}
		if relevance := item.Properties["relevance"]; relevance != nil {
			relevance.Minimum = jsonschema.Ptr(float64(domain.MinRelevance))
			relevance.Maximum = jsonschema.Ptr(float64(domain.MaxRelevance))
		}
	}
	return schema, nil
})

// ResponseSchema returns the JSON schema of a judge answer: an array of tool selections.
func ResponseSchema() (*jsonschema.Schema, error) {
	schema, err := selectionSchema()
	if err != nil {
		return nil, err
	}
	return schema.CloneSchemas(), nil
}
