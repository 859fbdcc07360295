package openaicompat

import "github.com/sashabaranov/go-openai"

func openaiMessageWithArgs(args string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{{
			ID:       "call_1",
			Type:     openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: "read_file", Arguments: args},
		}},
	}
}
