// Package chainy bridges Go functions and tool-calling language models for
// simple prompt chains.
//
// # Overview
//
// A model that supports tool calling needs two things from the host: a
// description of each function it may call, and someone to perform the call
// when it asks for one. This package provides both halves and nothing else:
//
//	Go function → FromFunc / NewCapability (schema derived once) → Capability
//	Capability.Spec() → {"type":"function","function":{...}} sent to the model
//	model reply with tool_calls → Registry.Resolve → Capability.Call → tool Turn
//
// The Invoker keeps an append-only Transcript and drives one model step per
// Ask. Backends (see the ollama and openaicompat packages) only translate a
// Request into the provider's wire format.
//
// # Key concepts
//
//   - Capability: a function plus its name, one-line description and ordered
//     parameters. Immutable after construction.
//   - SemanticType: the closed set {integer, number, string, boolean, array,
//     object}. Anything else maps to string.
//   - Optional parameters: a parameter is optional iff it carries a default.
//   - Explicit lookup: an unknown tool name in a model reply is reported as
//     ErrCapabilityNotFound.
//
// # Example
//
//	type WriteArgs struct {
//	    PathToFile string `json:"path_to_file"`
//	    Content    string `json:"content"`
//	}
//	write, err := chainy.FromFunc("write_file", "Writes content to a file.",
//	    func(_ context.Context, a WriteArgs) (string, error) { ... })
//	if err != nil { ... }
//	inv := chainy.NewInvoker(ollama.NewClient(), "qwen2.5")
//	out, err := inv.Ask(ctx, "Save hello to a.txt", chainy.WithCapabilities(write))
package chainy
