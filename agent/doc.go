// Package agent provides ready-made core.Agent implementations:
//
//   - FuncAgent wraps an ordinary Go function, with optional JSON-schema
//     validation of incoming request fields.
//   - LLMAgent renders a prompt template from request fields and calls a
//     language model (or a task-routed view of several models).
//
// Both embed Base, which carries identity and logging and supplies no-op
// lifecycle methods so concrete agents only implement what they need.
package agent
