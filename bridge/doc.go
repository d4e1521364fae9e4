// Package bridge adapts the catalog tools to the agent tool interface.
//
// Each catalog tool becomes a tools.ITool with a sanitized name,
// a projected object schema of its parameters, and a Call that dispatches
// the JSON arguments to the backing client by the original tool name.
// Call never fails: every fault is returned as the `Error: <cause>` text,
// so the agent treats it as a regular tool result.
package bridge
