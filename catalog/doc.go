// Package catalog provides the tool descriptors exposed to the agent.
//
// A manual is a JSON or YAML document listing the tools,
// with their input schemas and the call templates used to execute them.
// Manuals are loaded from local files or remote endpoints,
// optionally cached in memory or Redis, and merged by the Repository
// under the `<manual>.<tool>` names.
package catalog
