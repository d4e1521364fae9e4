// Package tools defines the surface the agent runtime registers tools with:
// a name, a description, a JSON schema of the parameters and a Call function.
package tools
