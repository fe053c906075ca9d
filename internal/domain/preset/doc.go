// Package preset maps tool names to the command that launches them.
//
// Builtin presets cover the supported coding agents. An optional YAML file
// can add tools or override builtins by name:
//
//	presets:
//	  - tool: ClaudeCode
//	    label: Claude Code
//	    command: claude
//	    args: ["--model", "sonnet"]
//	    env:
//	      CLAUDE_CODE_USE_BEDROCK: "1"
//
// Watch reloads the file when it changes. A file that fails to parse leaves
// the previous presets in place.
package preset
