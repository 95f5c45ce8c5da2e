//go:build debug

package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var debugDir = filepath.Join(os.TempDir(), "biometric-advisor-llm-conversations")

func init() {
	// Ensure directory exists on startup
	if err := os.MkdirAll(debugDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to create LLM debug directory %s: %v\n", debugDir, err)
	} else {
		fmt.Fprintf(os.Stderr, "DEBUG: LLM conversations will be written to %s\n", debugDir)
	}
}

// debugWriteRequest writes the advice prompt before the provider call.
// Returns the file prefix shared by the matching response or error file.
func debugWriteRequest(conversationID, model, systemMessage, prompt string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05.000")
	prefix := fmt.Sprintf("%s_%s", timestamp, conversationID)
	filename := fmt.Sprintf("%s_request.txt", prefix)
	fpath := filepath.Join(debugDir, filename)

	content := fmt.Sprintf(`================================================================================
TIMESTAMP: %s
MODEL: %s
CONVERSATION_ID: %s
TYPE: REQUEST
================================================================================

=== SYSTEM MESSAGE ===
%s

=== PROMPT ===
%s
`,
		time.Now().Format(time.RFC3339),
		model,
		conversationID,
		systemMessage,
		prompt,
	)

	if err := os.WriteFile(fpath, []byte(content), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to write LLM request file %s: %v\n", fpath, err)
	}

	return prefix
}

// debugWriteResponse writes the raw model reply, before any fence stripping or parsing.
func debugWriteResponse(prefix, model, response string, durationMs int64) {
	filename := fmt.Sprintf("%s_response.txt", prefix)
	fpath := filepath.Join(debugDir, filename)

	content := fmt.Sprintf(`================================================================================
TIMESTAMP: %s
MODEL: %s
TYPE: RESPONSE
DURATION: %dms
================================================================================

%s
`,
		time.Now().Format(time.RFC3339),
		model,
		durationMs,
		response,
	)

	if err := os.WriteFile(fpath, []byte(content), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to write LLM response file %s: %v\n", fpath, err)
	}
}

// debugWriteError writes an error file when the provider call fails.
func debugWriteError(prefix, model, errorMessage string, durationMs int64) {
	filename := fmt.Sprintf("%s_error.txt", prefix)
	fpath := filepath.Join(debugDir, filename)

	content := fmt.Sprintf(`================================================================================
TIMESTAMP: %s
MODEL: %s
TYPE: ERROR
DURATION: %dms
================================================================================

%s
`,
		time.Now().Format(time.RFC3339),
		model,
		durationMs,
		errorMessage,
	)

	if err := os.WriteFile(fpath, []byte(content), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to write LLM error file %s: %v\n", fpath, err)
	}
}
