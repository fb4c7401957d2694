package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// confirm prompts the user for confirmation.
// Returns true if user confirms, false otherwise.
func confirm(in io.Reader, out io.Writer, message string) bool {
	fmt.Fprintf(out, "%s (yes/no): ", message)

	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes" || response == "y"
}

// confirmExact prompts the user to type an exact string for confirmation.
func confirmExact(in io.Reader, out io.Writer, message, expected string) bool {
	fmt.Fprintf(out, "%s\nType '%s' to confirm: ", message, expected)

	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}

	return strings.TrimSpace(response) == expected
}

// checkConfirmation checks if confirmation is required and prompts if needed.
func (app *App) checkConfirmation(out io.Writer, operation string) error {
	if !app.requiresConfirmation() {
		return nil
	}

	env := app.getEnvironmentName()
	message := fmt.Sprintf("⚠️  WARNING: You are about to %s on %s environment\nStore: %s",
		operation, strings.ToUpper(env), app.config.Driver)

	// For production, require exact confirmation
	if env == "production" {
		if !confirmExact(app.in, out, message, "production") {
			return fmt.Errorf("operation cancelled")
		}
	} else {
		if !confirm(app.in, out, message+"\nContinue?") {
			return fmt.Errorf("operation cancelled")
		}
	}

	return nil
}
