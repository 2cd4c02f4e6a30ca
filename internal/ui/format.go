package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	"songplaydw/pkg/errors"
)

var (
	// Check if output supports colors
	supportsColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// Color functions
	ColorSuccess = colorFunc(ansi.Green)
	ColorError   = colorFunc(ansi.Red)
	ColorWarning = colorFunc(ansi.Yellow)
	ColorInfo    = colorFunc(ansi.Cyan)
	ColorBold    = colorFunc("default+b")
	ColorDim     = colorFunc("default+h")

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	askOne = survey.AskOne
)

// colorFunc returns a function that colors text if supported
func colorFunc(color string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, color)
		}
		return text
	}
}

// ShowHeader displays a formatted header
func ShowHeader(title string) {
	width := 50
	if len(title)+4 > width {
		width = len(title) + 4
	}
	padding := (width - len(title) - 2) / 2

	fmt.Fprintln(stdout, "\n+"+strings.Repeat("-", width-2)+"+")
	fmt.Fprintf(stdout, "|%s%s%s|\n",
		strings.Repeat(" ", padding),
		ColorBold(title),
		strings.Repeat(" ", width-2-padding-len(title)),
	)
	fmt.Fprintln(stdout, "+"+strings.Repeat("-", width-2)+"+")
}

// ShowError displays a formatted error message on stderr
func ShowError(err error) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		fmt.Fprintf(stderr, "\n%s %s\n", ColorError("ERROR:"), err.Error())
		if tip := getSuggestion(err.Error()); tip != "" {
			fmt.Fprintf(stderr, "\n  %s %s\n", ColorInfo("TIP:"), ColorInfo(tip))
		}
		return
	}

	fmt.Fprintf(stderr, "\n%s [%s] %s\n", ColorError("ERROR:"), appErr.Code, appErr.Message)
	if appErr.Cause != nil {
		for _, line := range strings.Split(appErr.Cause.Error(), "\n") {
			fmt.Fprintf(stderr, "  %s\n", ColorDim(line))
		}
	}
	for _, key := range appErr.ContextKeys() {
		if key == "query" {
			continue
		}
		fmt.Fprintf(stderr, "  %s %v\n", ColorDim(key+":"), appErr.Context[key])
	}

	suggestions := appErr.Suggestions
	if len(suggestions) == 0 {
		if tip := getSuggestion(err.Error()); tip != "" {
			suggestions = []string{tip}
		}
	}
	for _, s := range suggestions {
		fmt.Fprintf(stderr, "\n  %s %s", ColorInfo("TIP:"), ColorInfo(s))
	}
	if len(suggestions) > 0 {
		fmt.Fprintln(stderr)
	}
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	fmt.Fprintf(stdout, "%s %s\n", ColorSuccess("SUCCESS:"), message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	fmt.Fprintf(stdout, "%s %s\n", ColorWarning("WARNING:"), ColorWarning(message))
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	fmt.Fprintf(stdout, "%s %s\n", ColorInfo("INFO:"), message)
}

// getSuggestion returns helpful suggestions based on error messages
func getSuggestion(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "password authentication failed"):
		return "Check cluster.db_user and cluster.db_password in the configuration"
	case strings.Contains(lower, "connection refused"), strings.Contains(lower, "no such host"):
		return "Verify cluster.host and cluster.db_port and that the cluster is publicly reachable"
	case strings.Contains(lower, "does not exist"):
		return "Run 'songplaydw create-tables' before loading"
	case strings.Contains(lower, "stl_load_errors"):
		return "Inspect stl_load_errors for the rejected rows"
	case strings.Contains(lower, "accessdenied"), strings.Contains(lower, "access denied"):
		return "Check that the IAM role can read the configured S3 locations"
	default:
		return ""
	}
}

// Confirm shows a confirmation prompt
func Confirm(message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := askOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}

// Password prompts for a secret without echoing it
func Password(message string) (string, error) {
	var secret string
	prompt := &survey.Password{Message: message}
	if err := askOne(prompt, &secret, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return secret, nil
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}
