// ABOUTME: Variable substitution for notification message bodies
// ABOUTME: Replaces {name} placeholders in HTML or plain-text templates

package notify

import (
	"regexp"
)

// placeholderPattern matches {variable_name} placeholders in a template.
var placeholderPattern = regexp.MustCompile(`\{([^}]+)\}`)

// renderTemplate replaces {name} placeholders with values from vars.
// Placeholders with no matching variable are left untouched.
func renderTemplate(template string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if val, ok := vars[name]; ok {
			return val
		}
		return match
	})
}
