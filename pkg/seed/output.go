package seed

import (
	"fmt"
	"io"
	"strings"
)

var kindTitles = []struct {
	kind  string
	title string
}{
	{KindIdentityResource, "Identity resources"},
	{KindApiScope, "Api scopes"},
	{KindApiResource, "Api resources"},
	{KindClient, "Clients"},
	{KindRole, "Roles"},
	{KindUser, "Users"},
}

// PrintResult writes a human readable summary of a seed run to w
func PrintResult(w io.Writer, result *Result) {
	if result == nil {
		return
	}
	border := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\n", border)
	fmt.Fprintln(w, "SEED COMPLETED")
	fmt.Fprintf(w, "%s\n", border)
	fmt.Fprintf(w, "  Migrations applied: %d\n", result.MigrationsApplied)

	if !result.Seeded {
		fmt.Fprintln(w, "  Seed data: skipped")
		fmt.Fprintf(w, "%s\n\n", border)
		return
	}

	for _, kt := range kindTitles {
		var lines []string
		for _, item := range result.Items {
			if item.Kind != kt.kind {
				continue
			}
			status := "already existed"
			if item.Created {
				status = "created"
			}
			lines = append(lines, fmt.Sprintf("    - %s (%s)", item.Name, status))
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n  %s:\n", kt.title)
		fmt.Fprintln(w, strings.Join(lines, "\n"))
	}
	fmt.Fprintf(w, "%s\n\n", border)
}
