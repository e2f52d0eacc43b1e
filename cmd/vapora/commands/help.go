package commands

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/DrSkyle/vapora/pkg/version"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF99")).
			MarginBottom(1)

	flagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B")).Bold(true)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF99")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0055")).Bold(true)
)

func renderHelp(cmd *cobra.Command) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("VAPORA %s", version.Current)))
	if cmd.Long != "" {
		fmt.Println(cmd.Long)
	} else {
		fmt.Println(cmd.Short)
	}
	fmt.Println()

	fmt.Println(titleStyle.Render("USAGE"))
	fmt.Printf("  %s\n\n", cmd.UseLine())

	if cmd.Example != "" {
		fmt.Println(titleStyle.Render("EXAMPLES"))
		fmt.Println(cmd.Example)
		fmt.Println()
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Println(titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Printf("  %-12s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Println()
	}

	printFlags := func(title string, fs *pflag.FlagSet) {
		if !fs.HasAvailableFlags() {
			return
		}
		fmt.Println(titleStyle.Render(title))
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Hidden {
				return
			}
			output := fmt.Sprintf("  --%-16s %s", f.Name, f.Usage)
			if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "[]" {
				output += fmt.Sprintf(" (default %s)", f.DefValue)
			}
			fmt.Println(flagStyle.Render(output))
		})
		fmt.Println()
	}
	printFlags("FLAGS", cmd.LocalFlags())
	printFlags("GLOBAL FLAGS", cmd.InheritedFlags())
}

func field(label string, value any) string {
	return labelStyle.Render(label) + " " + valueStyle.Render(fmt.Sprint(value))
}
