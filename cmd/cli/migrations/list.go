package migrations

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/temirov/lokimigrate/internal/migration"
)

const (
	listUseConstant                   = "list"
	listShortDescriptionConstant      = "List migrations"
	listLongDescriptionConstant       = "list summarizes every migration stored under the migrations root."
	listArgumentsUsageConstant        = "no arguments"
	listFormatFlagUsageConstant       = "Output format (table, json or yaml)"
	listEmptyMessageConstant          = "No migrations found in %s"
	listHeaderIDConstant              = "ID"
	listHeaderCreatedConstant         = "CREATED"
	listHeaderSourceConstant          = "SOURCE"
	listHeaderTargetConstant          = "TARGET"
	listHeaderStatusConstant          = "STATUS"
	listCellHorizontalPaddingConstant = 1
	listHeaderForegroundConstant      = "45"
	listBorderForegroundConstant      = "238"
)

// ListCommandBuilder assembles the list command.
type ListCommandBuilder struct {
	LoggerProvider    LoggerProvider
	WorkspaceProvider WorkspaceProvider
}

// Build constructs the list command.
func (builder *ListCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   listUseConstant,
		Short: listShortDescriptionConstant,
		Long:  listLongDescriptionConstant,
		RunE:  builder.run,
	}
	command.Flags().String(formatFlagNameConstant, outputFormatTableConstant, listFormatFlagUsageConstant)
	return command, nil
}

func (builder *ListCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if argumentsError := requireArguments(command, arguments, 0, listArgumentsUsageConstant); argumentsError != nil {
		return argumentsError
	}
	outputFormat, formatError := parseOutputFormat(command, OutputFormatTable, OutputFormatJSON, OutputFormatYAML)
	if formatError != nil {
		return formatError
	}

	workspace, workspaceError := resolveWorkspace(builder.WorkspaceProvider)
	if workspaceError != nil {
		return workspaceError
	}
	summaries, listError := workspace.List()
	if listError != nil {
		return listError
	}

	if outputFormat != OutputFormatTable {
		return writeStructuredDocument(command.OutOrStdout(), outputFormat, summaries)
	}
	if len(summaries) == 0 {
		return writeLine(command.OutOrStdout(), listEmptyMessageConstant, workspace.Root())
	}
	return writeLine(command.OutOrStdout(), "%s", renderSummaryTable(summaries))
}

func renderSummaryTable(summaries []migration.MigrationSummary) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(listHeaderForegroundConstant)).Padding(0, listCellHorizontalPaddingConstant)
	cellStyle := lipgloss.NewStyle().Padding(0, listCellHorizontalPaddingConstant)

	summaryTable := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(listBorderForegroundConstant))).
		Headers(listHeaderIDConstant, listHeaderCreatedConstant, listHeaderSourceConstant, listHeaderTargetConstant, listHeaderStatusConstant).
		StyleFunc(func(row int, column int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, summary := range summaries {
		summaryTable.Row(summary.ID, summary.CreatedAt, summary.SourcePath, summary.Target, string(summary.Status))
	}
	return summaryTable.String()
}
