package migration

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	planMissingSummaryConstant           = "No migration plan found. Run the 'understand' phase first."
	planHeaderTemplateConstant           = "Migration Plan v%d"
	planStrategyTemplateConstant         = "Strategy: %s"
	planRollbackTemplateConstant         = "Rollback: %s"
	planConstraintsHeaderConstant        = "Constraints:"
	planConstraintTemplateConstant       = "  - %s"
	planStepsHeaderTemplateConstant      = "Steps (%d total):"
	planStepLineTemplateConstant         = "  %s %s: %s"
	planStepDetailsTemplateConstant      = "      Type: %s | Risk: %s | Tokens: %d"
	planStepFilesTemplateConstant        = "      Files: %s"
	planStepMoreFilesTemplateConstant    = "             ... and %d more"
	planStepDependenciesTemplateConstant = "      Depends on: %s"
	planStepRollbackPointConstant        = "      [Rollback point]"
	planExitCriteriaHeaderConstant       = "Exit Criteria:"
	planExitCriterionTemplateConstant    = "  %s: %v"
	planSeparatorCharacterConstant       = "-"
	planSeparatorWidthConstant           = 60
	planListSeparatorConstant            = ", "
	planLineSeparatorConstant            = "\n"
	planMaximumListedFilesConstant       = 5
	stepMarkerPendingConstant            = "[ ]"
	stepMarkerInProgressConstant         = "[>]"
	stepMarkerCompletedConstant          = "[x]"
	stepMarkerFailedConstant             = "[!]"
)

var stepStatusMarkers = map[StepStatus]string{
	StepStatusPending:    stepMarkerPendingConstant,
	StepStatusInProgress: stepMarkerInProgressConstant,
	StepStatusCompleted:  stepMarkerCompletedConstant,
	StepStatusFailed:     stepMarkerFailedConstant,
}

// PlanSummary renders the plan for operators. A missing plan yields a hint instead of an error.
func (pipeline *Pipeline) PlanSummary() (string, error) {
	plan, loadError := pipeline.LoadPlan()
	if errors.Is(loadError, ErrNotFound) {
		return planMissingSummaryConstant, nil
	}
	if loadError != nil {
		return "", loadError
	}
	return RenderPlanSummary(plan), nil
}

// RenderPlanSummary formats plan as human-readable text.
func RenderPlanSummary(plan MigrationPlan) string {
	lines := []string{
		fmt.Sprintf(planHeaderTemplateConstant, plan.Version),
		fmt.Sprintf(planStrategyTemplateConstant, plan.Strategy),
		fmt.Sprintf(planRollbackTemplateConstant, plan.RollbackStrategy),
		"",
	}

	if len(plan.Constraints) > 0 {
		lines = append(lines, planConstraintsHeaderConstant)
		for _, constraint := range plan.Constraints {
			lines = append(lines, fmt.Sprintf(planConstraintTemplateConstant, constraint))
		}
		lines = append(lines, "")
	}

	lines = append(lines,
		fmt.Sprintf(planStepsHeaderTemplateConstant, len(plan.Steps)),
		strings.Repeat(planSeparatorCharacterConstant, planSeparatorWidthConstant),
	)

	for _, step := range plan.Steps {
		marker, known := stepStatusMarkers[step.Status]
		if !known {
			marker = stepMarkerPendingConstant
		}
		lines = append(lines,
			fmt.Sprintf(planStepLineTemplateConstant, marker, step.ID, step.Description),
			fmt.Sprintf(planStepDetailsTemplateConstant, step.Type, step.Risk, step.EstimatedTokens),
		)
		if len(step.Files) > 0 {
			listedFiles := step.Files
			if len(listedFiles) > planMaximumListedFilesConstant {
				listedFiles = listedFiles[:planMaximumListedFilesConstant]
			}
			lines = append(lines, fmt.Sprintf(planStepFilesTemplateConstant, strings.Join(listedFiles, planListSeparatorConstant)))
			if len(step.Files) > planMaximumListedFilesConstant {
				lines = append(lines, fmt.Sprintf(planStepMoreFilesTemplateConstant, len(step.Files)-planMaximumListedFilesConstant))
			}
		}
		if len(step.DependsOn) > 0 {
			lines = append(lines, fmt.Sprintf(planStepDependenciesTemplateConstant, strings.Join(step.DependsOn, planListSeparatorConstant)))
		}
		if step.RollbackPoint {
			lines = append(lines, planStepRollbackPointConstant)
		}
		lines = append(lines, "")
	}

	if len(plan.ExitCriteria) > 0 {
		lines = append(lines, planExitCriteriaHeaderConstant)
		criterionNames := make([]string, 0, len(plan.ExitCriteria))
		for criterionName := range plan.ExitCriteria {
			criterionNames = append(criterionNames, criterionName)
		}
		sort.Strings(criterionNames)
		for _, criterionName := range criterionNames {
			lines = append(lines, fmt.Sprintf(planExitCriterionTemplateConstant, criterionName, plan.ExitCriteria[criterionName]))
		}
	}

	return strings.Join(lines, planLineSeparatorConstant)
}
