package models

// TotalWorkflowSteps is the fixed number of production steps every workflow carries.
const TotalWorkflowSteps = 7

// stepCatalog is the ordered list of production stages. Step ids are 1-based
// and index-aligned: stepCatalog[i] names step i+1.
var stepCatalog = [TotalWorkflowSteps]string{
	"Schedule Confirmed",
	"Questions Prepared",
	"Shoot Completed",
	"Video Editing",
	"Review Approved",
	"Upload Videos",
	"Shorts Published",
}

// StepName returns the catalog name for a step id, or "" when the id is out of range.
func StepName(stepID int) string {
	if stepID < 1 || stepID > TotalWorkflowSteps {
		return ""
	}
	return stepCatalog[stepID-1]
}

// DefaultSteps builds the full pending step list from the catalog.
func DefaultSteps() StepList {
	steps := make(StepList, 0, TotalWorkflowSteps)
	for i, name := range stepCatalog {
		steps = append(steps, Step{
			StepID:   i + 1,
			StepName: name,
			Status:   StepStatusPending,
			FormData: FormData{Languages: StringList{}},
		})
	}
	return steps
}
