package notifications

const (
	TemplateAssignmentCreated  = "assignment_created"
	TemplateAssignmentReminder = "assignment_reminder"
	TemplateResultPublished    = "result_published"
)
