package assignment

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusOverdue    = "overdue"
	StatusCancelled  = "cancelled"
)

const (
	SourceManual = "manual"
	SourceAuto   = "auto"
)

const entityAssignment = "assignment"

// transitions lists the allowed status moves. completed and cancelled are terminal.
var transitions = map[string][]string{
	StatusPending:    {StatusInProgress, StatusOverdue, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusOverdue, StatusCancelled},
	StatusOverdue:    {StatusInProgress, StatusCompleted, StatusCancelled},
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusCompleted, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}
