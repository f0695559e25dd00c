package domain

// Actor is the authenticated principal on whose behalf an operation runs.
type Actor struct {
	ID             string `json:"id"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	OrganizationID string `json:"organizationId"`
	Role           string `json:"role,omitempty"`
}

// System is used by scheduled jobs and the CLI.
var System = Actor{ID: "system", Name: "system"}

func (a Actor) Label() string {
	if a.Name != "" {
		return a.Name
	}
	if a.Email != "" {
		return a.Email
	}
	return a.ID
}
