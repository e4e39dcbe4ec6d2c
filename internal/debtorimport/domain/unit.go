package debtorimport

// Unit is a condominium unit within a project.
type Unit struct {
	ID         string
	ProjectID  string
	UnitNumber string
}
