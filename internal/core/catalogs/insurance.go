package catalogs

import "github.com/JonMunkholm/sheetmap/internal/core"

func init() {
	registerInsurance()
}

func registerInsurance() {
	core.RegisterCatalog(core.Catalog{
		Key:   "insurance",
		Group: "HR",
		Label: "Insurance contributions",
		Fields: []core.Field{
			{Name: "fullName", Label: "Full name", Type: core.TypeString, Required: true},
			{Name: "ctvCode", Label: "Collaborator code", Type: core.TypeString},
			{Name: "insuranceNumber", Label: "Social insurance number", Type: core.TypeString, Required: true},
			{Name: "dateOfBirth", Label: "Date of birth", Type: core.TypeDate},
			{Name: "coverageStartDate", Label: "Coverage start date", Type: core.TypeDate},
			{Name: "coverageEndDate", Label: "Coverage end date", Type: core.TypeDate},
			{Name: "insuredSalary", Label: "Insured salary", Type: core.TypeDecimal},
			{Name: "employeeContribution", Label: "Employee contribution", Type: core.TypeDecimal},
			{Name: "employerContribution", Label: "Employer contribution", Type: core.TypeDecimal},
			{Name: "contributionMonths", Label: "Contribution months", Type: core.TypeNumber},
			{Name: "isActive", Label: "Active", Type: core.TypeBoolean},
		},
	})
}
