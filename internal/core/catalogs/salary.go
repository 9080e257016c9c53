package catalogs

import "github.com/JonMunkholm/sheetmap/internal/core"

func init() {
	registerSalary()
}

func registerSalary() {
	core.RegisterCatalog(core.Catalog{
		Key:   "salary",
		Group: "HR",
		Label: "Monthly salary sheet",
		Fields: []core.Field{
			{Name: "fullName", Label: "Full name", Type: core.TypeString, Required: true},
			{Name: "ctvCode", Label: "Collaborator code", Type: core.TypeString},

			{Name: "firstContractStartDateT9_2024", Label: "First contract start date (T9/2024)", Type: core.TypeDate},
			{Name: "contractStartDate", Label: "Contract start date", Type: core.TypeDate},

			{Name: "organization", Label: "Organization", Type: core.TypeString},
			{Name: "jobPosition", Label: "Job position", Type: core.TypeString},

			{Name: "actualWorkingDays", Label: "Actual working days", Type: core.TypeNumber},
			{Name: "leaveDays", Label: "Paid leave days", Type: core.TypeNumber},
			{Name: "holidayDays", Label: "Holiday days", Type: core.TypeNumber},
			{Name: "nightShiftDays", Label: "Night shift days", Type: core.TypeNumber},
			{Name: "policyLeaveDays", Label: "Policy leave days", Type: core.TypeNumber},
			{Name: "bhxhLeaveDays", Label: "Social insurance leave days", Type: core.TypeNumber},
			{Name: "unpaidLeaveDays", Label: "Unpaid leave days", Type: core.TypeNumber},

			{Name: "vtcvSalaryWorkingDays", Label: "Position salary working days", Type: core.TypeNumber},
			{Name: "performanceSalaryWorkingDays", Label: "Performance salary working days", Type: core.TypeNumber},
			{Name: "actualSalaryWorkingDaysHidden", Label: "Actual salary working days (hidden)", Type: core.TypeNumber},

			{Name: "nightShiftWorkingDays", Label: "Night shift working days", Type: core.TypeNumber},
			{Name: "holidayDutyWorkingDays", Label: "Holiday duty working days", Type: core.TypeNumber},
			{Name: "standardWorkingDaysOfMonth", Label: "Standard working days of month", Type: core.TypeNumber},

			{Name: "bhxhBaseSalary", Label: "Social insurance base salary", Type: core.TypeDecimal},
			{Name: "vtcvSalary", Label: "Position salary", Type: core.TypeDecimal},
			{Name: "workCompletionRate", Label: "Work completion rate", Type: core.TypeNumber},
			{Name: "performanceSalary", Label: "Performance salary", Type: core.TypeDecimal},
			{Name: "nightAndHolidaySalary", Label: "Night and holiday salary", Type: core.TypeDecimal},

			{Name: "totalVtcvAndPerformanceSalary", Label: "Total position and performance salary", Type: core.TypeDecimal},
			{Name: "agreedSalaryColumn", Label: "Agreed salary", Type: core.TypeDecimal},
			{Name: "salaryArrears", Label: "Salary arrears", Type: core.TypeDecimal},
		},
	})
}
