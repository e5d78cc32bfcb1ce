package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/codeathon-api/internal/models"
)

func TestDepartmentCreditSummaryCoversWholePopulation(t *testing.T) {
	students := &mockOpportunityStudents{}
	// two departments, more students than one repository page
	for i := 0; i < 130; i++ {
		dept := "CSE"
		if i%2 == 1 {
			dept = "ECE"
		}
		students.students = append(students.students, models.Student{
			ID:         fmt.Sprintf("stu-%03d", i),
			Department: dept,
			Credits:    2,
		})
	}
	svc := NewReportService(students, nil, nil, nil, nil)

	rows, err := svc.DepartmentCreditSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	counted := 0
	for _, row := range rows {
		counted += row.StudentCount
		assert.Equal(t, row.StudentCount*2, row.TotalCredits)
		assert.Equal(t, 2.0, row.AvgCredits)
	}
	assert.Equal(t, 130, counted)
}
