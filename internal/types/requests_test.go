package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRequest_Validate(t *testing.T) {
	req := &GenerateRequest{Content: "  some text  ", TemplateName: " documentary "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "some text", req.Content)
	assert.Equal(t, "documentary", req.TemplateName)
}

func TestGenerateRequest_Validate_BlankContent(t *testing.T) {
	req := &GenerateRequest{Content: "   \n\t"}
	assert.Error(t, req.Validate())
}

func TestValidateRequest_Validate_Empty(t *testing.T) {
	req := &ValidateRequest{Script: " "}
	assert.Error(t, req.Validate())
}

func TestExportRequest_Validate_NormalizesFormat(t *testing.T) {
	req := &ExportRequest{Script: "x", Format: " HTML "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "html", req.Format)
}

func TestTaskStatus_Terminal(t *testing.T) {
	assert.False(t, TaskPending.Terminal())
	assert.True(t, TaskCompleted.Terminal())
	assert.True(t, TaskFailed.Terminal())
}

func TestValidationReport_FailedChecks(t *testing.T) {
	report := &ValidationReport{
		QualityChecks: map[string]QualityCheck{
			CheckLength:         {Pass: false, Value: 10, Threshold: 100},
			CheckReadability:    {Pass: true, Value: 70, Threshold: 60},
			CheckSentenceLength: {Pass: false, Value: 30, Threshold: 20},
		},
	}
	assert.Equal(t, []string{CheckLength, CheckSentenceLength}, report.FailedChecks())

	var nilReport *ValidationReport
	assert.Nil(t, nilReport.FailedChecks())
}

func TestTemplate_TotalRange(t *testing.T) {
	tmpl := &Template{Sections: []TemplateSection{
		{Name: "Introduction", MinWords: 50, MaxWords: 100},
		{Name: "Conclusion", MinWords: 40, MaxWords: 80},
	}}
	minWords, maxWords := tmpl.TotalRange()
	assert.Equal(t, 90, minWords)
	assert.Equal(t, 180, maxWords)
}
