package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultQuestionBank_Shape(t *testing.T) {
	bank := DefaultQuestionBank()

	require.NoError(t, ValidateQuestionBank(bank))
	assert.Len(t, bank, 7)
	assert.Equal(t, 29, bank.NumQuestions())
}

func TestDefaultQuestionBank_SectionOrder(t *testing.T) {
	bank := DefaultQuestionBank()

	labels := make([]string, len(bank))
	for i, s := range bank {
		labels[i] = s.Label
	}

	assert.Equal(t, []string{
		"1. Industry Analysis",
		"2. Shareholder and Team Analysis",
		"3. Operational Analysis",
		"4. Financial Analysis",
		"5. Related Interviews",
		"6. Banking Relations",
		"7. Financial Statements",
	}, labels)
}

func TestDefaultQuestionBank_EveryTemplateHasPlaceholder(t *testing.T) {
	for _, section := range DefaultQuestionBank() {
		for _, template := range section.Templates {
			assert.Contains(t, template, CompanyPlaceholder, "template %q", template)
		}
	}
}

func TestResolveTemplate(t *testing.T) {
	question := ResolveTemplate("1.1 Please provide the overview of {company_name}.", "Acme Fasteners")
	assert.Equal(t, "1.1 Please provide the overview of Acme Fasteners.", question)
	assert.NotContains(t, question, CompanyPlaceholder)
}

func TestResolveTemplate_MultipleOccurrences(t *testing.T) {
	question := ResolveTemplate("{company_name} and {company_name}", "Acme")
	assert.Equal(t, "Acme and Acme", question)
}

func TestValidateQuestionBank_Errors(t *testing.T) {
	assert.Error(t, ValidateQuestionBank(QuestionBank{}))

	assert.Error(t, ValidateQuestionBank(QuestionBank{
		{Label: "", Templates: []string{"q {company_name}"}},
	}))

	assert.Error(t, ValidateQuestionBank(QuestionBank{
		{Label: "1. Section", Templates: nil},
	}))

	err := ValidateQuestionBank(QuestionBank{
		{Label: "1. Section", Templates: []string{"question without placeholder"}},
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), CompanyPlaceholder))
}

func TestJoinChunks(t *testing.T) {
	assert.Equal(t, "", JoinChunks(nil))
	assert.Equal(t, "", JoinChunks([]Chunk{}))
	assert.Equal(t, "a", JoinChunks([]Chunk{NewChunk("a")}))
	assert.Equal(t, "a\nb\nc", JoinChunks([]Chunk{NewChunk("a"), NewChunk("b"), NewChunk("c")}))
}
