package domain

import (
	"fmt"
	"strings"
)

// CompanyPlaceholder is the literal placeholder substituted into question
// templates. Substitution is plain substring replacement, no escaping.
const CompanyPlaceholder = "{company_name}"

// Section is one ordered group of question templates in the bank.
type Section struct {
	Label     string
	Templates []string
}

// QuestionBank is the fixed, ordered catalog of analyst question templates
// driving report synthesis. Section order and intra-section order are both
// significant: the report transcript preserves bank order. The bank is
// immutable configuration, loaded once at startup and passed by reference.
type QuestionBank []Section

// NumQuestions returns the total template count across all sections.
func (b QuestionBank) NumQuestions() int {
	n := 0
	for _, s := range b {
		n += len(s.Templates)
	}
	return n
}

// ValidateQuestionBank validates a QuestionBank instance
func ValidateQuestionBank(b QuestionBank) error {
	if len(b) == 0 {
		return fmt.Errorf("question bank cannot be empty")
	}
	for i, s := range b {
		if s.Label == "" {
			return fmt.Errorf("section %d has no label", i)
		}
		if len(s.Templates) == 0 {
			return fmt.Errorf("section %q has no templates", s.Label)
		}
		for _, t := range s.Templates {
			if !strings.Contains(t, CompanyPlaceholder) {
				return fmt.Errorf("template %q is missing the %s placeholder", t, CompanyPlaceholder)
			}
		}
	}
	return nil
}

// ResolveTemplate substitutes the company name into a question template.
func ResolveTemplate(template, companyName string) string {
	return strings.ReplaceAll(template, CompanyPlaceholder, companyName)
}

// DefaultQuestionBank returns the standard credit-analysis question bank:
// 7 sections, 29 templated questions.
func DefaultQuestionBank() QuestionBank {
	return QuestionBank{
		{
			Label: "1. Industry Analysis",
			Templates: []string{
				"1.1 Please provide the domestic production and sales value overview of {company_name}.",
				"1.2 Please provide the monthly sales volume changes of screws and nuts for {company_name}.",
				"1.3 Please provide the operational performance of {company_name}.",
				"1.4 Please provide the price trend of upstream raw materials for {company_name}.",
				"1.5 Please provide the economic outlook for {company_name}.",
			},
		},
		{
			Label: "2. Shareholder and Team Analysis",
			Templates: []string{
				"2.1 Please provide information on the major shareholders of {company_name}.",
				"2.2 Please provide the organizational structure of the group of {company_name}.",
			},
		},
		{
			Label: "3. Operational Analysis",
			Templates: []string{
				"3.1 Please provide the revenue and profit analysis of {company_name}.",
				"3.2 Please provide the sales customer analysis of {company_name}.",
				"3.3 Please provide the supplier analysis of {company_name}.",
				"3.4 Please provide the transaction process of {company_name}.",
			},
		},
		{
			Label: "4. Financial Analysis",
			Templates: []string{
				"4.1 Please provide the financial structure of {company_name}.",
				"4.2 Please provide the operational efficiency of {company_name}.",
				"4.3 Please provide the long-term investments of {company_name}.",
				"4.4 Please provide the related party transactions of {company_name}.",
				"4.5 Please provide the cash flow analysis of {company_name}.",
			},
		},
		{
			Label: "5. Related Interviews",
			Templates: []string{
				"5.1 Please provide the plant location, environment, product, and technical advantages of {company_name}.",
				"5.2 Please provide the production process, machinery and equipment, and capacity utilization rate of {company_name}.",
				"5.3 Please provide the inventory scale of {company_name}.",
				"5.4 Please provide the order status of {company_name}.",
				"5.5 Please provide the exchange rate and country risk of {company_name}.",
			},
		},
		{
			Label: "6. Banking Relations",
			Templates: []string{
				"6.1 Please provide the deposit information of {company_name}.",
				"6.2 Please provide the loan or guarantee information of {company_name}.",
				"6.3 Please provide the loan balance units for the past six months and the past three years of {company_name}.",
				"6.4 Please provide the query frequency in the credit reporting center for the past three months for {company_name}.",
				"6.5 Please provide other credit investigation information of {company_name}.",
				"6.6 Please provide the leasing transactions of {company_name}.",
				"6.7 Please provide the derivative financial products transactions of {company_name}.",
			},
		},
		{
			Label: "7. Financial Statements",
			Templates: []string{
				"7.1 Please provide the latest financial statements of {company_name}.",
			},
		},
	}
}
