package generation

import "fmt"

// DefaultMaxFields bounds the follow-up questions asked for when the caller does not say.
const DefaultMaxFields = 8

// SystemInstruction is fixed apart from the field cap.
func SystemInstruction(maxFields int) string {
	return fmt.Sprintf("Return ONLY JSON matching DynamicFormSpec. No file uploads. Prefer structured fields. "+
		"Max %d fields. Avoid PII (SSN, bank). 8th-grade reading level.", maxFields)
}

// DefaultPrompt is the screener instruction offered before the applicant edits it.
func DefaultPrompt(maxFields int) string {
	return fmt.Sprintf("You are assisting a rental assistance screener. Propose up to %d targeted follow-ups "+
		"that affect eligibility or award amount. Focus on eviction status, utility arrears, priority "+
		"populations, and documentation needs. Prefer structured fields over free text.", maxFields)
}
