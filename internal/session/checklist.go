package session

import "unicode"

// PasswordRequirement is one signup checklist item.
type PasswordRequirement struct {
	Label string
	Met   bool
}

// PasswordChecklist evaluates the four signup password requirements. The
// list is stable-ordered so callers can render it directly.
func PasswordChecklist(pw string) []PasswordRequirement {
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return []PasswordRequirement{
		{Label: "At least 8 characters", Met: len(pw) >= 8},
		{Label: "One uppercase letter", Met: upper},
		{Label: "One lowercase letter", Met: lower},
		{Label: "One number", Met: digit},
	}
}

// ChecklistMet reports whether every requirement passes.
func ChecklistMet(reqs []PasswordRequirement) bool {
	for _, r := range reqs {
		if !r.Met {
			return false
		}
	}
	return true
}
