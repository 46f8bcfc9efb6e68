package auth

// Strength grades a password on five checks.
type Strength struct {
	Score int    `json:"score"` // 0..5
	Label string `json:"label"`
}

var strengthLabels = [...]string{"", "Very Weak", "Weak", "Fair", "Good", "Strong"}

// PasswordStrength scores one point each for length of at least 8, an upper
// case letter, a lower case letter, a digit and any other character.
// The empty password scores 0 with no label.
func PasswordStrength(pw string) Strength {
	if pw == "" {
		return Strength{}
	}
	var upper, lower, digit, other bool
	n := 0
	for _, r := range pw {
		n++
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			other = true
		}
	}

	score := 0
	for _, ok := range []bool{n >= 8, upper, lower, digit, other} {
		if ok {
			score++
		}
	}
	return Strength{Score: score, Label: strengthLabels[score]}
}
